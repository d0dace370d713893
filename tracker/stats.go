package tracker

import (
	"context"
	"math"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

func (t *Tracker) Stats(ctx context.Context, userID string) (*types.Stats, error) {
	items, err := t.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ComputeStats(items), nil
}

// ComputeStats aggregates a list. Every status appears in ByStatus, zero included;
// the mean score only counts scored (non-zero) entries.
func ComputeStats(items []*types.ListItem) *types.Stats {
	st := &types.Stats{ByStatus: make(map[types.ListStatus]int, len(types.Statuses))}
	for _, s := range types.Statuses {
		st.ByStatus[s] = 0
	}

	var scoreSum float64
	for _, it := range items {
		st.Total++
		st.ByStatus[it.Status]++
		st.EpisodesWatched += it.Progress
		if it.Score > 0 {
			scoreSum += it.Score
			st.ScoredCount++
		}
	}
	if st.ScoredCount > 0 {
		st.MeanScore = round2(scoreSum / float64(st.ScoredCount))
	}
	if st.Total > 0 {
		st.CompletionRate = round2(float64(st.ByStatus[types.StatusCompleted]) / float64(st.Total))
	}
	return st
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
