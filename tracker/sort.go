package tracker

import (
	"cmp"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

type SortKey string

const (
	SortTitle    SortKey = "title"
	SortScore    SortKey = "score"
	SortProgress SortKey = "progress"
	SortStatus   SortKey = "status"
	SortAdded    SortKey = "added"
	SortUpdated  SortKey = "updated"
)

// ParseSort resolves a sort key and direction. Text-like keys default to
// ascending, numeric and time keys to descending.
func ParseSort(key, order string) (SortKey, bool, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(key)))
	if k == "" {
		k = SortUpdated
	}

	var desc bool
	switch k {
	case SortTitle, SortStatus:
		desc = false
	case SortScore, SortProgress, SortAdded, SortUpdated:
		desc = true
	default:
		return "", false, types.Invalidf("unknown sort key %q", key)
	}

	switch strings.ToLower(strings.TrimSpace(order)) {
	case "":
	case "asc":
		desc = false
	case "desc":
		desc = true
	default:
		return "", false, types.Invalidf("order must be asc or desc")
	}
	return k, desc, nil
}

func statusRank(s types.ListStatus) int {
	if i := slices.Index(types.Statuses, s); i >= 0 {
		return i
	}
	return len(types.Statuses)
}

func compareBy(key SortKey, a, b *types.ListItem) int {
	switch key {
	case SortTitle:
		return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case SortScore:
		return cmp.Compare(a.Score, b.Score)
	case SortProgress:
		return cmp.Compare(a.Progress, b.Progress)
	case SortStatus:
		return cmp.Compare(statusRank(a.Status), statusRank(b.Status))
	case SortAdded:
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
}

// Sort orders items in place. Ties fall back to title then anime id, both
// ascending whatever the main direction.
func Sort(items []*types.ListItem, key SortKey, desc bool) {
	slices.SortStableFunc(items, func(a, b *types.ListItem) int {
		c := compareBy(key, a, b)
		if desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		if c = compareBy(SortTitle, a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.AnimeID, b.AnimeID)
	})
}

// Filter keeps items matching status (empty = any) whose title contains search,
// case-insensitively.
func Filter(items []*types.ListItem, status types.ListStatus, search string) []*types.ListItem {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]*types.ListItem, 0, len(items))
	for _, it := range items {
		if status != "" && it.Status != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(it.Title), search) {
			continue
		}
		out = append(out, it)
	}
	return out
}
