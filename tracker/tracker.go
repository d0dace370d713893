// Package tracker implements the list item flows: add, update, increment and
// remove entries of a user's anime list, plus listing, stats and export.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/anilist"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/carousel"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/utils"
)

const (
	maxNotes       = 2000
	maxScore       = 10.0
	defaultPerPage = 20
	maxPerPage     = 100
)

type Store interface {
	ListByUser(ctx context.Context, userID string) ([]*types.ListItem, error)
	Get(ctx context.Context, userID string, animeID int) (*types.ListItem, error)
	Insert(ctx context.Context, item *types.ListItem) (*types.ListItem, error)
	Update(ctx context.Context, userID string, animeID int, fields map[string]any) (*types.ListItem, error)
	Delete(ctx context.Context, userID string, animeID int) error
}

type Catalog interface {
	Media(ctx context.Context, id int) (*anilist.Media, error)
}

type Notifier interface {
	NotifyCompleted(ctx context.Context, item *types.ListItem) error
}

type Tracker struct {
	store    Store
	catalog  Catalog
	notifier Notifier
	clock    clockwork.Clock
	logger   *zap.Logger
}

func New(store Store, catalog Catalog, notifier Notifier, clock clockwork.Clock, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:    store,
		catalog:  catalog,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

type AddRequest struct {
	AnimeID  int      `json:"anime_id"`
	Status   *string  `json:"status"`
	Progress *int     `json:"progress"`
	Score    *float64 `json:"score"`
	Notes    *string  `json:"notes"`
}

type UpdateRequest struct {
	Status   *string  `json:"status"`
	Progress *int     `json:"progress"`
	Score    *float64 `json:"score"`
	Notes    *string  `json:"notes"`
}

func (r UpdateRequest) empty() bool {
	return r.Status == nil && r.Progress == nil && r.Score == nil && r.Notes == nil
}

type change struct {
	status   *types.ListStatus
	progress *int
	score    *float64
	notes    *string
}

func parseChange(status *string, progress *int, score *float64, notes *string) (change, error) {
	c := change{progress: progress, score: score, notes: notes}
	if status != nil {
		st, err := types.ParseListStatus(*status)
		if err != nil {
			return c, err
		}
		c.status = &st
	}
	return c, nil
}

// apply validates c against item and mutates item. Progress that reaches a
// known episode count completes the entry unless a status was given.
func apply(item *types.ListItem, c change) error {
	if c.progress != nil {
		p := *c.progress
		if p < 0 {
			return types.Invalidf("progress cannot be negative")
		}
		if item.Episodes > 0 && p > item.Episodes {
			return types.Invalidf("progress %d exceeds the %d available episodes", p, item.Episodes)
		}
		item.Progress = p
	}
	if c.score != nil {
		if *c.score < 0 || *c.score > maxScore {
			return types.Invalidf("score must be between 0 and %g", maxScore)
		}
		item.Score = *c.score
	}
	if c.notes != nil {
		if utf8.RuneCountInString(*c.notes) > maxNotes {
			return types.Invalidf("notes cannot exceed %d characters", maxNotes)
		}
		item.Notes = *c.notes
	}

	switch {
	case c.status != nil:
		item.Status = *c.status
		switch item.Status {
		case types.StatusCompleted:
			if c.progress == nil && item.Episodes > 0 {
				item.Progress = item.Episodes
			}
		case types.StatusPlanToWatch:
			if c.progress == nil {
				item.Progress = 0
			}
		}
	case c.progress != nil && item.Episodes > 0 && item.Progress == item.Episodes:
		item.Status = types.StatusCompleted
	case c.progress != nil && item.Progress > 0 && item.Status == types.StatusPlanToWatch:
		item.Status = types.StatusWatching
	}
	return nil
}

func (t *Tracker) Get(ctx context.Context, userID string, animeID int) (*types.ListItem, error) {
	return t.store.Get(ctx, userID, animeID)
}

// Add puts a title on the user's list, filling title, cover and episode count
// from AniList. Each title can appear once per user.
func (t *Tracker) Add(ctx context.Context, userID string, req AddRequest) (*types.ListItem, error) {
	if req.AnimeID <= 0 {
		return nil, types.Invalidf("anime_id must be positive")
	}
	c, err := parseChange(req.Status, req.Progress, req.Score, req.Notes)
	if err != nil {
		return nil, err
	}

	_, err = t.store.Get(ctx, userID, req.AnimeID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("anime %d is already on the list: %w", req.AnimeID, types.ErrConflict)
	case !errors.Is(err, types.ErrNotFound):
		return nil, err
	}

	media, err := t.catalog.Media(ctx, req.AnimeID)
	if err != nil {
		return nil, err
	}

	now := t.clock.Now()
	item := &types.ListItem{
		UserID:     userID,
		AnimeID:    media.ID,
		Title:      media.Title.Preferred(),
		CoverImage: media.CoverImage.Best(),
		Episodes:   media.Units(),
		Status:     types.StatusPlanToWatch,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := apply(item, c); err != nil {
		return nil, err
	}

	stored, err := t.store.Insert(ctx, item)
	if err != nil {
		return nil, err
	}
	t.logger.Info("list item added",
		zap.String("user_id", userID),
		zap.Int("anime_id", stored.AnimeID),
		zap.String("status", string(stored.Status)))

	if stored.Status == types.StatusCompleted {
		t.notify(ctx, stored)
	}
	return stored, nil
}

// Update changes any subset of status, progress, score and notes.
func (t *Tracker) Update(ctx context.Context, userID string, animeID int, req UpdateRequest) (*types.ListItem, error) {
	if req.empty() {
		return nil, types.Invalidf("nothing to update")
	}
	c, err := parseChange(req.Status, req.Progress, req.Score, req.Notes)
	if err != nil {
		return nil, err
	}

	current, err := t.store.Get(ctx, userID, animeID)
	if err != nil {
		return nil, err
	}
	return t.save(ctx, current, c)
}

// Increment bumps progress by one episode.
func (t *Tracker) Increment(ctx context.Context, userID string, animeID int) (*types.ListItem, error) {
	current, err := t.store.Get(ctx, userID, animeID)
	if err != nil {
		return nil, err
	}
	next := current.Progress + 1
	return t.save(ctx, current, change{progress: &next})
}

func (t *Tracker) save(ctx context.Context, current *types.ListItem, c change) (*types.ListItem, error) {
	next := *current
	if c.progress != nil && next.Episodes == 0 {
		next.Episodes = t.refreshEpisodes(ctx, next.AnimeID)
	}
	if err := apply(&next, c); err != nil {
		return nil, err
	}
	next.UpdatedAt = t.clock.Now()

	fields := map[string]any{
		"status":     next.Status,
		"progress":   next.Progress,
		"score":      next.Score,
		"notes":      next.Notes,
		"updated_at": utils.NowDate(next.UpdatedAt),
	}
	if next.Episodes != current.Episodes {
		fields["episodes"] = next.Episodes
	}

	stored, err := t.store.Update(ctx, current.UserID, current.AnimeID, fields)
	if err != nil {
		return nil, err
	}
	if current.Status != types.StatusCompleted && stored.Status == types.StatusCompleted {
		t.notify(ctx, stored)
	}
	return stored, nil
}

// refreshEpisodes looks up an episode count that was unknown when the entry
// was added, e.g. for a show that was still airing.
func (t *Tracker) refreshEpisodes(ctx context.Context, animeID int) int {
	media, err := t.catalog.Media(ctx, animeID)
	if err != nil {
		t.logger.Debug("episode refresh failed", zap.Int("anime_id", animeID), zap.Error(err))
		return 0
	}
	return media.Units()
}

func (t *Tracker) Remove(ctx context.Context, userID string, animeID int) error {
	if err := t.store.Delete(ctx, userID, animeID); err != nil {
		return err
	}
	t.logger.Info("list item removed", zap.String("user_id", userID), zap.Int("anime_id", animeID))
	return nil
}

func (t *Tracker) notify(ctx context.Context, item *types.ListItem) {
	if t.notifier == nil {
		return
	}
	if err := t.notifier.NotifyCompleted(ctx, item); err != nil {
		t.logger.Warn("completion hook failed",
			zap.String("user_id", item.UserID),
			zap.Int("anime_id", item.AnimeID),
			zap.Error(err))
	}
}

type Query struct {
	Status  string
	Search  string
	Sort    string
	Order   string
	Page    int
	PerPage int
}

// List returns one page of the user's filtered and sorted list.
func (t *Tracker) List(ctx context.Context, userID string, q Query) (*types.ListPage, error) {
	var status types.ListStatus
	if q.Status != "" {
		st, err := types.ParseListStatus(q.Status)
		if err != nil {
			return nil, err
		}
		status = st
	}
	key, desc, err := ParseSort(q.Sort, q.Order)
	if err != nil {
		return nil, err
	}
	perPage := q.PerPage
	switch {
	case perPage == 0:
		perPage = defaultPerPage
	case perPage < 0 || perPage > maxPerPage:
		return nil, types.Invalidf("per_page must be between 1 and %d", maxPerPage)
	}

	items, err := t.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	items = Filter(items, status, q.Search)
	Sort(items, key, desc)

	w := carousel.Paginate(len(items), perPage, q.Page)
	return &types.ListPage{
		Items:   carousel.Slice(items, w),
		Total:   len(items),
		Page:    w.Page,
		PerPage: perPage,
		Pages:   w.Pages,
	}, nil
}

// ListByStatus returns every entry with the given status, most recently
// updated first.
func (t *Tracker) ListByStatus(ctx context.Context, userID string, status types.ListStatus) ([]*types.ListItem, error) {
	items, err := t.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	items = Filter(items, status, "")
	Sort(items, SortUpdated, true)
	return items, nil
}
