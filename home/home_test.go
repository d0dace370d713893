package home

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/anilist"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/carousel"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

type fakeCatalog struct {
	calls     atomic.Int32
	refreshed atomic.Int32
	upcoming  error
}

func (f *fakeCatalog) hit(ctx context.Context) {
	f.calls.Add(1)
	if anilist.Refreshing(ctx) {
		f.refreshed.Add(1)
	}
}

func mediaPage(prefix string, n int) *anilist.MediaPage {
	p := &anilist.MediaPage{}
	for i := 1; i <= n; i++ {
		p.Media = append(p.Media, &anilist.Media{
			ID:    i,
			Title: anilist.Title{Romaji: fmt.Sprintf("%s %d", prefix, i)},
		})
	}
	return p
}

func (f *fakeCatalog) Trending(ctx context.Context, mt types.MediaType, page, perPage int) (*anilist.MediaPage, error) {
	f.hit(ctx)
	return mediaPage("trending", perPage), nil
}

func (f *fakeCatalog) PopularThisSeason(ctx context.Context, page, perPage int) (*anilist.MediaPage, error) {
	f.hit(ctx)
	return mediaPage("popular", 8), nil
}

func (f *fakeCatalog) Upcoming(ctx context.Context, page, perPage int) (*anilist.MediaPage, error) {
	f.hit(ctx)
	if f.upcoming != nil {
		return nil, f.upcoming
	}
	return mediaPage("upcoming", 0), nil
}

type fakeList struct {
	err error
}

func (f fakeList) ListByStatus(ctx context.Context, userID string, status types.ListStatus) ([]*types.ListItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*types.ListItem{
		{AnimeID: 7, Title: "Monster", Status: status, Progress: 30, Episodes: 74},
	}, nil
}

func newService(t *testing.T, catalog *fakeCatalog) (*Service, clockwork.Clock) {
	clock := clockwork.NewFakeClock()
	positions := carousel.NewPositions(time.Hour, clock)
	return NewService(catalog, fakeList{}, positions, zaptest.NewLogger(t)), clock
}

func TestCarousels_All(t *testing.T) {
	svc, _ := newService(t, &fakeCatalog{})

	got, err := svc.Carousels(context.Background(), "u1", "", 0)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, Continue, got[0].Name)
	require.Len(t, got[0].Cards, 1)
	assert.Equal(t, 30, got[0].Cards[0].Progress)

	assert.Equal(t, Trending, got[1].Name)
	assert.Equal(t, PoolSize/PageSize, got[1].Pages)
	assert.Len(t, got[1].Cards, PageSize)
	assert.True(t, got[1].HasNext)

	assert.Equal(t, 2, got[2].Pages)
	assert.Empty(t, got[3].Cards)
	assert.Equal(t, 1, got[3].Pages)
}

func TestCarousels_RestoresPosition(t *testing.T) {
	svc, clock := newService(t, &fakeCatalog{})
	ctx := context.Background()

	got, err := svc.Carousels(ctx, "u1", Trending, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "trending 13", got[0].Cards[0].Title)

	got, err = svc.Carousels(ctx, "u1", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, got[1].Page)
	assert.Equal(t, 1, got[2].Page)

	other, err := svc.Carousels(ctx, "u2", Trending, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, other[0].Page, "positions are per user")

	clock.(interface{ Advance(time.Duration) }).Advance(2 * time.Hour)
	assert.Equal(t, 5, svc.PrunePositions())
	got, err = svc.Carousels(ctx, "u1", Trending, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, got[0].Page)
}

func TestCarousels_ClampsPage(t *testing.T) {
	svc, _ := newService(t, &fakeCatalog{})
	got, err := svc.Carousels(context.Background(), "u1", Popular, 9)
	require.NoError(t, err)
	assert.Equal(t, 2, got[0].Page)
	assert.Len(t, got[0].Cards, 2)
	assert.False(t, got[0].HasNext)
}

func TestCarousels_PartialFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	catalog := &fakeCatalog{upcoming: &anilist.RateLimitError{RetryAfter: time.Second}}
	svc := NewService(catalog, fakeList{}, carousel.NewPositions(time.Hour, clockwork.NewFakeClock()), zap.New(core))
	ctx := context.Background()

	got, err := svc.Carousels(ctx, "u1", "", 0)
	require.NoError(t, err, "one failing source does not take the page down")
	require.Len(t, got, 3)
	assert.Equal(t, []string{Continue, Trending, Popular}, []string{got[0].Name, got[1].Name, got[2].Name})

	entries := logs.FilterMessage("carousel unavailable").All()
	require.Len(t, entries, 1)
	assert.Equal(t, Upcoming, entries[0].ContextMap()["carousel"])

	_, err = svc.Carousels(ctx, "u1", Upcoming, 0)
	var rl *anilist.RateLimitError
	assert.True(t, errors.As(err, &rl), "a single requested carousel still reports its error")
}

func TestCarousels_AllSourcesFail(t *testing.T) {
	catalog := &failingCatalog{err: errors.New("anilist down")}
	svc := NewService(catalog, fakeList{err: errors.New("db down")},
		carousel.NewPositions(time.Hour, clockwork.NewFakeClock()), zaptest.NewLogger(t))

	_, err := svc.Carousels(context.Background(), "u1", "", 0)
	assert.ErrorContains(t, err, "db down")
}

type failingCatalog struct{ err error }

func (f *failingCatalog) Trending(context.Context, types.MediaType, int, int) (*anilist.MediaPage, error) {
	return nil, f.err
}
func (f *failingCatalog) PopularThisSeason(context.Context, int, int) (*anilist.MediaPage, error) {
	return nil, f.err
}
func (f *failingCatalog) Upcoming(context.Context, int, int) (*anilist.MediaPage, error) {
	return nil, f.err
}

func TestCarousels_Errors(t *testing.T) {
	svc, _ := newService(t, &fakeCatalog{})
	ctx := context.Background()

	_, err := svc.Carousels(ctx, "u1", "seasonal", 0)
	assert.ErrorIs(t, err, types.ErrInvalid)
	_, err = svc.Carousels(ctx, "u1", Trending, -1)
	assert.ErrorIs(t, err, types.ErrInvalid)
}

func TestWarm(t *testing.T) {
	catalog := &fakeCatalog{}
	svc, _ := newService(t, catalog)
	require.NoError(t, svc.Warm(context.Background()))
	assert.EqualValues(t, 3, catalog.calls.Load())
	assert.EqualValues(t, 3, catalog.refreshed.Load(), "warm-up bypasses cached responses")

	_, err := svc.Carousels(context.Background(), "u1", Trending, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, catalog.refreshed.Load(), "requests read through the cache")
}
