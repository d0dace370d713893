// Package home assembles the home page carousels and keeps each user on the
// page they last viewed.
package home

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/anilist"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/carousel"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

const (
	Continue = "continue"
	Trending = "trending"
	Popular  = "popular"
	Upcoming = "upcoming"

	PoolSize = 30
	PageSize = 6
)

// Names lists the carousels in display order.
var Names = []string{Continue, Trending, Popular, Upcoming}

type Catalog interface {
	Trending(ctx context.Context, mt types.MediaType, page, perPage int) (*anilist.MediaPage, error)
	PopularThisSeason(ctx context.Context, page, perPage int) (*anilist.MediaPage, error)
	Upcoming(ctx context.Context, page, perPage int) (*anilist.MediaPage, error)
}

type Watching interface {
	ListByStatus(ctx context.Context, userID string, status types.ListStatus) ([]*types.ListItem, error)
}

type Service struct {
	catalog   Catalog
	list      Watching
	positions *carousel.Positions
	logger    *zap.Logger
}

func NewService(catalog Catalog, list Watching, positions *carousel.Positions, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, list: list, positions: positions, logger: logger}
}

// Carousels returns every carousel, or only name when it is set. A page of 0
// restores the last viewed page; any other page is clamped and remembered.
// Carousels whose source fails are left out; the call fails only when none
// could be built.
func (s *Service) Carousels(ctx context.Context, userID, name string, page int) ([]*types.Carousel, error) {
	names := Names
	if name != "" {
		if !slices.Contains(Names, name) {
			return nil, types.Invalidf("unknown carousel %q", name)
		}
		names = []string{name}
	}
	if page < 0 {
		return nil, types.Invalidf("page cannot be negative")
	}

	pools := make([][]*types.CarouselCard, len(names))
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, n := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pools[i], errs[i] = s.pool(ctx, userID, n)
		}()
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			s.logger.Warn("carousel unavailable", zap.String("carousel", names[i]), zap.Error(err))
		}
	}
	if failed == len(names) {
		return nil, fmt.Errorf("carousel %s: %w", names[0], errs[0])
	}

	out := make([]*types.Carousel, 0, len(names))
	for i, n := range names {
		if errs[i] != nil {
			continue
		}
		want := page
		if want == 0 {
			want = s.positions.Restore(userID, n)
		}
		w := carousel.Paginate(len(pools[i]), PageSize, want)
		s.positions.Save(userID, n, w.Page)
		out = append(out, &types.Carousel{
			Name:    n,
			Page:    w.Page,
			Pages:   w.Pages,
			HasPrev: w.HasPrev,
			HasNext: w.HasNext,
			Cards:   carousel.Slice(pools[i], w),
		})
	}
	return out, nil
}

func (s *Service) pool(ctx context.Context, userID, name string) ([]*types.CarouselCard, error) {
	if name == Continue {
		items, err := s.list.ListByStatus(ctx, userID, types.StatusWatching)
		if err != nil {
			return nil, err
		}
		cards := make([]*types.CarouselCard, 0, len(items))
		for _, it := range items {
			cards = append(cards, &types.CarouselCard{
				AnimeID:    it.AnimeID,
				Title:      it.Title,
				CoverImage: it.CoverImage,
				Episodes:   it.Episodes,
				Progress:   it.Progress,
				Status:     it.Status,
			})
		}
		return cards, nil
	}

	page, err := s.fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	cards := make([]*types.CarouselCard, 0, len(page.Media))
	for _, m := range page.Media {
		cards = append(cards, &types.CarouselCard{
			AnimeID:    m.ID,
			Title:      m.Title.Preferred(),
			CoverImage: m.CoverImage.Best(),
			Episodes:   m.Units(),
		})
	}
	return cards, nil
}

func (s *Service) fetch(ctx context.Context, name string) (*anilist.MediaPage, error) {
	switch name {
	case Trending:
		return s.catalog.Trending(ctx, types.MediaAnime, 1, PoolSize)
	case Popular:
		return s.catalog.PopularThisSeason(ctx, 1, PoolSize)
	default:
		return s.catalog.Upcoming(ctx, 1, PoolSize)
	}
}

// Warm refetches the catalog pools, bypassing cached responses, so the
// first home request after a refresh is served from a fresh cache.
func (s *Service) Warm(ctx context.Context) error {
	g, gctx := errgroup.WithContext(anilist.WithRefresh(ctx))
	for _, n := range []string{Trending, Popular, Upcoming} {
		g.Go(func() error {
			_, err := s.fetch(gctx, n)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("home carousels warmed")
	return nil
}

// PrunePositions drops expired carousel positions.
func (s *Service) PrunePositions() int {
	return s.positions.Prune()
}
