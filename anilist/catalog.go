package anilist

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

const (
	MaxPerPage = 50
	idsChunk   = 50
)

type SearchParams struct {
	Query   string
	Type    types.MediaType
	Genre   string
	Page    int
	PerPage int
}

func pageVars(page, perPage int) map[string]any {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return map[string]any{"page": page, "perPage": perPage}
}

func (c *Client) page(ctx context.Context, name string, vars map[string]any) (*MediaPage, error) {
	var out struct {
		Page *MediaPage `json:"Page"`
	}
	if err := c.query(ctx, name, pageQuery, vars, &out); err != nil {
		return nil, err
	}
	if out.Page == nil {
		return &MediaPage{}, nil
	}
	return out.Page, nil
}

func (c *Client) Search(ctx context.Context, p SearchParams) (*MediaPage, error) {
	vars := pageVars(p.Page, p.PerPage)
	if p.Type == "" {
		p.Type = types.MediaAnime
	}
	vars["type"] = p.Type
	if q := strings.TrimSpace(p.Query); q != "" {
		vars["search"] = q
		vars["sort"] = []string{"SEARCH_MATCH"}
	} else {
		vars["sort"] = []string{"POPULARITY_DESC"}
	}
	if p.Genre != "" {
		vars["genre"] = p.Genre
	}
	return c.page(ctx, "search", vars)
}

func (c *Client) Trending(ctx context.Context, mt types.MediaType, page, perPage int) (*MediaPage, error) {
	vars := pageVars(page, perPage)
	if mt == "" {
		mt = types.MediaAnime
	}
	vars["type"] = mt
	vars["sort"] = []string{"TRENDING_DESC", "POPULARITY_DESC"}
	return c.page(ctx, "trending", vars)
}

// PopularThisSeason lists the most popular anime of the current airing season.
func (c *Client) PopularThisSeason(ctx context.Context, page, perPage int) (*MediaPage, error) {
	season, year := SeasonOf(c.clock.Now())
	vars := pageVars(page, perPage)
	vars["type"] = types.MediaAnime
	vars["season"] = season
	vars["seasonYear"] = year
	vars["sort"] = []string{"POPULARITY_DESC"}
	return c.page(ctx, "popular", vars)
}

func (c *Client) Upcoming(ctx context.Context, page, perPage int) (*MediaPage, error) {
	vars := pageVars(page, perPage)
	vars["type"] = types.MediaAnime
	vars["status"] = "NOT_YET_RELEASED"
	vars["sort"] = []string{"POPULARITY_DESC"}
	return c.page(ctx, "upcoming", vars)
}

// Media fetches one title with its relations.
func (c *Client) Media(ctx context.Context, id int) (*Media, error) {
	if id <= 0 {
		return nil, types.Invalidf("media id must be positive")
	}
	var out struct {
		Media *Media `json:"Media"`
	}
	if err := c.query(ctx, "media", mediaQuery, map[string]any{"id": id}, &out); err != nil {
		return nil, err
	}
	if out.Media == nil {
		return nil, fmt.Errorf("anilist media %d: %w", id, types.ErrNotFound)
	}
	return out.Media, nil
}

// MediaByIDs resolves many ids at once. Unknown ids are absent from the result.
func (c *Client) MediaByIDs(ctx context.Context, ids []int) (map[int]*Media, error) {
	uniq := slices.Clone(ids)
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)

	var (
		mu  sync.Mutex
		out = make(map[int]*Media, len(uniq))
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for start := 0; start < len(uniq); start += idsChunk {
		chunk := uniq[start:min(start+idsChunk, len(uniq))]
		g.Go(func() error {
			vars := pageVars(1, idsChunk)
			vars["ids"] = chunk
			page, err := c.page(ctx, "ids", vars)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, m := range page.Media {
				out[m.ID] = m
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SeasonOf maps a date onto AniList's season names. December belongs to the
// following year's WINTER season.
func SeasonOf(t time.Time) (string, int) {
	year := t.Year()
	switch t.Month() {
	case time.December:
		return "WINTER", year + 1
	case time.January, time.February:
		return "WINTER", year
	case time.March, time.April, time.May:
		return "SPRING", year
	case time.June, time.July, time.August:
		return "SUMMER", year
	default:
		return "FALL", year
	}
}
