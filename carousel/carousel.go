// Package carousel pages through short card lists and remembers where each
// user left every carousel.
package carousel

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/cache"
)

// Window is one page of a list of Total items.
type Window struct {
	Page    int  `json:"page"`
	Pages   int  `json:"pages"`
	Start   int  `json:"-"`
	End     int  `json:"-"`
	HasPrev bool `json:"has_prev"`
	HasNext bool `json:"has_next"`
}

// Paginate clamps page into [1, pages]. An empty list still has one (empty) page.
func Paginate(total, pageSize, page int) Window {
	if pageSize < 1 {
		pageSize = 1
	}
	if total < 0 {
		total = 0
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	page = max(1, min(page, pages))

	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	return Window{
		Page:    page,
		Pages:   pages,
		Start:   start,
		End:     end,
		HasPrev: page > 1,
		HasNext: page < pages,
	}
}

// Slice returns the part of items covered by w.
func Slice[T any](items []T, w Window) []T {
	if w.Start >= len(items) {
		return []T{}
	}
	return items[w.Start:min(w.End, len(items))]
}

// Positions remembers the last page a user viewed per carousel.
type Positions struct {
	pages *cache.Memory[int]
}

func NewPositions(ttl time.Duration, clock clockwork.Clock) *Positions {
	return &Positions{pages: cache.New[int](ttl, clock)}
}

func positionKey(userID, name string) string { return userID + "/" + name }

// Restore returns the remembered page, or 1 when nothing is remembered.
func (p *Positions) Restore(userID, name string) int {
	if page, ok := p.pages.Get(positionKey(userID, name)); ok {
		return page
	}
	return 1
}

func (p *Positions) Save(userID, name string, page int) {
	p.pages.Set(positionKey(userID, name), page)
}

func (p *Positions) Prune() int {
	return p.pages.Prune()
}
