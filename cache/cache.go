// Package cache is a small TTL map used for AniList responses and carousel positions.
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type entry[V any] struct {
	val V
	exp time.Time
}

type Memory[V any] struct {
	mu    sync.RWMutex
	m     map[string]entry[V]
	ttl   time.Duration
	clock clockwork.Clock
}

func New[V any](ttl time.Duration, clock clockwork.Clock) *Memory[V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory[V]{m: make(map[string]entry[V]), ttl: ttl, clock: clock}
}

func (c *Memory[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.m[key]
	if !ok || !c.clock.Now().Before(e.exp) {
		var zero V
		return zero, false
	}
	return e.val, true
}

func (c *Memory[V]) Set(key string, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = entry[V]{val: val, exp: c.clock.Now().Add(c.ttl)}
}

func (c *Memory[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

// Prune drops expired entries and reports how many were removed.
func (c *Memory[V]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	removed := 0
	for k, e := range c.m {
		if !now.Before(e.exp) {
			delete(c.m, k)
			removed++
		}
	}
	return removed
}

func (c *Memory[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
