// Package session keeps per-visitor state: the series loaded so far and the
// last configuration used.
package session

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"stockforecast/models"
)

// LoadFunc fetches the history of one ticker.
type LoadFunc func(ctx context.Context, ticker string) (models.RawSeries, error)

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// SeriesCache memoizes loaded series by ticker. Failed loads are not stored,
// and concurrent loads of one ticker share a single call.
type SeriesCache struct {
	mu      sync.RWMutex
	entries map[string]models.RawSeries
	hits    int
	misses  int

	group singleflight.Group
}

// NewSeriesCache returns an empty cache.
func NewSeriesCache() *SeriesCache {
	return &SeriesCache{entries: make(map[string]models.RawSeries)}
}

func cacheKey(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Get returns the cached series for ticker.
func (c *SeriesCache) Get(ticker string) (models.RawSeries, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[cacheKey(ticker)]
	return s, ok
}

// GetOrLoad returns the cached series for ticker, calling load on a miss.
func (c *SeriesCache) GetOrLoad(ctx context.Context, ticker string, load LoadFunc) (models.RawSeries, error) {
	key := cacheKey(ticker)

	c.mu.Lock()
	if s, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return s, nil
	}
	c.misses++
	c.mu.Unlock()

	// The shared load outlives any one caller; each caller stops waiting when
	// its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if s, ok := c.Get(key); ok {
			return s, nil
		}
		s, err := load(loadCtx, key)
		if err != nil {
			return models.RawSeries{}, err
		}
		c.mu.Lock()
		c.entries[key] = s
		c.mu.Unlock()
		return s, nil
	})
	select {
	case <-ctx.Done():
		return models.RawSeries{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.RawSeries{}, res.Err
		}
		return res.Val.(models.RawSeries), nil
	}
}

// Invalidate drops ticker from the cache.
func (c *SeriesCache) Invalidate(ticker string) {
	c.mu.Lock()
	delete(c.entries, cacheKey(ticker))
	c.mu.Unlock()
}

// Tickers lists the cached tickers.
func (c *SeriesCache) Tickers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	return out
}

// Stats returns a snapshot of hit/miss counters.
func (c *SeriesCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}
