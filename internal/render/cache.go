package render

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedFormatter memoizes a Formatter. The pipeline is deterministic, so
// a cached Result is always identical to a fresh one.
type CachedFormatter struct {
	next  Formatter
	cache *lru.Cache[string, Result]
}

// NewCachedFormatter wraps next with an LRU holding up to size answers.
func NewCachedFormatter(next Formatter, size int) (*CachedFormatter, error) {
	if next == nil {
		return nil, fmt.Errorf("render: nil formatter")
	}
	cache, err := lru.New[string, Result](size)
	if err != nil {
		return nil, fmt.Errorf("render: create cache: %w", err)
	}
	return &CachedFormatter{next: next, cache: cache}, nil
}

// Format returns the cached Result for raw, rendering it on first use.
func (c *CachedFormatter) Format(raw string) Result {
	if res, ok := c.cache.Get(raw); ok {
		return res
	}
	res := c.next.Format(raw)
	c.cache.Add(raw, res)
	return res
}

// Len reports how many answers are cached.
func (c *CachedFormatter) Len() int {
	return c.cache.Len()
}
