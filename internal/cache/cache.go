// Package cache memoizes parse results by content fingerprint. The cache is
// advisory: losing it costs recomputation, never data, because extraction and
// segmentation are deterministic and the repository stays authoritative.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizsmith/internal/models"
)

type entry struct {
	content  *models.ParsedContent
	storedAt time.Time
}

type ParseCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]entry

	group singleflight.Group
}

// New creates a cache whose entries expire after ttl. A zero or negative ttl
// means entries never expire.
func New(ttl time.Duration) *ParseCache {
	return &ParseCache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// GetOrCompute returns the cached parse for fingerprint, or runs compute and
// stores the result. Concurrent callers with the same uncached fingerprint
// share a single compute invocation. The second return value reports a hit.
func (c *ParseCache) GetOrCompute(ctx context.Context, fingerprint string, compute func(ctx context.Context) (*models.ParsedContent, error)) (*models.ParsedContent, bool, error) {
	if pc, ok := c.lookup(fingerprint); ok {
		return pc, true, nil
	}

	v, err, shared := c.group.Do(fingerprint, func() (any, error) {
		// Re-check under the flight: another caller may have just stored it.
		if pc, ok := c.lookup(fingerprint); ok {
			return pc, nil
		}
		pc, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.store(fingerprint, pc)
		return pc, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*models.ParsedContent), shared, nil
}

// Invalidate drops the entry for fingerprint. Called on artifact delete and
// on re-upload with different bytes.
func (c *ParseCache) Invalidate(fingerprint string) {
	c.mu.Lock()
	delete(c.entries, fingerprint)
	c.mu.Unlock()
	c.group.Forget(fingerprint)
}

// Purge empties the cache.
func (c *ParseCache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports the number of live (unexpired) entries.
func (c *ParseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if !c.expired(e) {
			n++
		}
	}
	return n
}

func (c *ParseCache) lookup(fingerprint string) (*models.ParsedContent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fingerprint]
	if !ok {
		return nil, false
	}
	if c.expired(e) {
		delete(c.entries, fingerprint)
		return nil, false
	}
	return e.content, true
}

func (c *ParseCache) store(fingerprint string, pc *models.ParsedContent) {
	c.mu.Lock()
	c.entries[fingerprint] = entry{content: pc, storedAt: time.Now()}
	c.mu.Unlock()
}

func (c *ParseCache) expired(e entry) bool {
	return c.ttl > 0 && time.Since(e.storedAt) > c.ttl
}
