package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type cacheKey struct {
	docID uuid.UUID
	page  int
	lang  string
}

// PageTextCache memoizes per-page extracted text keyed by document, page
// and OCR language. Concurrent misses for the same key coalesce into a
// single fetch, so a batch never runs OCR twice for one page.
type PageTextCache struct {
	group   singleflight.Group
	mu      sync.RWMutex
	entries map[cacheKey]string
}

func NewPageTextCache() *PageTextCache {
	return &PageTextCache{entries: make(map[cacheKey]string)}
}

// Get returns the cached text for the key, running fetch on a miss. Errors
// are not cached; a failed page is retried on the next request.
func (c *PageTextCache) Get(ctx context.Context, docID uuid.UUID, page int, lang string, fetch func() (string, error)) (string, error) {
	key := cacheKey{docID: docID, page: page, lang: lang}

	c.mu.RLock()
	text, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return text, nil
	}

	flightKey := fmt.Sprintf("%s|%d|%s", docID, page, lang)
	v, err, _ := c.group.Do(flightKey, func() (any, error) {
		text, err := fetch()
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.entries[key] = text
		c.mu.Unlock()
		return text, nil
	})
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return v.(string), nil
}

// Evict removes all cached pages for one document.
func (c *PageTextCache) Evict(docID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.docID == docID {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of cached pages.
func (c *PageTextCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
