package summarizer

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	cacheMaxEntries = 512
	cacheTTL        = 24 * time.Hour
)

// CachedSummarizer memoizes successful summaries of an inner Summarizer so a
// segment that reappears unchanged (for example across watch-mode runs) is
// not billed twice. Entries expire after a TTL and the least recently used
// entry is evicted once the cache is full.
type CachedSummarizer struct {
	inner Summarizer
	now   func() time.Time

	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
	ttl        time.Duration
}

type cacheEntry struct {
	key       string
	summary   string
	expiresAt time.Time
}

func NewCachedSummarizer(inner Summarizer) *CachedSummarizer {
	return &CachedSummarizer{
		inner:      inner,
		now:        time.Now,
		entries:    make(map[string]*list.Element, cacheMaxEntries),
		order:      list.New(),
		maxEntries: cacheMaxEntries,
		ttl:        cacheTTL,
	}
}

func (c *CachedSummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	key := cacheKey(input)

	if summary, ok := c.lookup(key); ok {
		return summary, nil
	}

	summary, err := c.inner.Summarize(ctx, input)
	if err != nil {
		return "", err
	}

	if summary != "" {
		c.store(key, summary)
	}

	return summary, nil
}

func (c *CachedSummarizer) lookup(key string) (string, bool) {
	if key == "" {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return "", false
	}

	entry, ok := elem.Value.(*cacheEntry)
	if !ok {
		return "", false
	}

	if c.now().After(entry.expiresAt) {
		c.removeLocked(elem)

		return "", false
	}

	c.order.MoveToFront(elem)

	return entry.summary, true
}

func (c *CachedSummarizer) store(key string, summary string) {
	if key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)

	if elem, ok := c.entries[key]; ok {
		entry, castOk := elem.Value.(*cacheEntry)
		if !castOk {
			return
		}

		entry.summary = summary
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)

		return
	}

	elem := c.order.PushFront(&cacheEntry{
		key:       key,
		summary:   summary,
		expiresAt: expiresAt,
	})
	c.entries[key] = elem

	for len(c.entries) > c.maxEntries {
		back := c.order.Back()
		if back == nil {
			return
		}
		c.removeLocked(back)
	}
}

func (c *CachedSummarizer) removeLocked(elem *list.Element) {
	entry, ok := elem.Value.(*cacheEntry)
	if !ok {
		return
	}

	delete(c.entries, entry.key)
	c.order.Remove(elem)
}

// cacheKey fingerprints everything that shapes the response. Whitespace-only
// text yields an empty key, which disables caching for that input.
func cacheKey(input Input) string {
	if strings.TrimSpace(input.Text) == "" {
		return ""
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%s\x00%s", input.Model, input.MaxTokens, input.Prompt, input.Text)

	return hex.EncodeToString(h.Sum(nil))
}
