package summarizer

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Cache wraps a Summarizer and remembers successful summaries of identical
// input for a limited time.
type Cache struct {
	next  Summarizer
	store *summaryCache
	ttl   time.Duration
	now   func() time.Time
}

// NewCache returns next unchanged when maxEntries or ttl disable caching.
func NewCache(next Summarizer, maxEntries int, ttl time.Duration) Summarizer {
	store := newSummaryCache(maxEntries)
	if store == nil || ttl <= 0 {
		return next
	}

	return &Cache{
		next:  next,
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *Cache) Summarize(ctx context.Context, input Input) (string, error) {
	key := summaryCacheKey(input)

	if summary, ok := c.store.get(key, c.now()); ok {
		return summary, nil
	}

	summary, err := c.next.Summarize(ctx, input)
	if err != nil {
		return "", err
	}

	now := c.now()
	c.store.set(key, summary, now.Add(c.ttl), now)

	return summary, nil
}

// Model reports the model of the wrapped summarizer when it has one.
func (c *Cache) Model() string {
	if m, ok := c.next.(interface{ Model() string }); ok {
		return m.Model()
	}

	return ""
}

func summaryCacheKey(input Input) string {
	if input.Text == "" {
		return ""
	}

	h := sha256.New()
	h.Write([]byte(input.Instruction))
	h.Write([]byte{0})
	h.Write([]byte(input.Text))

	return hex.EncodeToString(h.Sum(nil))
}

type summaryCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
}

type summaryCacheEntry struct {
	key       string
	summary   string
	expiresAt time.Time
}

func newSummaryCache(maxEntries int) *summaryCache {
	if maxEntries <= 0 {
		return nil
	}

	return &summaryCache{
		entries:    make(map[string]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
	}
}

func (c *summaryCache) get(key string, now time.Time) (string, bool) {
	if c == nil || key == "" {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return "", false
	}

	entry := elem.Value.(*summaryCacheEntry)
	if now.After(entry.expiresAt) {
		c.removeElement(elem)

		return "", false
	}

	c.order.MoveToFront(elem)

	return entry.summary, true
}

func (c *summaryCache) set(
	key string,
	summary string,
	expiresAt time.Time,
	now time.Time,
) {
	if c == nil || key == "" || summary == "" || !expiresAt.After(now) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*summaryCacheEntry)
		entry.summary = summary
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)

		return
	}

	c.entries[key] = c.order.PushFront(&summaryCacheEntry{
		key:       key,
		summary:   summary,
		expiresAt: expiresAt,
	})

	c.evictExpiredLocked(now)
	c.enforceSizeLimitLocked()
}

func (c *summaryCache) evictExpiredLocked(now time.Time) {
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*summaryCacheEntry).expiresAt) {
			c.removeElement(elem)
		}
		elem = prev
	}
}

func (c *summaryCache) enforceSizeLimitLocked() {
	for len(c.entries) > c.maxEntries {
		elem := c.order.Back()
		if elem == nil {
			return
		}
		c.removeElement(elem)
	}
}

func (c *summaryCache) removeElement(elem *list.Element) {
	delete(c.entries, elem.Value.(*summaryCacheEntry).key)
	c.order.Remove(elem)
}
