package summarizer

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

const (
	resultCacheMaxEntries = 256
	resultCacheTTL        = 24 * time.Hour
)

// resultCache is an LRU of successful model responses with per-entry expiry.
type resultCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
}

type resultCacheEntry struct {
	key       string
	text      string
	expiresAt time.Time
}

func newResultCache(maxEntries int) *resultCache {
	if maxEntries <= 0 {
		return nil
	}

	return &resultCache{
		entries:    make(map[string]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
	}
}

// TextHash is the hex sha256 of text.
func TextHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

func (c *resultCache) get(key string, now time.Time) (string, bool) {
	if c == nil || key == "" {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return "", false
	}

	entry := elem.Value.(*resultCacheEntry)
	if now.After(entry.expiresAt) {
		c.removeElement(elem)
		return "", false
	}

	c.order.MoveToFront(elem)

	return entry.text, true
}

func (c *resultCache) set(key string, text string, expiresAt time.Time, now time.Time) {
	if c == nil || key == "" || text == "" || !expiresAt.After(now) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*resultCacheEntry)
		entry.text = text
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)

		return
	}

	c.entries[key] = c.order.PushFront(&resultCacheEntry{
		key:       key,
		text:      text,
		expiresAt: expiresAt,
	})

	c.evictExpiredLocked(now)

	for len(c.entries) > c.maxEntries {
		c.removeElement(c.order.Back())
	}
}

func (c *resultCache) evictExpiredLocked(now time.Time) {
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*resultCacheEntry).expiresAt) {
			c.removeElement(elem)
		}
		elem = prev
	}
}

func (c *resultCache) removeElement(elem *list.Element) {
	if elem == nil {
		return
	}

	delete(c.entries, elem.Value.(*resultCacheEntry).key)
	c.order.Remove(elem)
}
