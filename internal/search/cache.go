package search

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// cacheKey derives a stable key from the normalized query and options.
func cacheKey(query Query) string {
	include := append([]string(nil), query.IncludeDomains...)
	exclude := append([]string(nil), query.ExcludeDomains...)
	sort.Strings(include)
	sort.Strings(exclude)

	normalized := fmt.Sprintf("%s|%d|%s|%s|%d",
		strings.ToLower(strings.Join(strings.Fields(query.Text), " ")),
		query.MaxResults,
		strings.Join(include, ","),
		strings.Join(exclude, ","),
		query.RecencyDays,
	)

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

type cacheEntry struct {
	key        string
	response   Response
	insertedAt time.Time
}

// lruCache is a fixed-capacity cache with per-entry max age. Entries past
// max age are treated as misses; once over capacity the least-recently
// accessed entry is evicted first. The cache is process-local.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	maxAge   time.Duration
	entries  map[string]*list.Element
	order    *list.List // front = most recently accessed

	now func() time.Time
}

func newLRUCache(capacity int, maxAge time.Duration) *lruCache {
	return &lruCache{
		capacity: capacity,
		maxAge:   maxAge,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// get returns a copy of the cached response, refreshing last-access order.
func (c *lruCache) get(key string) (*Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.insertedAt) > c.maxAge {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}

	c.order.MoveToFront(elem)
	resp := entry.response
	return &resp, true
}

// put stores a response, evicting the least-recently-accessed entry when
// over capacity.
func (c *lruCache) put(key string, response Response) {
	if c.capacity <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.response = response
		entry.insertedAt = c.now()
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cacheEntry{
		key:        key,
		response:   response,
		insertedAt: c.now(),
	})
	c.entries[key] = elem

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

// len reports the current entry count.
func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
