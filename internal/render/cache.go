package render

import (
	"container/list"
	"sync"
)

// DefaultCacheSize bounds how many rendered image grids are kept.
const DefaultCacheSize = 64

// CacheFill is the queue payload carrying a finished image conversion
// back to the single-writer loop.
type CacheFill struct {
	MessageID int64
	Grid      []string
}

// ImageCache maps message IDs to rendered character grids with
// access-order LRU eviction. Entries for currently visible messages are
// pinned: the cache may temporarily exceed capacity rather than evict one.
type ImageCache struct {
	mu      sync.Mutex
	cap     int
	order   *list.List // front = most recently used
	entries map[int64]*list.Element
	visible map[int64]struct{}
}

type cacheEntry struct {
	id   int64
	grid []string
}

// NewImageCache creates a cache holding up to capacity grids.
func NewImageCache(capacity int) *ImageCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &ImageCache{
		cap:     capacity,
		order:   list.New(),
		entries: make(map[int64]*list.Element),
		visible: make(map[int64]struct{}),
	}
}

// Get returns the cached grid and refreshes its recency.
func (c *ImageCache) Get(id int64) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).grid, true
}

// Put stores a grid, evicting the least recently used unpinned entries
// beyond capacity.
func (c *ImageCache) Put(id int64, grid []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[id]; ok {
		el.Value.(*cacheEntry).grid = grid
		c.order.MoveToFront(el)
		return
	}
	c.entries[id] = c.order.PushFront(&cacheEntry{id: id, grid: grid})
	c.evict()
}

// SetVisible pins the given message IDs against eviction until the next
// call.
func (c *ImageCache) SetVisible(ids []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		c.visible[id] = struct{}{}
	}
}

// Len returns the number of cached grids.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ImageCache) evict() {
	el := c.order.Back()
	for len(c.entries) > c.cap && el != nil {
		prev := el.Prev()
		entry := el.Value.(*cacheEntry)
		if _, pinned := c.visible[entry.id]; !pinned {
			c.order.Remove(el)
			delete(c.entries, entry.id)
		}
		el = prev
	}
}
