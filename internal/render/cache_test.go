package render

import (
	"fmt"
	"testing"
)

func grid(id int64) []string {
	return []string{fmt.Sprintf("grid-%d", id)}
}

func TestCachePutGet(t *testing.T) {
	c := NewImageCache(4)
	c.Put(1, grid(1))

	got, ok := c.Get(1)
	if !ok {
		t.Fatal("entry missing")
	}
	if got[0] != "grid-1" {
		t.Errorf("grid = %q", got[0])
	}
	if _, ok := c.Get(2); ok {
		t.Error("unexpected hit for id 2")
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewImageCache(3)
	for id := int64(1); id <= 3; id++ {
		c.Put(id, grid(id))
	}

	// Touch 1 so 2 becomes the oldest.
	c.Get(1)
	c.Put(4, grid(4))

	if _, ok := c.Get(2); ok {
		t.Error("id 2 should have been evicted")
	}
	for _, id := range []int64{1, 3, 4} {
		if _, ok := c.Get(id); !ok {
			t.Errorf("id %d evicted unexpectedly", id)
		}
	}
}

func TestCacheNeverEvictsVisible(t *testing.T) {
	c := NewImageCache(2)
	c.Put(1, grid(1))
	c.Put(2, grid(2))
	c.SetVisible([]int64{1, 2})

	// Over capacity, but both existing entries are pinned.
	c.Put(3, grid(3))

	for _, id := range []int64{1, 2} {
		if _, ok := c.Get(id); !ok {
			t.Errorf("visible id %d was evicted", id)
		}
	}
	if c.Len() != 3 {
		t.Errorf("len = %d, want 3 (pinned overflow)", c.Len())
	}

	// Unpinning lets the next Put shrink the cache again.
	c.SetVisible(nil)
	c.Put(4, grid(4))
	if c.Len() > 2 {
		t.Errorf("len = %d after unpin, want <= 2", c.Len())
	}
}

func TestCachePutUpdatesInPlace(t *testing.T) {
	c := NewImageCache(2)
	c.Put(1, grid(1))
	c.Put(1, []string{"updated"})

	got, _ := c.Get(1)
	if got[0] != "updated" {
		t.Errorf("grid = %q", got[0])
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}
