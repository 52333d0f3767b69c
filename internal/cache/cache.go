// Package cache provides an in-memory LRU for immutable blob blocks, used
// to keep hot regions of remote archives local.
package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/vamana/resource"
)

// Key identifies one block of one blob. Block is the block index, not a
// byte offset.
type Key struct {
	Name  string
	Block uint64
}

// BlockCache is a byte-oriented cache for immutable blocks. Returned
// slices must be treated as read-only.
type BlockCache interface {
	Get(ctx context.Context, key Key) ([]byte, bool)
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	Close() error
	// Stats returns hit and miss counts.
	Stats() (hits, misses int64)
}

// LRU is a mutex-guarded least-recently-used BlockCache bounded by a byte
// capacity. With a resource controller attached, cached bytes count
// against the global memory budget; when the budget denies an insert the
// block simply stays uncached.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[Key]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   Key
	value []byte
}

var _ BlockCache = (*LRU)(nil)

// NewLRU creates a cache holding at most capacity bytes. rc may be nil.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get implements BlockCache.
func (c *LRU) Get(_ context.Context, key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set implements BlockCache.
func (c *LRU) Set(_ context.Context, key Key, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		oldSize := int64(len(ent.Value.(*entry).value))
		newSize := int64(len(b))
		if newSize > oldSize && !c.rc.TryAcquireMemory(newSize-oldSize) {
			return
		}
		if newSize < oldSize {
			c.rc.ReleaseMemory(oldSize - newSize)
		}

		c.evictList.MoveToFront(ent)
		ent.Value.(*entry).value = b
		c.size += newSize - oldSize
		c.evictToCapacity()
		return
	}

	itemSize := int64(len(b))
	if itemSize > c.capacity {
		return
	}

	// Evict before acquiring so freed bytes flow back to the budget
	// first.
	for c.size+itemSize > c.capacity {
		tail := c.evictList.Back()
		if tail == nil {
			break
		}
		c.removeElement(tail)
	}

	if !c.rc.TryAcquireMemory(itemSize) {
		return
	}

	c.items[key] = c.evictList.PushFront(&entry{key: key, value: b})
	c.size += itemSize
}

// Invalidate implements BlockCache.
func (c *LRU) Invalidate(predicate func(key Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var drop []*list.Element
	for key, element := range c.items {
		if predicate(key) {
			drop = append(drop, element)
		}
	}
	for _, e := range drop {
		c.removeElement(e)
	}
}

// Close implements BlockCache.
func (c *LRU) Close() error {
	c.Invalidate(func(Key) bool { return true })
	return nil
}

// Stats implements BlockCache.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the cached byte total.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *LRU) evictToCapacity() {
	for c.size > c.capacity {
		tail := c.evictList.Back()
		if tail == nil {
			return
		}
		c.removeElement(tail)
	}
}

func (c *LRU) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	ent := e.Value.(*entry)
	delete(c.items, ent.key)
	c.size -= int64(len(ent.value))
	c.rc.ReleaseMemory(int64(len(ent.value)))
}
