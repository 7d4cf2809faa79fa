package utils

import (
	"container/list"
	"sync"
)

// An item in the LRU cache.
type LRUItem interface {
	Key() string
	Size() int64
}

// EvictFunc is called when an item is about to be evicted from the cache.
// Returning false keeps the item, and the next least recently used item
// is considered instead.
type EvictFunc[E LRUItem] func(item E) bool

// LRU is a size bounded least-recently-used cache.
type LRU[E LRUItem] struct {
	mu sync.Mutex

	// The maximum size of the cache.
	// A zero maximum size means the cache is unbounded.
	maxSize int64

	// Current size of the cache.
	currentSize int64

	// Doubly-linked list of items, most recently used first.
	cacheList *list.List

	// Map to access any item in constant time.
	cacheMap map[string]*list.Element

	// Function to call when an item is evicted.
	onEvict EvictFunc[E]
}

// Creates a new LRU cache.
func NewLRU[E LRUItem](maxSize int64, onEvict EvictFunc[E]) *LRU[E] {
	return &LRU[E]{
		maxSize:   maxSize,
		cacheList: list.New(),
		cacheMap:  make(map[string]*list.Element),
		onEvict:   onEvict,
	}
}

// Add a new item to the cache.
func (lru *LRU[E]) Add(item E) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	// If the item is already in cache, replace it and move it to front.
	if ee, ok := lru.cacheMap[item.Key()]; ok {
		lru.currentSize -= ee.Value.(E).Size()
		lru.currentSize += item.Size()
		lru.cacheList.MoveToFront(ee)
		ee.Value = item
	} else {
		ele := lru.cacheList.PushFront(item)
		lru.cacheMap[item.Key()] = ele
		lru.currentSize += item.Size()
	}

	lru.evict()
}

// Get an item from the cache.
func (lru *LRU[E]) Get(key string) (item E, ok bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if ele, hit := lru.cacheMap[key]; hit {
		lru.cacheList.MoveToFront(ele)
		return ele.Value.(E), true
	}
	return
}

// Remove an item from the cache without invoking the eviction callback.
func (lru *LRU[E]) Remove(key string) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if ele, hit := lru.cacheMap[key]; hit {
		lru.removeElement(ele)
	}
}

// Number of items in the cache.
func (lru *LRU[E]) Len() int {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	return lru.cacheList.Len()
}

// Total size of all items in the cache.
func (lru *LRU[E]) Size() int64 {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	return lru.currentSize
}

// Evict least recently used items until the cache fits its maximum size.
func (lru *LRU[E]) evict() {
	if lru.maxSize <= 0 {
		return
	}

	ele := lru.cacheList.Back()
	for ele != nil && lru.currentSize > lru.maxSize {
		prev := ele.Prev()
		item := ele.Value.(E)

		if lru.onEvict == nil || lru.onEvict(item) {
			lru.removeElement(ele)
		}

		ele = prev
	}
}

func (lru *LRU[E]) removeElement(e *list.Element) {
	lru.cacheList.Remove(e)
	kv := e.Value.(E)
	delete(lru.cacheMap, kv.Key())
	lru.currentSize -= kv.Size()
}
