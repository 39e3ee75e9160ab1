package embedding

import (
	"container/list"
	"slices"
	"sync"
)

// EmbeddingCache keeps the most recently used query vectors. Vectors are copied in and out so
// callers may mutate what they hold.
type EmbeddingCache struct {
	mu     sync.Mutex
	limit  int
	order  *list.List
	byText map[string]*list.Element
	hits   uint64
	misses uint64
}

type cached struct {
	text string
	vec  []float32
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Entries int
	Hits    uint64
	Misses  uint64
}

// NewEmbeddingCache creates a cache holding up to limit vectors. A non-positive limit disables
// storage; lookups then always miss.
func NewEmbeddingCache(limit int) *EmbeddingCache {
	return &EmbeddingCache{
		limit:  limit,
		order:  list.New(),
		byText: make(map[string]*list.Element),
	}
}

// Get returns a copy of the vector cached for text.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.byText[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return slices.Clone(el.Value.(*cached).vec), true
}

// Set caches a copy of vec for text and drops the least recently used vector past the limit.
func (c *EmbeddingCache) Set(text string, vec []float32) {
	if c.limit <= 0 || len(vec) == 0 {
		return
	}
	vec = slices.Clone(vec)
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.byText[text]; ok {
		el.Value.(*cached).vec = vec
		c.order.MoveToFront(el)
		return
	}
	c.byText[text] = c.order.PushFront(&cached{text: text, vec: vec})
	for c.order.Len() > c.limit {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.byText, last.Value.(*cached).text)
	}
}

// Len returns the number of cached vectors.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns entry, hit and miss counts.
func (c *EmbeddingCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: c.order.Len(), Hits: c.hits, Misses: c.misses}
}
