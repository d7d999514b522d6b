// Package cache provides a thread-safe, bounded cache for compiled
// JMESPath expressions.
//
// On overflow, eviction drops a random half of the entries rather
// than tracking recency the way an LRU would. Go's math/rand stands
// in for Python's random.sample, which the reference jmespath.py
// parser uses for the same policy.
package cache

import (
	"math/rand"
	"sync"

	"github.com/sandrolain/jpath/pkg/ast"
)

// DefaultCapacity is the maximum entry count before an eviction pass
// runs.
const DefaultCapacity = 128

// Cache is a thread-safe bounded map from source text to compiled
// expression. Safe for concurrent use; concurrent writers may race on
// which entries an eviction pass removes, but never corrupt the map.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*ast.CompiledExpression
}

// New creates a Cache with the given capacity. capacity <= 0 falls
// back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{capacity: capacity, entries: make(map[string]*ast.CompiledExpression, capacity)}
}

// Get retrieves a previously compiled expression.
func (c *Cache) Get(key string) (*ast.CompiledExpression, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Set inserts or replaces an entry, evicting a random half of the
// cache first if this insert would exceed capacity.
func (c *Cache) Set(key string, expr *ast.CompiledExpression) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictHalfLocked()
	}
	c.entries[key] = expr
}

// GetOrCompile returns the cached expression for key, compiling and
// storing it via compile on a miss. compile is never called more than
// once per miss; compile errors are not cached.
func (c *Cache) GetOrCompile(key string, compile func() (*ast.CompiledExpression, error)) (*ast.CompiledExpression, error) {
	if expr, ok := c.Get(key); ok {
		return expr, nil
	}
	expr, err := compile()
	if err != nil {
		return nil, err
	}
	c.Set(key, expr)
	return expr, nil
}

// Purge clears every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*ast.CompiledExpression, c.capacity)
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictHalfLocked removes a random half of the cache. Must be called
// with c.mu held.
func (c *Cache) evictHalfLocked() {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	rand.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	for _, k := range keys[:len(keys)/2] {
		delete(c.entries, k)
	}
}
