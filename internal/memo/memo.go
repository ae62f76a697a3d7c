// Package memo provides content-hash keys and a caller-owned result cache for the
// analytics engine. The analyzers themselves stay stateless; whoever calls them
// decides whether to hold a Cache.
package memo

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DomainDashboard is the key domain of cached dashboards. The version suffix allows
// changing the encoding later.
const DomainDashboard = "trading-journal/dashboard/v1"

// Key hashes parts under a domain: SHA256(domain + 0x00 + json(parts)).
// encoding/json writes map keys sorted and struct fields in declaration order, so equal
// inputs always hash the same.
func Key(domain string, parts ...any) (string, error) {
	data, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("memo key %s: %w", domain, err)
	}
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Cache is a bounded map of computed results. Concurrent misses on the same key
// compute once. The zero value is not usable; call New.
type Cache[T any] struct {
	mu         sync.Mutex
	entries    map[string]T
	order      []string
	maxEntries int
	group      singleflight.Group

	hits   int
	misses int
}

// New returns a cache holding at most maxEntries results. A non-positive maxEntries
// means unbounded.
func New[T any](maxEntries int) *Cache[T] {
	return &Cache[T]{
		entries:    make(map[string]T),
		maxEntries: maxEntries,
	}
}

// Get returns the cached value for key.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// GetOrCompute returns the cached value for key, calling compute on a miss.
// Errors are returned to every waiting caller and are not cached.
func (c *Cache[T]) GetOrCompute(key string, compute func() (T, error)) (T, error) {
	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return v, nil
	}
	c.misses++
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		val, err := compute()
		if err != nil {
			return val, err
		}
		c.put(key, val)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *Cache[T]) put(key string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = v
	for c.maxEntries > 0 && len(c.order) > c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Len returns the number of cached results.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *Cache[T]) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Clear drops every cached result.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]T)
	c.order = nil
}
