package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// BoundedCache keeps at most a fixed number of entries, evicting the least
// recently used
type BoundedCache struct {
	cache *lru.Cache[string, []byte]
}

// NewBoundedCache creates a cache holding up to maxEntries values
func NewBoundedCache(maxEntries int) (*BoundedCache, error) {
	c, err := lru.New[string, []byte](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &BoundedCache{cache: c}, nil
}

// Get retrieves a value and marks it recently used
func (c *BoundedCache) Get(key string) ([]byte, bool) {
	return c.cache.Get(key)
}

// Set stores a value, evicting the oldest entry when full
func (c *BoundedCache) Set(key string, value []byte) error {
	c.cache.Add(key, value)
	return nil
}

// Delete removes a value from the cache
func (c *BoundedCache) Delete(key string) error {
	c.cache.Remove(key)
	return nil
}

// Clear removes all values from the cache
func (c *BoundedCache) Clear() error {
	c.cache.Purge()
	return nil
}

// Len returns the number of cached entries
func (c *BoundedCache) Len() int {
	return c.cache.Len()
}
