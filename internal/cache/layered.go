package cache

import "io"

// LayeredCache implements a two-layer cache (memory + persistent)
type LayeredCache struct {
	memory     Store
	persistent Store
}

// NewLayeredCache stacks a memory layer over a persistent one
func NewLayeredCache(memory, persistent Store) *LayeredCache {
	return &LayeredCache{
		memory:     memory,
		persistent: persistent,
	}
}

// Get retrieves a value from the cache (checks memory first, then persistent)
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	if val, found := c.persistent.Get(key); found {
		// Promote to memory
		_ = c.memory.Set(key, val)
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers
func (c *LayeredCache) Set(key string, value []byte) error {
	if err := c.memory.Set(key, value); err != nil {
		return err
	}
	return c.persistent.Set(key, value)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.persistent.Delete(key)
}

// Clear removes all values from both layers
func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.persistent.Clear()
}

// Len reports the persistent layer size, which is a superset of memory
func (c *LayeredCache) Len() int {
	return c.persistent.Len()
}

// Close closes the persistent layer if it holds resources
func (c *LayeredCache) Close() error {
	if closer, ok := c.persistent.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
