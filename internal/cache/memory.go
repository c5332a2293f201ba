package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an unbounded in-process store. Entries never expire and
// are copied in and out, so callers cannot alter a stored score.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates an empty unbounded store
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: gocache.New(gocache.NoExpiration, 0)}
}

func (m *MemoryCache) Get(key string) ([]byte, bool) {
	raw, ok := m.items.Get(key)
	if !ok {
		return nil, false
	}
	stored, ok := raw.([]byte)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), stored...), true
}

func (m *MemoryCache) Set(key string, value []byte) error {
	m.items.SetDefault(key, append([]byte(nil), value...))
	return nil
}

func (m *MemoryCache) Delete(key string) error {
	m.items.Delete(key)
	return nil
}

// Clear drops every entry
func (m *MemoryCache) Clear() error {
	m.items.Flush()
	return nil
}

func (m *MemoryCache) Len() int {
	return m.items.ItemCount()
}
