package oem

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/WessleyAI/wessley-dtc/engine/dtc"
)

// CachedStore caches positive lookups in front of another Store. Misses are
// never cached so a newly curated code is visible on the next request.
type CachedStore struct {
	next  Store
	cache *lru.Cache[string, dtc.Definition]
}

// NewCachedStore wraps next with an LRU of the given size.
func NewCachedStore(next Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, dtc.Definition](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{next: next, cache: c}, nil
}

// Lookup implements Store.
func (s *CachedStore) Lookup(ctx context.Context, make_, code string) (*dtc.Definition, error) {
	m, c, ok := lookupKey(make_, code)
	if !ok {
		return nil, nil
	}
	key := m + "\x00" + c
	if d, ok := s.cache.Get(key); ok {
		return &d, nil
	}
	d, err := s.next.Lookup(ctx, m, c)
	if err != nil || d == nil {
		return d, err
	}
	s.cache.Add(key, *d)
	return d, nil
}

// Insert implements Store.
func (s *CachedStore) Insert(ctx context.Context, e Entry) (bool, error) {
	return s.next.Insert(ctx, e)
}

// Len returns the number of cached definitions.
func (s *CachedStore) Len() int { return s.cache.Len() }

// Close closes the wrapped store.
func (s *CachedStore) Close() error { return s.next.Close() }
