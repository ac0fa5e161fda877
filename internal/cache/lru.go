package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type lruEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// LRUStore is an in-process Store with a bounded number of entries
type LRUStore struct {
	cache *lru.Cache
	now   func() time.Time
}

// NewLRUStore creates an LRU store holding at most size entries
func NewLRUStore(size int) (*LRUStore, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &LRUStore{cache: c, now: time.Now}, nil
}

// Get implements Store
func (s *LRUStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	entry := v.(lruEntry)
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.cache.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set implements Store
func (s *LRUStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := lruEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.cache.Add(key, entry)
	return nil
}

// Close implements Store
func (s *LRUStore) Close() error {
	s.cache.Purge()
	return nil
}
