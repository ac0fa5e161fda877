package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hashstake/dashboard/internal/config"
	"hashstake/dashboard/internal/staking"
)

// Store is a byte-value cache with per-entry expiry
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// New opens the store selected by cfg: Redis when an address is set,
// otherwise an in-process LRU
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	if cfg.RedisAddr != "" {
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	return NewLRUStore(cfg.LRUSize)
}

// Snapshots keeps the last rendered dashboard of each account
type Snapshots struct {
	store Store
	ttl   time.Duration
}

// NewSnapshots creates a snapshot cache on store
func NewSnapshots(store Store, ttl time.Duration) *Snapshots {
	return &Snapshots{store: store, ttl: ttl}
}

func snapshotKey(account string) string {
	return "dashboard:" + account
}

// Put stores the dashboard view of account
func (s *Snapshots) Put(ctx context.Context, account string, view staking.DashboardView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return s.store.Set(ctx, snapshotKey(account), data, s.ttl)
}

// Get returns the last stored dashboard view of account
func (s *Snapshots) Get(ctx context.Context, account string) (*staking.DashboardView, bool, error) {
	data, ok, err := s.store.Get(ctx, snapshotKey(account))
	if err != nil || !ok {
		return nil, false, err
	}
	var view staking.DashboardView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &view, true, nil
}
