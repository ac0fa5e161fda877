package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"hashstake/dashboard/internal/models"
)

// Monitor polls the contracts and keeps the panel state fresh
type Monitor struct {
	manager *WorkerManager
	logger  *zap.Logger

	mu    sync.Mutex // serializes poll cycles
	polls int
}

// NewMonitor creates a new monitor
func NewMonitor(manager *WorkerManager) *Monitor {
	return &Monitor{
		manager: manager,
		logger:  manager.logger.Named("monitor"),
	}
}

// Run starts the monitor polling loop
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("Monitor started",
		zap.Duration("poll_interval", m.manager.cfg.PollInterval))

	ticker := time.NewTicker(m.manager.cfg.PollInterval)
	defer ticker.Stop()

	// Initial poll
	m.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Monitor stopping")
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// poll executes one refresh cycle, publishes the result and, every
// SnapshotEvery cycles, stores a pool snapshot
func (m *Monitor) poll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pollCtx, cancel := context.WithTimeout(ctx, MonitorTimeout)
	defer cancel()

	deps := m.manager.deps
	started := time.Now()

	err := deps.Panel.Refresh(pollCtx, m.manager.Account())
	if deps.Metrics != nil {
		deps.Metrics.PollDuration.Observe(time.Since(started).Seconds())
		if err != nil {
			deps.Metrics.PollErrors.Inc()
		}
	}
	if err != nil {
		m.logger.Warn("Refresh failed", zap.Error(err))
	} else {
		m.logger.Debug("Refresh complete", zap.Duration("took", time.Since(started)))
	}

	m.manager.publish(ctx)

	m.polls++
	if every := m.manager.cfg.SnapshotEvery; every > 0 && (m.polls-1)%every == 0 {
		m.storePoolSnapshot(pollCtx)
	}

	return err
}

// storePoolSnapshot persists the pool figures if both are known
func (m *Monitor) storePoolSnapshot(ctx context.Context) {
	store := m.manager.deps.PoolStore
	if store == nil {
		return
	}

	pool := m.manager.deps.Panel.Pool()
	if pool.TotalStaked == nil || pool.AvailableRewards == nil {
		return
	}

	snap := &models.PoolSnapshot{
		TotalStaked:      pool.TotalStaked.String(),
		AvailableRewards: pool.AvailableRewards.String(),
	}
	if err := store.CreatePoolSnapshot(ctx, snap); err != nil {
		m.logger.Error("Failed to store pool snapshot", zap.Error(err))
		return
	}

	m.logger.Debug("Pool snapshot stored",
		zap.Int64("id", snap.ID),
		zap.String("total_staked", snap.TotalStaked),
		zap.String("available_rewards", snap.AvailableRewards))

	deleted, err := store.PrunePoolSnapshots(ctx, PoolSnapshotKeep)
	if err != nil {
		m.logger.Warn("Failed to prune pool snapshots", zap.Error(err))
	} else if deleted > 0 {
		m.logger.Debug("Pool snapshots pruned", zap.Int64("deleted", deleted))
	}
}
