package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"hashstake/dashboard/internal/cache"
	"hashstake/dashboard/internal/config"
	"hashstake/dashboard/internal/metrics"
	"hashstake/dashboard/internal/models"
	"hashstake/dashboard/internal/staking"
)

// Constants for worker configuration
const (
	MonitorTimeout = 30 * time.Second
	PublishTimeout = 5 * time.Second

	// PoolSnapshotKeep bounds the stored pool history
	PoolSnapshotKeep = 10000
)

// PoolSnapshotStore persists pool readings
type PoolSnapshotStore interface {
	CreatePoolSnapshot(ctx context.Context, snap *models.PoolSnapshot) error
	PrunePoolSnapshots(ctx context.Context, keep int) (int64, error)
}

// Broadcaster pushes dashboard views to connected clients
type Broadcaster interface {
	Broadcast(view staking.DashboardView)
}

// Dependencies are the collaborators of the worker manager. Snapshots,
// PoolStore, Hub and Metrics are optional.
type Dependencies struct {
	Panel     *staking.Panel
	Wallet    staking.WalletProvider
	Snapshots *cache.Snapshots
	PoolStore PoolSnapshotStore
	Hub       Broadcaster
	Metrics   *metrics.Metrics
}

// WorkerManager orchestrates the background poller and the action executor
type WorkerManager struct {
	cfg    *config.WorkerConfig
	deps   Dependencies
	logger *zap.Logger

	// Worker components
	monitor  *Monitor
	executor *Executor

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(cfg *config.WorkerConfig, deps Dependencies, logger *zap.Logger) *WorkerManager {
	ctx, cancel := context.WithCancel(context.Background())

	wm := &WorkerManager{
		cfg:    cfg,
		deps:   deps,
		logger: logger.Named("worker"),
		ctx:    ctx,
		cancel: cancel,
	}

	wm.monitor = NewMonitor(wm)
	wm.executor = NewExecutor(wm)

	return wm
}

// Start starts all worker goroutines
func (wm *WorkerManager) Start() {
	wm.logger.Info("Starting worker manager",
		zap.Duration("poll_interval", wm.cfg.PollInterval),
		zap.Int("queue_size", wm.cfg.QueueSize))

	wm.wg.Add(1)
	go func() {
		defer wm.wg.Done()
		wm.monitor.Run(wm.ctx)
	}()

	wm.wg.Add(1)
	go func() {
		defer wm.wg.Done()
		wm.executor.Run(wm.ctx)
	}()

	wm.logger.Info("Worker manager started")
}

// Shutdown gracefully stops all workers
func (wm *WorkerManager) Shutdown(timeout time.Duration) error {
	wm.logger.Info("Shutting down worker manager")

	// Signal workers to stop
	wm.cancel()

	done := make(chan struct{})
	go func() {
		wm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wm.logger.Info("Workers stopped gracefully")
	case <-time.After(timeout):
		wm.logger.Warn("Worker shutdown timed out")
	}

	wm.logger.Info("Worker manager shutdown complete")
	return nil
}

// Panel returns the dashboard panel driven by the workers
func (wm *WorkerManager) Panel() *staking.Panel {
	return wm.deps.Panel
}

// Account returns the connected wallet account, nil when disconnected
func (wm *WorkerManager) Account() *models.Account {
	return wm.deps.Wallet.Account()
}

// Submit queues a dashboard action and returns its operation
func (wm *WorkerManager) Submit(action Action) (*Operation, error) {
	return wm.executor.Enqueue(action)
}

// Operation returns a queued or finished operation by id
func (wm *WorkerManager) Operation(id string) (*Operation, bool) {
	return wm.executor.Operation(id)
}

// RefreshNow runs one poll cycle immediately and returns its error
func (wm *WorkerManager) RefreshNow(ctx context.Context) error {
	return wm.monitor.poll(ctx)
}

// RefreshBoard re-reads stakes, summary and pool info and publishes the result
func (wm *WorkerManager) RefreshBoard(ctx context.Context) error {
	refreshCtx, cancel := context.WithTimeout(ctx, MonitorTimeout)
	defer cancel()

	err := wm.deps.Panel.RefreshBoard(refreshCtx, wm.Account())
	wm.publish(ctx)
	return err
}

// publish renders the current view and pushes it to the cache and the hub
func (wm *WorkerManager) publish(ctx context.Context) {
	acct := wm.Account()
	view := wm.deps.Panel.View(acct)

	if acct != nil && wm.deps.Snapshots != nil {
		pubCtx, cancel := context.WithTimeout(ctx, PublishTimeout)
		defer cancel()
		if err := wm.deps.Snapshots.Put(pubCtx, acct.Address.Hex(), view); err != nil {
			wm.logger.Warn("Failed to cache dashboard snapshot",
				zap.String("account", acct.Address.Hex()),
				zap.Error(err))
		}
	}

	if wm.deps.Hub != nil {
		wm.deps.Hub.Broadcast(view)
	}
}
