package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"hashstake/dashboard/internal/models"
	"hashstake/dashboard/internal/service"
	"hashstake/dashboard/internal/staking"
	"hashstake/dashboard/internal/units"
)

// ErrQueueFull is returned when the action queue has no room
var ErrQueueFull = errors.New("action queue is full")

// operationHistory bounds how many operations stay queryable
const operationHistory = 1024

// ActionKind names a dashboard action the executor can run
type ActionKind string

const (
	ActionStake       ActionKind = "stake"
	ActionClaim       ActionKind = "claim"
	ActionUnstake     ActionKind = "unstake"
	ActionApproveFund ActionKind = "approve_fund"
	ActionFund        ActionKind = "fund"
)

// Action is a request to run one dashboard action for the connected wallet
type Action struct {
	Kind   ActionKind
	Tier   models.TierID // tier actions only
	Amount string        // stake only, whole tokens
}

// lane is the in-flight slot an action occupies: one per tier plus one for funding
func (a Action) lane() string {
	switch a.Kind {
	case ActionStake, ActionClaim, ActionUnstake:
		return fmt.Sprintf("tier-%d", a.Tier)
	}
	return "fund"
}

// OperationStatus is the lifecycle state of a queued action
type OperationStatus string

const (
	OperationPending   OperationStatus = "PENDING"
	OperationRunning   OperationStatus = "RUNNING"
	OperationSucceeded OperationStatus = "SUCCEEDED"
	OperationFailed    OperationStatus = "FAILED"
)

// Operation tracks one queued action
type Operation struct {
	ID         string            `json:"id"`
	Kind       ActionKind        `json:"kind"`
	Tier       int               `json:"tier,omitempty"`
	Amount     string            `json:"amount,omitempty"`
	Status     OperationStatus   `json:"status"`
	Error      string            `json:"error,omitempty"`
	ErrorKind  staking.ErrorKind `json:"error_kind,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

type queued struct {
	id     string
	action Action
}

// Executor runs queued dashboard actions. Actions in different lanes run
// concurrently; a lane accepts a new action only after the previous one
// has finished.
type Executor struct {
	manager *WorkerManager
	logger  *zap.Logger
	queue   chan queued

	mu         sync.Mutex
	operations *lru.Cache // id -> *Operation
	busy       map[string]bool
	running    sync.WaitGroup
}

// NewExecutor creates a new action executor
func NewExecutor(manager *WorkerManager) *Executor {
	size := manager.cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	// lru.New only fails for a non-positive size
	operations, _ := lru.New(operationHistory)
	return &Executor{
		manager:    manager,
		logger:     manager.logger.Named("executor"),
		queue:      make(chan queued, size),
		operations: operations,
		busy:       make(map[string]bool),
	}
}

// Enqueue validates and queues an action. It fails with staking.ErrTxInFlight
// when the action's lane is busy and with ErrQueueFull when the queue is full.
func (e *Executor) Enqueue(action Action) (*Operation, error) {
	if err := validateAction(action); err != nil {
		return nil, err
	}

	lane := action.lane()
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.busy[lane] {
		return nil, staking.ErrTxInFlight
	}

	op := &Operation{
		ID:        service.NewOperationID(),
		Kind:      action.Kind,
		Tier:      int(action.Tier),
		Amount:    action.Amount,
		Status:    OperationPending,
		CreatedAt: time.Now(),
	}

	select {
	case e.queue <- queued{id: op.ID, action: action}:
	default:
		return nil, ErrQueueFull
	}

	e.busy[lane] = true
	e.operations.Add(op.ID, op)
	if m := e.manager.deps.Metrics; m != nil {
		m.ActionsQueued.Inc()
	}

	copied := *op
	return &copied, nil
}

// Operation returns a snapshot of an operation by id
func (e *Executor) Operation(id string) (*Operation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.operations.Get(id)
	if !ok {
		return nil, false
	}
	copied := *v.(*Operation)
	return &copied, true
}

// Run starts the executor loop
func (e *Executor) Run(ctx context.Context) {
	e.logger.Info("Executor started")

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Executor stopping, waiting for running actions")
			e.running.Wait()
			return
		case item := <-e.queue:
			if m := e.manager.deps.Metrics; m != nil {
				m.ActionsQueued.Dec()
			}
			e.running.Add(1)
			go func() {
				defer e.running.Done()
				e.handle(ctx, item)
			}()
		}
	}
}

// handle runs one action and records its outcome
func (e *Executor) handle(ctx context.Context, item queued) {
	e.setStatus(item.id, OperationRunning, nil)
	e.logger.Info("Running action",
		zap.String("operation_id", item.id),
		zap.String("kind", string(item.action.Kind)),
		zap.Int("tier", int(item.action.Tier)))

	err := e.run(service.WithOperationID(ctx, item.id), item.action)

	e.mu.Lock()
	delete(e.busy, item.action.lane())
	e.mu.Unlock()

	if err != nil {
		e.logger.Error("Action failed",
			zap.String("operation_id", item.id),
			zap.String("kind", string(item.action.Kind)),
			zap.Error(err))
		e.setStatus(item.id, OperationFailed, err)
	} else {
		e.logger.Info("Action succeeded",
			zap.String("operation_id", item.id),
			zap.String("kind", string(item.action.Kind)))
		e.setStatus(item.id, OperationSucceeded, nil)
	}

	e.manager.publish(ctx)
}

func (e *Executor) run(ctx context.Context, action Action) error {
	panel := e.manager.deps.Panel
	acct := e.manager.Account()

	switch action.Kind {
	case ActionApproveFund:
		return panel.ApproveFund(ctx, acct)
	case ActionFund:
		return panel.Fund(ctx, acct)
	}

	card, err := panel.Board().Card(action.Tier)
	if err != nil {
		return err
	}
	switch action.Kind {
	case ActionStake:
		return card.Stake(ctx, acct, action.Amount)
	case ActionClaim:
		return card.Claim(ctx, acct)
	case ActionUnstake:
		return card.Unstake(ctx, acct)
	}
	return fmt.Errorf("unknown action kind %q", action.Kind)
}

func (e *Executor) setStatus(id string, status OperationStatus, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.operations.Peek(id)
	if !ok {
		return
	}
	op := v.(*Operation)
	op.Status = status
	if err != nil {
		op.Error = err.Error()
		op.ErrorKind = staking.Classify(err)
	}
	if status == OperationSucceeded || status == OperationFailed {
		now := time.Now()
		op.FinishedAt = &now
	}
}

func validateAction(action Action) error {
	switch action.Kind {
	case ActionStake, ActionClaim, ActionUnstake:
		if !action.Tier.Valid() {
			return fmt.Errorf("%w: unknown tier %d", staking.ErrActionUnavailable, action.Tier)
		}
		if action.Kind == ActionStake && !units.IsPositiveAmount(action.Amount) {
			return fmt.Errorf("%w: stake amount %q", staking.ErrInvalidAmount, action.Amount)
		}
	case ActionApproveFund, ActionFund:
	default:
		return fmt.Errorf("unknown action kind %q", action.Kind)
	}
	return nil
}
