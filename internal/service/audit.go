package service

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"hashstake/dashboard/internal/models"
)

// TxStore persists the audit trail of submitted calls
type TxStore interface {
	CreateTxRecord(ctx context.Context, rec *models.TxRecord) error
	UpdateTxResult(ctx context.Context, id int64, status models.TxStatus, txHash, errorMsg string) error
	GetTxRecordsByAccount(ctx context.Context, account string, limit, offset int) ([]models.TxRecord, error)
	GetTxRecordsByOperation(ctx context.Context, operationID string) ([]models.TxRecord, error)
}

// AuditService handles the transaction audit trail
type AuditService struct {
	store  TxStore
	logger *zap.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(store TxStore, logger *zap.Logger) *AuditService {
	return &AuditService{
		store:  store,
		logger: logger.Named("audit"),
	}
}

// RecordSubmitted stores a call as submitted and returns its record
func (s *AuditService) RecordSubmitted(
	ctx context.Context,
	operationID string,
	from models.Account,
	call *models.Call,
) (*models.TxRecord, error) {
	rec := &models.TxRecord{
		OperationID: operationID,
		Account:     from.Address.Hex(),
		Contract:    call.To.Hex(),
		Method:      call.Method,
		Status:      models.TxStatusSubmitted,
	}
	rec.Tier, rec.Amount = callDetails(call)

	if err := s.store.CreateTxRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create tx record: %w", err)
	}

	s.logger.Debug("Transaction recorded",
		zap.Int64("id", rec.ID),
		zap.String("operation_id", operationID),
		zap.String("method", call.Method))

	return rec, nil
}

// RecordResult stores the final status of a recorded call
func (s *AuditService) RecordResult(ctx context.Context, rec *models.TxRecord, status models.TxStatus, txHash string, cause error) error {
	errorMsg := ""
	if cause != nil {
		errorMsg = cause.Error()
	}
	if err := s.store.UpdateTxResult(ctx, rec.ID, status, txHash, errorMsg); err != nil {
		return fmt.Errorf("failed to update tx record %d: %w", rec.ID, err)
	}
	rec.Status = status
	return nil
}

// ListByAccount returns the audit trail of an account, newest first
func (s *AuditService) ListByAccount(ctx context.Context, account string, limit, offset int) ([]models.TxRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.GetTxRecordsByAccount(ctx, account, limit, offset)
}

// ListByOperation returns the calls of one dashboard action in submission order
func (s *AuditService) ListByOperation(ctx context.Context, operationID string) ([]models.TxRecord, error) {
	return s.store.GetTxRecordsByOperation(ctx, operationID)
}

// callDetails extracts the tier and amount columns from a prepared call
func callDetails(call *models.Call) (*int, *string) {
	var tier *int
	var amount *string

	arg := func(i int) *big.Int {
		if i >= len(call.Args) {
			return nil
		}
		v, _ := call.Args[i].(*big.Int)
		return v
	}
	setTier := func(v *big.Int) {
		if v != nil {
			t := int(v.Int64())
			tier = &t
		}
	}
	setAmount := func(v *big.Int) {
		if v != nil {
			a := v.String()
			amount = &a
		}
	}

	switch call.Method {
	case "approve":
		setAmount(arg(1))
	case "stake":
		setAmount(arg(0))
		setTier(arg(1))
	case "fundRewards":
		setAmount(arg(0))
	case "claimReward", "unstake":
		setTier(arg(0))
	}
	return tier, amount
}
