package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hashstake/dashboard/internal/metrics"
	"hashstake/dashboard/internal/models"
	"hashstake/dashboard/internal/staking"
)

type operationKey struct{}

// WithOperationID tags ctx with the id of the dashboard action it belongs to
func WithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationKey{}, id)
}

// OperationID returns the action id carried by ctx, if any
func OperationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(operationKey{}).(string)
	return id, ok && id != ""
}

// NewOperationID returns a fresh action id
func NewOperationID() string {
	return uuid.New().String()
}

// RecordingSubmitter decorates a submitter with the audit trail and metrics.
// Audit failures are logged and never fail the transaction.
type RecordingSubmitter struct {
	next    staking.Submitter
	audit   *AuditService
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRecordingSubmitter wraps next. audit and m may be nil.
func NewRecordingSubmitter(next staking.Submitter, audit *AuditService, m *metrics.Metrics, logger *zap.Logger) *RecordingSubmitter {
	return &RecordingSubmitter{
		next:    next,
		audit:   audit,
		metrics: m,
		logger:  logger.Named("submitter"),
	}
}

// SubmitAndWait implements staking.Submitter
func (s *RecordingSubmitter) SubmitAndWait(ctx context.Context, from models.Account, call *models.Call) (*models.Receipt, error) {
	opID, ok := OperationID(ctx)
	if !ok {
		opID = NewOperationID()
	}
	started := time.Now()

	var rec *models.TxRecord
	if s.audit != nil {
		var err error
		rec, err = s.audit.RecordSubmitted(ctx, opID, from, call)
		if err != nil {
			s.logger.Warn("Failed to record submitted transaction",
				zap.String("operation_id", opID),
				zap.String("method", call.Method),
				zap.Error(err))
		}
	}

	receipt, err := s.next.SubmitAndWait(ctx, from, call)
	status := resultStatus(err)

	if s.metrics != nil {
		s.metrics.ObserveTx(call.Method, string(status), started)
	}

	if rec != nil {
		txHash := ""
		if receipt != nil {
			txHash = receipt.TxHash.Hex()
		}
		// The caller's context may already be done; the outcome is still recorded.
		auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if auditErr := s.audit.RecordResult(auditCtx, rec, status, txHash, err); auditErr != nil {
			s.logger.Warn("Failed to record transaction result",
				zap.String("operation_id", opID),
				zap.Error(auditErr))
		}
		cancel()
	}

	return receipt, err
}

func resultStatus(err error) models.TxStatus {
	switch {
	case err == nil:
		return models.TxStatusConfirmed
	case errors.Is(err, staking.ErrTransactionRejected):
		return models.TxStatusRejected
	}
	return models.TxStatusFailed
}
