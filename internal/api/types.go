package api

import (
	"time"

	"hashstake/dashboard/internal/models"
)

// ==================== Inputs ====================

// UpdateInputsRequest sets the dashboard input fields. Absent fields are left unchanged.
type UpdateInputsRequest struct {
	Amount     *string `json:"amount"`      // stake amount, whole tokens
	FundAmount *string `json:"fund_amount"` // reward pool funding amount, whole tokens
}

// ==================== Actions ====================

// StakeRequest is the body of a stake action
type StakeRequest struct {
	Amount string `json:"amount"` // whole tokens; falls back to the panel's stake input
}

// ==================== Transactions ====================

// TransactionView is one audited contract call
type TransactionView struct {
	ID          int64           `json:"id"`
	OperationID string          `json:"operation_id"`
	Account     string          `json:"account"`
	Contract    string          `json:"contract"`
	Method      string          `json:"method"`
	Tier        *int            `json:"tier,omitempty"`
	Amount      *string         `json:"amount,omitempty"` // in base units (18 decimals)
	Status      models.TxStatus `json:"status"`
	TxHash      *string         `json:"tx_hash,omitempty"`
	Error       *string         `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// GetTransactionsResponse represents response with an account's transactions
type GetTransactionsResponse struct {
	Transactions []TransactionView `json:"transactions"`
}

// ==================== Pool History ====================

// PoolSnapshotView is one stored pool reading
type PoolSnapshotView struct {
	TotalStaked      string    `json:"total_staked"`      // in base units (18 decimals)
	AvailableRewards string    `json:"available_rewards"` // in base units (18 decimals)
	TakenAt          time.Time `json:"taken_at"`
}

// GetPoolHistoryResponse represents response with pool snapshots, newest first
type GetPoolHistoryResponse struct {
	Snapshots []PoolSnapshotView `json:"snapshots"`
}

// ==================== Error Response ====================

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// ==================== Health Check ====================

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Connected bool   `json:"connected"`
}
