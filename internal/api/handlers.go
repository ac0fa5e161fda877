package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"hashstake/dashboard/internal/models"
	"hashstake/dashboard/internal/staking"
	"hashstake/dashboard/internal/worker"
)

// Dashboard is the worker-side surface the handlers drive
type Dashboard interface {
	Panel() *staking.Panel
	Account() *models.Account
	Submit(action worker.Action) (*worker.Operation, error)
	Operation(id string) (*worker.Operation, bool)
	RefreshNow(ctx context.Context) error
	RefreshBoard(ctx context.Context) error
}

// TxHistory reads the transaction audit trail
type TxHistory interface {
	ListByAccount(ctx context.Context, account string, limit, offset int) ([]models.TxRecord, error)
	ListByOperation(ctx context.Context, operationID string) ([]models.TxRecord, error)
}

// SnapshotReader reads published dashboard views
type SnapshotReader interface {
	Get(ctx context.Context, account string) (*staking.DashboardView, bool, error)
}

// PoolHistory reads stored pool snapshots
type PoolHistory interface {
	GetPoolSnapshots(ctx context.Context, limit int) ([]models.PoolSnapshot, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	dashboard Dashboard
	history   TxHistory
	snapshots SnapshotReader
	pool      PoolHistory
	logger    *zap.Logger
}

// NewHandler creates a new API handler. history, snapshots and pool may be
// nil; their endpoints then answer 503.
func NewHandler(
	dashboard Dashboard,
	history TxHistory,
	snapshots SnapshotReader,
	pool PoolHistory,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		dashboard: dashboard,
		history:   history,
		snapshots: snapshots,
		pool:      pool,
		logger:    logger,
	}
}

// ==================== Health Check ====================

// HandleHealth returns service health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Version:   "1.0.0",
		Connected: h.dashboard.Account() != nil,
	}
	respondJSON(w, http.StatusOK, response)
}

// ==================== Dashboard ====================

// HandleGetDashboard handles GET /api/v1/dashboard
// Renders the current dashboard for the connected wallet
func (h *Handler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.view())
}

// HandleUpdateInputs handles POST /api/v1/inputs
// Sets the stake and fund amount fields and returns the re-rendered dashboard
func (h *Handler) HandleUpdateInputs(w http.ResponseWriter, r *http.Request) {
	var req UpdateInputsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", zap.Error(err))
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	panel := h.dashboard.Panel()
	if req.Amount != nil {
		panel.OnAmountChange(*req.Amount)
	}
	if req.FundAmount != nil {
		panel.SetFundAmount(*req.FundAmount)
	}

	respondJSON(w, http.StatusOK, h.view())
}

// HandleRefresh handles POST /api/v1/refresh
// Re-reads every contract value and returns the dashboard
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.dashboard.RefreshNow(r.Context()); err != nil {
		h.logger.Warn("Refresh failed", zap.Error(err))
		respondActionError(w, "Failed to refresh dashboard", err)
		return
	}
	respondJSON(w, http.StatusOK, h.view())
}

// HandleRefreshBoard handles POST /api/v1/refresh/board
// Re-reads stakes, summary and pool info and returns the dashboard
func (h *Handler) HandleRefreshBoard(w http.ResponseWriter, r *http.Request) {
	if err := h.dashboard.RefreshBoard(r.Context()); err != nil {
		h.logger.Warn("Board refresh failed", zap.Error(err))
		respondActionError(w, "Failed to refresh stakes", err)
		return
	}
	respondJSON(w, http.StatusOK, h.view())
}

func (h *Handler) view() staking.DashboardView {
	return h.dashboard.Panel().View(h.dashboard.Account())
}

// ==================== Actions ====================

// HandleTierAction handles POST /api/v1/tiers/{tierId}/{action}
// Queues a stake, claim or unstake on one tier
func (h *Handler) HandleTierAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	tierID, err := strconv.Atoi(vars["tierId"])
	if err != nil || !models.TierID(tierID).Valid() {
		respondError(w, http.StatusNotFound, "Tier not found", nil)
		return
	}

	action := worker.Action{
		Kind: worker.ActionKind(vars["action"]),
		Tier: models.TierID(tierID),
	}

	if action.Kind == worker.ActionStake {
		var req StakeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		action.Amount = req.Amount
		if action.Amount == "" {
			action.Amount = h.dashboard.Panel().Amount()
		}
	}

	h.submit(w, action)
}

// HandleApproveFund handles POST /api/v1/fund/approve
func (h *Handler) HandleApproveFund(w http.ResponseWriter, r *http.Request) {
	h.submit(w, worker.Action{Kind: worker.ActionApproveFund})
}

// HandleFund handles POST /api/v1/fund
func (h *Handler) HandleFund(w http.ResponseWriter, r *http.Request) {
	h.submit(w, worker.Action{Kind: worker.ActionFund})
}

func (h *Handler) submit(w http.ResponseWriter, action worker.Action) {
	if h.dashboard.Account() == nil {
		respondActionError(w, "Wallet not connected", staking.ErrNoAccount)
		return
	}

	op, err := h.dashboard.Submit(action)
	if err != nil {
		h.logger.Warn("Action not queued",
			zap.String("kind", string(action.Kind)),
			zap.Int("tier", int(action.Tier)),
			zap.Error(err))
		respondActionError(w, "Action not queued", err)
		return
	}

	h.logger.Info("Action queued",
		zap.String("operation_id", op.ID),
		zap.String("kind", string(action.Kind)),
		zap.Int("tier", int(action.Tier)))

	respondJSON(w, http.StatusAccepted, op)
}

// HandleGetOperation handles GET /api/v1/operations/{id}
func (h *Handler) HandleGetOperation(w http.ResponseWriter, r *http.Request) {
	op, ok := h.dashboard.Operation(mux.Vars(r)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "Operation not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, op)
}

// ==================== Transactions ====================

// HandleGetTransactions handles GET /api/v1/transactions
// Lists audited calls by operation_id, or for an account (default: the connected wallet)
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "Transaction history not available", nil)
		return
	}

	query := r.URL.Query()

	var records []models.TxRecord
	var err error
	if opID := query.Get("operation_id"); opID != "" {
		records, err = h.history.ListByOperation(r.Context(), opID)
	} else {
		account, ok := h.accountParam(query.Get("account"))
		if !ok {
			respondError(w, http.StatusBadRequest, "A valid account is required", nil)
			return
		}

		// Parse pagination parameters (optional)
		limit := 50 // default
		offset := 0 // default

		if limitStr := query.Get("limit"); limitStr != "" {
			if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
				limit = parsedLimit
			}
		}

		if offsetStr := query.Get("offset"); offsetStr != "" {
			if parsedOffset, err := strconv.Atoi(offsetStr); err == nil && parsedOffset >= 0 {
				offset = parsedOffset
			}
		}

		records, err = h.history.ListByAccount(r.Context(), account, limit, offset)
	}
	if err != nil {
		h.logger.Error("Failed to get transactions", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get transactions", err)
		return
	}

	views := make([]TransactionView, 0, len(records))
	for _, rec := range records {
		views = append(views, TransactionView{
			ID:          rec.ID,
			OperationID: rec.OperationID,
			Account:     rec.Account,
			Contract:    rec.Contract,
			Method:      rec.Method,
			Tier:        rec.Tier,
			Amount:      rec.Amount,
			Status:      rec.Status,
			TxHash:      rec.TxHash,
			Error:       rec.ErrorMessage,
			CreatedAt:   rec.CreatedAt,
		})
	}

	respondJSON(w, http.StatusOK, GetTransactionsResponse{Transactions: views})
}

// accountParam returns the checksummed account named by raw, or the
// connected wallet when raw is empty
func (h *Handler) accountParam(raw string) (string, bool) {
	if raw == "" {
		acct := h.dashboard.Account()
		if acct == nil {
			return "", false
		}
		return acct.Address.Hex(), true
	}
	if !common.IsHexAddress(raw) {
		return "", false
	}
	return common.HexToAddress(raw).Hex(), true
}

// ==================== Snapshots ====================

// HandleGetSnapshot handles GET /api/v1/snapshots/{address}
// Returns the last dashboard view published for an account
func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		respondError(w, http.StatusServiceUnavailable, "Snapshots not available", nil)
		return
	}

	address := mux.Vars(r)["address"]
	if !common.IsHexAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid address", nil)
		return
	}

	view, ok, err := h.snapshots.Get(r.Context(), common.HexToAddress(address).Hex())
	if err != nil {
		h.logger.Error("Failed to get snapshot",
			zap.String("address", address),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get snapshot", err)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "Snapshot not found", nil)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// ==================== Pool History ====================

// HandleGetPoolHistory handles GET /api/v1/pool/history
func (h *Handler) HandleGetPoolHistory(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		respondError(w, http.StatusServiceUnavailable, "Pool history not available", nil)
		return
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 1000 {
			limit = parsedLimit
		}
	}

	snaps, err := h.pool.GetPoolSnapshots(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to get pool snapshots", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get pool history", err)
		return
	}

	views := make([]PoolSnapshotView, 0, len(snaps))
	for _, s := range snaps {
		views = append(views, PoolSnapshotView{
			TotalStaked:      s.TotalStaked,
			AvailableRewards: s.AvailableRewards,
			TakenAt:          s.TakenAt,
		})
	}

	respondJSON(w, http.StatusOK, GetPoolHistoryResponse{Snapshots: views})
}

// ==================== Helper Functions ====================

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log error but can't send response since headers already written
		fmt.Printf("Failed to encode JSON response: %v\n", err)
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = fmt.Sprintf("%s: %v", message, err)
	}

	response := ErrorResponse{
		Error:   message,
		Message: errorMsg,
	}

	respondJSON(w, statusCode, response)
}

// respondActionError sends an error response whose status and kind follow the error's classification
func respondActionError(w http.ResponseWriter, message string, err error) {
	kind := staking.Classify(err)
	if errors.Is(err, worker.ErrQueueFull) {
		kind = staking.KindBusy
	}

	respondJSON(w, statusForError(err), ErrorResponse{
		Error:   message,
		Kind:    string(kind),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}

// statusForError maps an action error to an HTTP status code
func statusForError(err error) int {
	if errors.Is(err, worker.ErrQueueFull) {
		return http.StatusServiceUnavailable
	}
	switch staking.Classify(err) {
	case staking.KindInvalidAmount:
		return http.StatusBadRequest
	case staking.KindTransactionRejected:
		return http.StatusForbidden
	case staking.KindTransactionFailed:
		return http.StatusBadGateway
	case staking.KindDataUnavailable:
		return http.StatusServiceUnavailable
	case staking.KindBusy, staking.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
