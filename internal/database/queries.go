package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"hashstake/dashboard/internal/models"
)

// ==================== Transaction Queries ====================

// CreateTxRecord inserts a submitted call and fills in its id and creation time
func (db *DB) CreateTxRecord(ctx context.Context, rec *models.TxRecord) error {
	query := `
		INSERT INTO transactions (operation_id, account, contract, method, tier, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	return db.QueryRowContext(
		ctx, query,
		rec.OperationID,
		rec.Account,
		rec.Contract,
		rec.Method,
		rec.Tier,
		rec.Amount,
		rec.Status,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// UpdateTxResult records the outcome of a submitted call
func (db *DB) UpdateTxResult(ctx context.Context, id int64, status models.TxStatus, txHash, errorMsg string) error {
	query := `
		UPDATE transactions
		SET status = $1, tx_hash = COALESCE($2, tx_hash), error_message = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, status, ToNullString(txHash), ToNullString(errorMsg), id)
	return err
}

// GetTxRecordsByAccount lists the calls submitted for an account, newest first
func (db *DB) GetTxRecordsByAccount(ctx context.Context, account string, limit, offset int) ([]models.TxRecord, error) {
	var records []models.TxRecord
	query := `
		SELECT id, operation_id, account, contract, method, tier, amount::TEXT AS amount,
		       status, tx_hash, error_message, created_at
		FROM transactions
		WHERE account = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	err := db.SelectContext(ctx, &records, query, account, limit, offset)
	return records, err
}

// GetTxRecordsByOperation lists the calls of one dashboard action in submission order
func (db *DB) GetTxRecordsByOperation(ctx context.Context, operationID string) ([]models.TxRecord, error) {
	var records []models.TxRecord
	query := `
		SELECT id, operation_id, account, contract, method, tier, amount::TEXT AS amount,
		       status, tx_hash, error_message, created_at
		FROM transactions
		WHERE operation_id = $1
		ORDER BY id ASC
	`
	err := db.SelectContext(ctx, &records, query, operationID)
	return records, err
}

// ==================== Pool Snapshot Queries ====================

// CreatePoolSnapshot stores one reading of the pool figures
func (db *DB) CreatePoolSnapshot(ctx context.Context, snap *models.PoolSnapshot) error {
	query := `
		INSERT INTO pool_snapshots (total_staked, available_rewards)
		VALUES ($1, $2)
		RETURNING id, taken_at
	`
	return db.QueryRowContext(ctx, query, snap.TotalStaked, snap.AvailableRewards).
		Scan(&snap.ID, &snap.TakenAt)
}

// GetPoolSnapshots lists the most recent pool snapshots, newest first
func (db *DB) GetPoolSnapshots(ctx context.Context, limit int) ([]models.PoolSnapshot, error) {
	var snaps []models.PoolSnapshot
	query := `
		SELECT id, total_staked::TEXT AS total_staked, available_rewards::TEXT AS available_rewards, taken_at
		FROM pool_snapshots
		ORDER BY taken_at DESC
		LIMIT $1
	`
	err := db.SelectContext(ctx, &snaps, query, limit)
	return snaps, err
}

// PrunePoolSnapshots keeps the newest keep snapshots and deletes the rest
func (db *DB) PrunePoolSnapshots(ctx context.Context, keep int) (int64, error) {
	var deleted int64
	err := db.InTransaction(func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM pool_snapshots
			WHERE id NOT IN (
				SELECT id FROM pool_snapshots ORDER BY taken_at DESC LIMIT $1
			)
		`, keep)
		if err != nil {
			return fmt.Errorf("failed to prune pool snapshots: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}
