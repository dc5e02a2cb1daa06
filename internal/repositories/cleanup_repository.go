package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/piwcasokwa/backend/internal/dbx"
	"github.com/piwcasokwa/backend/internal/models"
	"go.uber.org/zap"
)

// cleanupRepository is the outbox of stored objects that still have to be deleted
type cleanupRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCleanupRepository creates a new pending cleanup repository
func NewCleanupRepository(db *sql.DB, logger *zap.Logger) *cleanupRepository {
	return &cleanupRepository{
		db:     db,
		logger: logger,
	}
}

// Add queues objects for deletion and fills in their IDs
func (r *cleanupRepository) Add(ctx context.Context, items []models.PendingCleanup) error {
	if err := insertCleanups(ctx, r.db, items); err != nil {
		r.logger.Error("failed to queue cleanups", zap.Error(err), zap.Int("count", len(items)))
		return err
	}
	return nil
}

// ListPending returns the oldest unfinished cleanups, at most limit of them
func (r *cleanupRepository) ListPending(ctx context.Context, limit int) ([]models.PendingCleanup, error) {
	query := `
		SELECT id, object_key, public_url, reason, attempts, COALESCE(last_error, ''), created_at
		FROM pending_cleanups
		WHERE completed_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Error("failed to query pending cleanups", zap.Error(err))
		return nil, fmt.Errorf("failed to query pending cleanups: %w", err)
	}
	defer rows.Close()

	items := make([]models.PendingCleanup, 0)
	for rows.Next() {
		var item models.PendingCleanup
		if err := rows.Scan(
			&item.ID,
			&item.ObjectKey,
			&item.PublicURL,
			&item.Reason,
			&item.Attempts,
			&item.LastError,
			&item.CreatedAt,
		); err != nil {
			r.logger.Error("failed to scan pending cleanup", zap.Error(err))
			return nil, fmt.Errorf("failed to scan pending cleanup: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}

// MarkCompleted closes a cleanup once its object is gone
func (r *cleanupRepository) MarkCompleted(ctx context.Context, id int64) error {
	query := `
		UPDATE pending_cleanups
		SET completed_at = CURRENT_TIMESTAMP, attempts = attempts + 1, last_error = NULL
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		r.logger.Error("failed to complete cleanup", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("failed to complete cleanup: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt, leaving the cleanup pending
func (r *cleanupRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE pending_cleanups
		SET attempts = attempts + 1, last_error = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, reason, id); err != nil {
		r.logger.Error("failed to record cleanup failure", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("failed to record cleanup failure: %w", err)
	}
	return nil
}

// insertCleanups writes outbox rows through db or a caller's transaction
func insertCleanups(ctx context.Context, q dbx.DBTX, items []models.PendingCleanup) error {
	query := `
		INSERT INTO pending_cleanups (object_key, public_url, reason, created_at)
		VALUES (?, ?, ?, ?)
	`
	for i := range items {
		result, err := q.ExecContext(ctx, query, items[i].ObjectKey, items[i].PublicURL, items[i].Reason, items[i].CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert pending cleanup: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		items[i].ID = id
	}
	return nil
}
