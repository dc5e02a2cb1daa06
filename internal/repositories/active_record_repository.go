package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/piwcasokwa/backend/internal/dbx"
	"github.com/piwcasokwa/backend/internal/models"
	"go.uber.org/zap"
)

// activeRecordRepository stores one pointer row per exclusive collection.
// The pointer is the only place the active record is recorded, so at most one record can be active.
type activeRecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActiveRecordRepository creates a new active pointer repository
func NewActiveRecordRepository(db *sql.DB, logger *zap.Logger) *activeRecordRepository {
	return &activeRecordRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the pointer of a collection. A collection that never had an active record
// yields an empty pointer with version 0.
func (r *activeRecordRepository) Get(ctx context.Context, collection models.Collection) (*models.ActivePointer, error) {
	query := `SELECT record_id, version FROM active_records WHERE collection = ?`

	pointer := &models.ActivePointer{Collection: collection}
	var recordID sql.NullString
	err := r.db.QueryRowContext(ctx, query, collection).Scan(&recordID, &pointer.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return pointer, nil
	}
	if err != nil {
		r.logger.Error("failed to query active pointer", zap.Error(err), zap.String("collection", string(collection)))
		return nil, fmt.Errorf("failed to query active pointer: %w", err)
	}

	if recordID.Valid {
		pointer.RecordID = &recordID.String
	}
	return pointer, nil
}

// CompareAndSet moves the pointer to recordID (nil clears it) only if its version is still expectedVersion.
// It reports false when another writer got there first.
func (r *activeRecordRepository) CompareAndSet(ctx context.Context, collection models.Collection, recordID *string, expectedVersion int64) (bool, error) {
	var (
		result sql.Result
		err    error
	)
	if expectedVersion == 0 {
		// First activation creates the row; a concurrent creator makes this a no-op
		result, err = r.db.ExecContext(ctx, `
			INSERT IGNORE INTO active_records (collection, record_id, version)
			VALUES (?, ?, 1)
		`, collection, nullableString(recordID))
	} else {
		result, err = r.db.ExecContext(ctx, `
			UPDATE active_records
			SET record_id = ?, version = version + 1
			WHERE collection = ? AND version = ?
		`, nullableString(recordID), collection, expectedVersion)
	}
	if err != nil {
		r.logger.Error("failed to swap active pointer", zap.Error(err), zap.String("collection", string(collection)))
		return false, fmt.Errorf("failed to swap active pointer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// setActivePointer unconditionally points the collection at recordID inside a caller's transaction
func setActivePointer(ctx context.Context, tx dbx.DBTX, collection models.Collection, recordID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO active_records (collection, record_id, version)
		VALUES (?, ?, 1)
		ON DUPLICATE KEY UPDATE record_id = VALUES(record_id), version = version + 1
	`, collection, recordID)
	if err != nil {
		return fmt.Errorf("failed to set active pointer: %w", err)
	}
	return nil
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
