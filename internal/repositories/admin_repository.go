package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

type adminRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdminRepository creates a new admin membership repository
func NewAdminRepository(db *sql.DB, logger *zap.Logger) *adminRepository {
	return &adminRepository{
		db:     db,
		logger: logger,
	}
}

// Exists checks whether the user ID belongs to an administrator
func (r *adminRepository) Exists(ctx context.Context, uid string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM admins WHERE uid = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, uid).Scan(&exists); err != nil {
		r.logger.Error("failed to check admin membership", zap.Error(err), zap.String("uid", uid))
		return false, fmt.Errorf("failed to check admin membership: %w", err)
	}

	return exists, nil
}
