package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

type deviceTokenRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeviceTokenRepository creates a new push token repository
func NewDeviceTokenRepository(db *sql.DB, logger *zap.Logger) *deviceTokenRepository {
	return &deviceTokenRepository{
		db:     db,
		logger: logger,
	}
}

// Save stores a device token. Saving a known token only refreshes its timestamp.
func (r *deviceTokenRepository) Save(ctx context.Context, token string) error {
	query := `
		INSERT INTO fcm_tokens (token)
		VALUES (?)
		ON DUPLICATE KEY UPDATE updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		r.logger.Error("failed to save device token", zap.Error(err))
		return fmt.Errorf("failed to save device token: %w", err)
	}
	return nil
}

// ListTokens returns every registered device token
func (r *deviceTokenRepository) ListTokens(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT token FROM fcm_tokens ORDER BY created_at`)
	if err != nil {
		r.logger.Error("failed to query device tokens", zap.Error(err))
		return nil, fmt.Errorf("failed to query device tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]string, 0)
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			r.logger.Error("failed to scan device token", zap.Error(err))
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tokens, nil
}
