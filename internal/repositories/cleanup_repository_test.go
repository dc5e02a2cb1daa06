package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/piwcasokwa/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupCleanupTestRepository creates a pending cleanup repository with a mock database
func setupCleanupTestRepository(t *testing.T) (*cleanupRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewCleanupRepository(db, zap.NewNop())

	cleanup := func() {
		db.Close()
	}

	return repo, mock, cleanup
}

func TestCleanupRepository_Add(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		repo, mock, cleanup := setupCleanupTestRepository(t)
		defer cleanup()

		items := []models.PendingCleanup{{
			ObjectKey: "gallery/1_a.jpg",
			PublicURL: "https://storage.googleapis.com/site/gallery/1_a.jpg",
			Reason:    models.CleanupReasonDeleteFailed,
			CreatedAt: now,
		}}
		mock.ExpectExec(`INSERT INTO pending_cleanups`).
			WithArgs("gallery/1_a.jpg", "https://storage.googleapis.com/site/gallery/1_a.jpg", models.CleanupReasonDeleteFailed, now).
			WillReturnResult(sqlmock.NewResult(42, 1))

		require.NoError(t, repo.Add(context.Background(), items))
		assert.Equal(t, int64(42), items[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		repo, mock, cleanup := setupCleanupTestRepository(t)
		defer cleanup()

		mock.ExpectExec(`INSERT INTO pending_cleanups`).
			WillReturnError(errors.New("database error"))

		err := repo.Add(context.Background(), []models.PendingCleanup{{ObjectKey: "k", CreatedAt: now}})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCleanupRepository_ListPending(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{"id", "object_key", "public_url", "reason", "attempts", "last_error", "created_at"}

	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError bool
		expectedCount int
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(columns).
					AddRow(1, "gallery/1_a.jpg", "u1", models.CleanupReasonRecordDeleted, 0, "", now).
					AddRow(2, "news/2_b.jpg", "u2", models.CleanupReasonDeleteFailed, 3, "timeout", now)
				mock.ExpectQuery(`SELECT (.+) FROM pending_cleanups WHERE completed_at IS NULL`).
					WithArgs(50).
					WillReturnRows(rows)
			},
			expectedCount: 2,
		},
		{
			name: "query error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM pending_cleanups`).
					WillReturnError(errors.New("database error"))
			},
			expectedError: true,
		},
		{
			name: "scan error",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(columns).
					AddRow("invalid", "k", "u", "r", 0, "", now)
				mock.ExpectQuery(`FROM pending_cleanups`).WillReturnRows(rows)
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupCleanupTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			items, err := repo.ListPending(context.Background(), 50)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, items, tt.expectedCount)
				assert.Equal(t, "timeout", items[1].LastError)
				assert.Equal(t, 3, items[1].Attempts)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCleanupRepository_MarkCompleted(t *testing.T) {
	repo, mock, cleanup := setupCleanupTestRepository(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE pending_cleanups SET completed_at = CURRENT_TIMESTAMP`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE pending_cleanups SET completed_at`).
		WillReturnError(errors.New("database error"))

	assert.NoError(t, repo.MarkCompleted(context.Background(), 9))
	assert.Error(t, repo.MarkCompleted(context.Background(), 10))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupRepository_MarkFailed(t *testing.T) {
	repo, mock, cleanup := setupCleanupTestRepository(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE pending_cleanups SET attempts = attempts \+ 1, last_error = \?`).
		WithArgs("access denied", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.MarkFailed(context.Background(), 9, "access denied"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
