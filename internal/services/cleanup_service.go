package services

import (
	"context"
	"errors"
	"time"

	"github.com/piwcasokwa/backend/internal/models"
	"github.com/piwcasokwa/backend/internal/storage"
	"go.uber.org/zap"
)

type cleanupService struct {
	repo      CleanupRepository
	gateway   ObjectGateway
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

// NewCleanupService creates the service that releases stored media and reconciles the cleanup outbox
func NewCleanupService(repo CleanupRepository, gateway ObjectGateway, batchSize int, logger *zap.Logger) *cleanupService {
	return &cleanupService{
		repo:      repo,
		gateway:   gateway,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// PlanRelease turns media URLs into outbox entries.
// URLs outside the media bucket are logged and skipped since they are not ours to delete.
func (s *cleanupService) PlanRelease(urls []string, reason string) []models.PendingCleanup {
	items := make([]models.PendingCleanup, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, url := range urls {
		key, err := s.gateway.KeyFromPublicURL(url)
		if err != nil {
			s.logger.Warn("skipping media outside the bucket", zap.String("url", url))
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, models.PendingCleanup{
			ObjectKey: key,
			PublicURL: url,
			Reason:    reason,
			CreatedAt: s.now().UTC(),
		})
	}
	return items
}

// Release makes one immediate attempt to delete each queued object.
// Failures stay in the outbox for the sweeper; Release itself never fails.
func (s *cleanupService) Release(ctx context.Context, items []models.PendingCleanup) {
	for _, item := range items {
		s.attempt(ctx, item)
	}
}

// Sweep retries a batch of pending cleanups
func (s *cleanupService) Sweep(ctx context.Context) (*models.SweepResult, error) {
	items, err := s.repo.ListPending(ctx, s.batchSize)
	if err != nil {
		return nil, err
	}

	result := &models.SweepResult{Total: len(items)}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if s.attempt(ctx, item) {
			result.Cleaned++
		} else {
			result.Failed++
		}
	}

	s.logger.Info("cleanup sweep finished",
		zap.Int("total", result.Total),
		zap.Int("cleaned", result.Cleaned),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// attempt deletes one object and records the outcome. A missing object counts as cleaned.
func (s *cleanupService) attempt(ctx context.Context, item models.PendingCleanup) bool {
	err := s.gateway.Delete(ctx, item.ObjectKey)
	if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.logger.Warn("orphaned object left in store", zap.Error(err), zap.String("key", item.ObjectKey))
		if item.ID != 0 {
			if merr := s.repo.MarkFailed(ctx, item.ID, err.Error()); merr != nil {
				s.logger.Error("failed to record cleanup attempt", zap.Error(merr), zap.Int64("id", item.ID))
			}
		}
		return false
	}

	if item.ID != 0 {
		if merr := s.repo.MarkCompleted(ctx, item.ID); merr != nil {
			s.logger.Error("failed to complete cleanup", zap.Error(merr), zap.Int64("id", item.ID))
		}
	}
	return true
}
