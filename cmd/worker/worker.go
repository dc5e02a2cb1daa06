package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/piwcasokwa/backend/internal/models"
	"go.uber.org/zap"
)

// NotificationDispatcher defines the interface for push delivery
type NotificationDispatcher interface {
	// Dispatch delivers a notification to every registered device
	//
	// If some error occurs during delivery, the error will be returned.
	Dispatch(ctx context.Context, payload models.NotificationPayload) error
}

// CleanupSweeper defines the interface for the orphaned media sweep
type CleanupSweeper interface {
	// Sweep retries every pending object deletion once
	//
	// If the outbox cannot be read, the error will be returned together with "nil" value.
	Sweep(ctx context.Context) (*models.SweepResult, error)
}

// Worker handles task processing
type Worker struct {
	logger        *zap.Logger
	notifications NotificationDispatcher
	sweeper       CleanupSweeper
}

// NewWorker creates a new worker instance
func NewWorker(logger *zap.Logger, notifications NotificationDispatcher, sweeper CleanupSweeper) *Worker {
	return &Worker{
		logger:        logger,
		notifications: notifications,
		sweeper:       sweeper,
	}
}

// Register binds the task handlers to the mux
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(models.TaskNotificationDispatch, w.HandleNotificationDispatch)
	mux.HandleFunc(models.TaskCleanupSweep, w.HandleCleanupSweep)
}

// HandleNotificationDispatch handles push delivery of a content notification
func (w *Worker) HandleNotificationDispatch(ctx context.Context, t *asynq.Task) error {
	var payload models.NotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("Failed to unmarshal notification payload", zap.Error(err))
		// A malformed payload will never succeed
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	w.logger.Info("Dispatching notification", zap.String("title", payload.Title), zap.String("link", payload.Link))

	if err := w.notifications.Dispatch(ctx, payload); err != nil {
		w.logger.Error("Failed to dispatch notification", zap.Error(err), zap.String("title", payload.Title))
		return fmt.Errorf("failed to dispatch notification: %w", err)
	}

	return nil
}

// HandleCleanupSweep handles one reconciliation pass over the cleanup outbox
func (w *Worker) HandleCleanupSweep(ctx context.Context, t *asynq.Task) error {
	result, err := w.sweeper.Sweep(ctx)
	if err != nil {
		w.logger.Error("Failed to sweep cleanup outbox", zap.Error(err))
		return fmt.Errorf("failed to sweep cleanup outbox: %w", err)
	}

	w.logger.Info("Cleanup sweep finished",
		zap.Int("total", result.Total),
		zap.Int("cleaned", result.Cleaned),
		zap.Int("failed", result.Failed),
	)
	return nil
}
