package main

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/piwcasokwa/backend/internal/models"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// sweepUniqueness keeps overlapping cron ticks from queueing the same sweep twice
const sweepUniqueness = 10 * time.Minute

// TaskEnqueuer defines methods for task submission
type TaskEnqueuer interface {
	// EnqueueContext submits a task to the queue
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler enqueues the periodic cleanup sweep
type Scheduler struct {
	cron     *cron.Cron
	enqueuer TaskEnqueuer
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance and registers the sweep under "spec"
func NewScheduler(spec string, enqueuer TaskEnqueuer, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		enqueuer: enqueuer,
		logger:   logger,
	}

	if _, err := s.cron.AddFunc(spec, s.enqueueSweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop stops the scheduler and waits for a running enqueue to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) enqueueSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	task := asynq.NewTask(models.TaskCleanupSweep, nil)
	info, err := s.enqueuer.EnqueueContext(ctx, task,
		asynq.Queue("maintenance"),
		asynq.MaxRetry(0),
		asynq.Unique(sweepUniqueness),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		s.logger.Debug("Cleanup sweep already queued")
		return
	}
	if err != nil {
		s.logger.Error("Failed to enqueue cleanup sweep", zap.Error(err))
		return
	}

	s.logger.Info("Cleanup sweep enqueued", zap.String("taskID", info.ID))
}
