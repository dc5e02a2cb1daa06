package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/piwcasokwa/backend/internal/config"
	"github.com/piwcasokwa/backend/internal/logger"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting site scheduler", zap.String("cleanupCron", cfg.Cleanup.Cron))

	// Create Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	scheduler, err := NewScheduler(cfg.Cleanup.Cron, asynqClient, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Invalid cleanup schedule", zap.Error(err))
	}
	scheduler.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down scheduler...")
	scheduler.Stop()
	logger.Logger.Info("Scheduler exited")
}
