package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/hibiken/asynq"
	"github.com/piwcasokwa/backend/internal/config"
	"github.com/piwcasokwa/backend/internal/logger"
	"github.com/piwcasokwa/backend/internal/push"
	"github.com/piwcasokwa/backend/internal/repositories"
	"github.com/piwcasokwa/backend/internal/services"
	"github.com/piwcasokwa/backend/internal/storage"
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

	logger.Logger.Info("Starting site worker")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	// Object storage for the cleanup sweep
	gateway, err := storage.NewS3Gateway(context.Background(), cfg.Storage, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Push delivery falls back to logging when no gateway is configured
	var pusher services.Pusher
	if cfg.Notifications.PushGatewayURL != "" {
		pusher = push.NewWebhookPusher(cfg.Notifications.PushGatewayURL, logger.Logger)
	} else {
		logger.Logger.Warn("PUSH_GATEWAY_URL is not set, notifications will only be logged")
		pusher = push.NewLogPusher(logger.Logger)
	}

	// Initialize repositories
	cleanupRepo := repositories.NewCleanupRepository(db, logger.Logger)
	deviceTokenRepo := repositories.NewDeviceTokenRepository(db, logger.Logger)

	// Initialize services; the worker never enqueues notifications itself
	cleanupService := services.NewCleanupService(cleanupRepo, gateway, cfg.Cleanup.BatchSize, logger.Logger)
	notificationService := services.NewNotificationService(nil, deviceTokenRepo, pusher, cfg.Notifications.SiteBaseURL, logger.Logger)

	// Create worker
	worker := NewWorker(logger.Logger, notificationService, cleanupService)

	// Create Asynq server
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default":     6,
				"maintenance": 1,
			},
		},
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	worker.Register(mux)

	// Start server in goroutine
	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Logger.Fatal("Failed to run worker server", zap.Error(err))
		}
	}()

	logger.Logger.Info("Worker started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down worker...")
	srv.Shutdown()
	logger.Logger.Info("Worker exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
