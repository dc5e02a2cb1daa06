package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	_ "github.com/piwcasokwa/backend/docs"
	"github.com/piwcasokwa/backend/internal/auth/middleware"
	"github.com/piwcasokwa/backend/internal/auth/service"
	"github.com/piwcasokwa/backend/internal/cache"
	"github.com/piwcasokwa/backend/internal/config"
	"github.com/piwcasokwa/backend/internal/handlers"
	"github.com/piwcasokwa/backend/internal/logger"
	loggerMiddleware "github.com/piwcasokwa/backend/internal/logger/middleware"
	sharedMiddleware "github.com/piwcasokwa/backend/internal/middlewares"
	"github.com/piwcasokwa/backend/internal/repositories"
	"github.com/piwcasokwa/backend/internal/services"
	"github.com/piwcasokwa/backend/internal/storage"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// @title PIWC Site API
// @version 1.0
// @description Content, media upload and contact API of the student association website

// @contact.name Webmaster
// @contact.email webmaster@piwc.example

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the admin JWT.
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Key for operational endpoints.
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

	logger.Logger.Info("Starting site API")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Cache errors fall through to the database
		logger.Logger.Warn("Redis is unavailable, public reads will not be cached", zap.Error(err))
	}

	// Create Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Connect to object storage
	gateway, err := storage.NewS3Gateway(ctx, cfg.Storage, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Mail transport is optional; without it the contact form answers 500
	var sender services.MailSender
	if cfg.SMTP.Configured() {
		sender = mail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	} else {
		logger.Logger.Warn("SMTP is not configured, the contact form is disabled")
	}

	// Initialize JWT token generator
	tokenGenerator := service.NewTokenGenerator(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// Initialize repositories
	documentRepo := repositories.NewDocumentRepository(db, logger.Logger)
	activeRecordRepo := repositories.NewActiveRecordRepository(db, logger.Logger)
	cleanupRepo := repositories.NewCleanupRepository(db, logger.Logger)
	adminRepo := repositories.NewAdminRepository(db, logger.Logger)
	deviceTokenRepo := repositories.NewDeviceTokenRepository(db, logger.Logger)

	// Initialize services
	publishedCache := cache.NewPublishedCache(rdb, cfg.Cache.TTL, logger.Logger)
	uploadService := services.NewUploadService(gateway, cleanupRepo, cfg.Storage.UploadExpiry, logger.Logger)
	cleanupService := services.NewCleanupService(cleanupRepo, gateway, cfg.Cleanup.BatchSize, logger.Logger)
	notificationService := services.NewNotificationService(asynqClient, deviceTokenRepo, nil, cfg.Notifications.SiteBaseURL, logger.Logger)
	personalityService := services.NewPersonalityService(documentRepo, activeRecordRepo, publishedCache, logger.Logger)
	contentService := services.NewContentService(
		documentRepo,
		publishedCache,
		cleanupService,
		notificationService,
		personalityService,
		logger.Logger,
	)
	emailService := services.NewEmailService(sender, cfg.SMTP.From, cfg.SMTP.ContactInbox, logger.Logger)

	// Initialize middlewares
	adminMiddleware := middleware.AdminMiddleware(tokenGenerator, adminRepo, logger.Logger)
	apiKeyMiddleware := middleware.APIKeyMiddleware(cfg.Ops.APIKey)
	contactLimit := httprate.LimitByIP(10, time.Minute)

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(uploadService, logger.Logger, adminMiddleware)
	emailHandler := handlers.NewEmailHandler(emailService, logger.Logger, contactLimit)
	contentHandler := handlers.NewContentHandler(contentService, logger.Logger, adminMiddleware)
	personalityHandler := handlers.NewPersonalityHandler(personalityService, logger.Logger, adminMiddleware)
	notificationHandler := handlers.NewNotificationHandler(notificationService, logger.Logger)
	opsHandler := handlers.NewOpsHandler(db, cleanupService, logger.Logger, apiKeyMiddleware)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(sharedMiddleware.RequestIDMiddleware)
	r.Use(loggerMiddleware.LoggerMiddleware(logger.Logger))
	r.Use(sharedMiddleware.RecoveryMiddleware(logger.Logger))
	r.Use(sharedMiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(sharedMiddleware.RequestSizeLimitMiddleware(10 * 1024 * 1024)) // 10MB

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	opsHandler.RegisterRoutes(r)
	uploadHandler.RegisterRoutes(r)
	emailHandler.RegisterRoutes(r)
	personalityHandler.RegisterRoutes(r)
	contentHandler.RegisterRoutes(r)
	notificationHandler.RegisterRoutes(r)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "site_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Get the working directory or use migrations folder relative to the binary
	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Try parent directories if running from cmd/api
		if _, err := os.Stat("../../migrations"); err == nil {
			migrationPath = "file://../../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(migrationPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
