package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/piwcasokwa/backend/internal/models"
	"go.uber.org/zap"
)

// notificationBodyLimit caps the preview text shown on devices
const notificationBodyLimit = 140

// TaskEnqueuer is the interface that wraps task submission. *asynq.Client implements it.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// DeviceTokenRepository is the interface that wraps methods for push token data access
type DeviceTokenRepository interface {
	// Method Save stores a device token; saving a known token is not an error.
	Save(ctx context.Context, token string) error
	// Method ListTokens returns every registered device token.
	ListTokens(ctx context.Context) ([]string, error)
}

// Pusher is the interface that wraps delivery of a notification to devices
type Pusher interface {
	Push(ctx context.Context, tokens []string, notification models.NotificationPayload) error
}

type notificationService struct {
	enqueuer    TaskEnqueuer
	tokens      DeviceTokenRepository
	pusher      Pusher
	siteBaseURL string
	logger      *zap.Logger
}

// NewNotificationService creates a new notification service.
// The API process needs the enqueuer, the worker process needs the pusher; either may be nil where unused.
func NewNotificationService(enqueuer TaskEnqueuer, tokens DeviceTokenRepository, pusher Pusher, siteBaseURL string, logger *zap.Logger) *notificationService {
	return &notificationService{
		enqueuer:    enqueuer,
		tokens:      tokens,
		pusher:      pusher,
		siteBaseURL: siteBaseURL,
		logger:      logger,
	}
}

// RegisterToken stores a device token for future notifications
func (s *notificationService) RegisterToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.ErrMissingToken
	}
	return s.tokens.Save(ctx, token)
}

// ContentCreated enqueues a notification about a new announcement or news item.
// Enqueue failures are only logged; they never undo the creation.
func (s *notificationService) ContentCreated(ctx context.Context, rec *models.ContentRecord) {
	payload, ok := s.payloadFor(rec)
	if !ok {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal notification", zap.Error(err))
		return
	}

	task := asynq.NewTask(models.TaskNotificationDispatch, data)
	info, err := s.enqueuer.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.Timeout(time.Minute))
	if err != nil {
		s.logger.Error("failed to enqueue notification", zap.Error(err), zap.String("id", rec.ID))
		return
	}

	s.logger.Info("notification enqueued", zap.String("taskID", info.ID), zap.String("collection", string(rec.Collection)))
}

// Dispatch delivers a notification to every registered device
func (s *notificationService) Dispatch(ctx context.Context, payload models.NotificationPayload) error {
	tokens, err := s.tokens.ListTokens(ctx)
	if err != nil {
		return fmt.Errorf("failed to load device tokens: %w", err)
	}
	if len(tokens) == 0 {
		s.logger.Info("no devices registered, notification dropped", zap.String("title", payload.Title))
		return nil
	}

	if err := s.pusher.Push(ctx, tokens, payload); err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}

	s.logger.Info("notification pushed", zap.Int("devices", len(tokens)), zap.String("title", payload.Title))
	return nil
}

func (s *notificationService) payloadFor(rec *models.ContentRecord) (models.NotificationPayload, bool) {
	title, _ := rec.Fields["title"].(string)

	switch rec.Collection {
	case models.CollectionAnnouncements:
		body, _ := rec.Fields["body"].(string)
		return models.NotificationPayload{
			Title: "New announcement: " + title,
			Body:  truncate(body, notificationBodyLimit),
			Link:  s.siteBaseURL + "/announcements",
		}, true
	case models.CollectionNewsEvents:
		body, _ := rec.Fields["shortDescription"].(string)
		if body == "" {
			body, _ = rec.Fields["content"].(string)
		}
		kind := "News"
		if rec.Fields["category"] == "event" {
			kind = "Event"
		}
		return models.NotificationPayload{
			Title: kind + ": " + title,
			Body:  truncate(body, notificationBodyLimit),
			Link:  s.siteBaseURL + "/news-events/" + rec.ID,
		}, true
	default:
		return models.NotificationPayload{}, false
	}
}

func truncate(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
