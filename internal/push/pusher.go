// Package push delivers notifications to registered devices
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/piwcasokwa/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second
	// maxTokensPerRequest matches the multicast limit of the messaging gateway
	maxTokensPerRequest = 500
)

type gatewayRequest struct {
	Tokens       []string                   `json:"tokens"`
	Notification models.NotificationPayload `json:"notification"`
}

type webhookPusher struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewWebhookPusher creates a pusher that posts notifications to a messaging gateway
func NewWebhookPusher(url string, logger *zap.Logger) *webhookPusher {
	return &webhookPusher{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
		logger:     logger,
	}
}

// Push sends the notification to every token, in batches the gateway accepts.
// The first failing batch aborts the push so the worker can retry it.
func (p *webhookPusher) Push(ctx context.Context, tokens []string, notification models.NotificationPayload) error {
	for start := 0; start < len(tokens); start += maxTokensPerRequest {
		end := min(start+maxTokensPerRequest, len(tokens))
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}
		if err := p.send(ctx, gatewayRequest{Tokens: tokens[start:end], Notification: notification}); err != nil {
			return err
		}
	}
	return nil
}

func (p *webhookPusher) send(ctx context.Context, body gatewayRequest) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	p.logger.Debug("push batch delivered", zap.Int("tokens", len(body.Tokens)))
	return nil
}

type logPusher struct {
	logger *zap.Logger
}

// NewLogPusher creates a pusher that only logs, used while no gateway is configured
func NewLogPusher(logger *zap.Logger) *logPusher {
	return &logPusher{logger: logger}
}

// Push logs the notification instead of delivering it
func (p *logPusher) Push(ctx context.Context, tokens []string, notification models.NotificationPayload) error {
	p.logger.Info("push gateway not configured, notification logged",
		zap.Int("tokens", len(tokens)),
		zap.String("title", notification.Title),
		zap.String("link", notification.Link),
	)
	return nil
}
