package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/piwcasokwa/backend/internal/models"
	"go.uber.org/zap"
)

// NotificationService is the interface that wraps device registration for push notifications.
type NotificationService interface {
	// Method RegisterToken stores a device token. Registering a known token again is not an error.
	//
	// An empty token yields models.ErrMissingToken.
	RegisterToken(ctx context.Context, token string) error
}

// NotificationHandler handles push notification subscriptions
type NotificationHandler struct {
	BaseHandler
	service NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(svc NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     svc,
	}
}

// RegisterRoutes registers all notification handler routes
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/fcm-tokens", h.RegisterToken)
}

// RegisterToken handles POST /fcm-tokens
// @Summary Subscribe a device to notifications
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body models.RegisterTokenRequest true "Device token"
// @Success 201 {object} models.Message
// @Failure 400 {object} map[string]string "Token is required"
// @Router /fcm-tokens [post]
func (h *NotificationHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.RegisterToken(r.Context(), req.Token); err != nil {
		if errors.Is(err, models.ErrMissingToken) {
			h.RespondError(w, http.StatusBadRequest, "token is required")
			return
		}
		h.Logger.Error("failed to register device token", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.RespondMessage(w, http.StatusCreated, "token registered")
}
