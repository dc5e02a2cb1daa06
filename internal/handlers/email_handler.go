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

// EmailService is the interface that wraps the contact form delivery.
type EmailService interface {
	// Method SendContactMessage delivers a contact form submission to the association inbox.
	//
	// models.ErrMailNotConfigured is returned before any validation when SMTP is not set up.
	// Missing name, email or message yield models.ErrMissingContactFields.
	SendContactMessage(ctx context.Context, msg models.ContactMessage) error
}

// EmailHandler handles the public contact form
type EmailHandler struct {
	BaseHandler
	service EmailService
	limitMw func(http.Handler) http.Handler
}

// NewEmailHandler creates a new email handler. "limitMw" throttles submissions per client.
func NewEmailHandler(svc EmailService, logger *zap.Logger, limitMw func(http.Handler) http.Handler) *EmailHandler {
	return &EmailHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     svc,
		limitMw:     limitMw,
	}
}

// RegisterRoutes registers all email handler routes
func (h *EmailHandler) RegisterRoutes(r chi.Router) {
	r.With(h.limitMw).Post("/send-email", h.SendEmail)
}

// SendEmail handles POST /send-email
// @Summary Send a contact form message
// @Description Forwards a visitor message to the association inbox. Subject defaults to "General Inquiry".
// @Tags contact
// @Accept json
// @Produce json
// @Param request body models.ContactMessage true "Contact form"
// @Success 200 {object} models.Message
// @Failure 400 {object} map[string]string "Missing required fields"
// @Failure 429 {object} map[string]string "Too many requests"
// @Failure 500 {object} map[string]string "Email service not configured or send failed"
// @Router /send-email [post]
func (h *EmailHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var msg models.ContactMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.SendContactMessage(r.Context(), msg); err != nil {
		switch {
		case errors.Is(err, models.ErrMailNotConfigured):
			h.RespondError(w, http.StatusInternalServerError, "Email service is not configured on the server.")
		case errors.Is(err, models.ErrMissingContactFields):
			h.RespondError(w, http.StatusBadRequest, "Missing required fields: name, email, message")
		default:
			h.Logger.Error("failed to send email", zap.Error(err))
			h.RespondError(w, http.StatusInternalServerError, "Failed to send email")
		}
		return
	}

	h.RespondMessage(w, http.StatusOK, "Email sent successfully")
}
