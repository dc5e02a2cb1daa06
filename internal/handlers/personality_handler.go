package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/piwcasokwa/backend/internal/models"
	"go.uber.org/zap"
)

// PersonalityService is the interface that wraps the personality-of-the-week activation.
type PersonalityService interface {
	// Method SetActive makes the personality the single active one, or clears it when "active" is false.
	//
	// Deactivating a personality that is not active is a no-op.
	// When concurrent changes win every retry models.ErrConcurrentUpdate is returned.
	SetActive(ctx context.Context, id string, active bool) (*models.ContentRecord, error)
	// Method GetActive returns the active personality or models.ErrRecordNotFound when none is.
	GetActive(ctx context.Context) (*models.ContentRecord, error)
}

// PersonalityHandler handles the active personality endpoints
type PersonalityHandler struct {
	BaseHandler
	service PersonalityService
	adminMw func(http.Handler) http.Handler
}

// NewPersonalityHandler creates a new personality handler
func NewPersonalityHandler(svc PersonalityService, logger *zap.Logger, adminMw func(http.Handler) http.Handler) *PersonalityHandler {
	return &PersonalityHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     svc,
		adminMw:     adminMw,
	}
}

// RegisterRoutes registers all personality handler routes
func (h *PersonalityHandler) RegisterRoutes(r chi.Router) {
	r.Get("/public/personality/active", h.GetActive)
	r.With(h.adminMw).Patch("/admin/personality_of_week/{id}/active", h.SetActive)
}

// GetActive handles GET /public/personality/active
// @Summary Get the personality of the week
// @Tags public
// @Produce json
// @Success 200 {object} object
// @Failure 404 {object} map[string]string "No active personality"
// @Router /public/personality/active [get]
func (h *PersonalityHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetActive(r.Context())
	if err != nil {
		respondDomainError(&h.BaseHandler, w, err, "failed to get active personality")
		return
	}

	h.RespondJSON(w, http.StatusOK, rec)
}

// SetActive handles PATCH /admin/personality_of_week/{id}/active
// @Summary Activate or deactivate a personality
// @Description Activating a personality deactivates the previous one atomically.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Personality ID"
// @Param request body models.FlagUpdate true "New is_active value"
// @Success 200 {object} object
// @Failure 400 {object} map[string]string "Missing value"
// @Failure 404 {object} map[string]string "Personality not found"
// @Failure 409 {object} map[string]string "Concurrent update"
// @Router /admin/personality_of_week/{id}/active [patch]
func (h *PersonalityHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.FlagUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		h.RespondError(w, http.StatusBadRequest, "value is required")
		return
	}

	rec, err := h.service.SetActive(r.Context(), id, *req.Value)
	if err != nil {
		respondDomainError(&h.BaseHandler, w, err, "failed to set active personality")
		return
	}

	h.RespondJSON(w, http.StatusOK, rec)
}
