package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/piwcasokwa/backend/internal/models"
	"go.uber.org/zap"
)

// Pinger is the interface that wraps a dependency health check
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CleanupSweeper is the interface that wraps one reconciliation pass of the media cleanup outbox.
type CleanupSweeper interface {
	// Method Sweep retries pending object deletions and reports how many were cleaned.
	Sweep(ctx context.Context) (*models.SweepResult, error)
}

// OpsHandler handles health checks and operational endpoints
type OpsHandler struct {
	BaseHandler
	db       Pinger
	sweeper  CleanupSweeper
	apiKeyMw func(http.Handler) http.Handler
}

// NewOpsHandler creates a new ops handler
func NewOpsHandler(db Pinger, sweeper CleanupSweeper, logger *zap.Logger, apiKeyMw func(http.Handler) http.Handler) *OpsHandler {
	return &OpsHandler{
		BaseHandler: BaseHandler{Logger: logger},
		db:          db,
		sweeper:     sweeper,
		apiKeyMw:    apiKeyMw,
	}
}

// RegisterRoutes registers all ops handler routes
func (h *OpsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.With(h.apiKeyMw).Post("/ops/cleanup/sweep", h.Sweep)
}

// Health handles GET /health
// @Summary Health check
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string "Database unavailable"
// @Router /health [get]
func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.Logger.Warn("health check failed", zap.Error(err))
		h.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Sweep handles POST /ops/cleanup/sweep
// @Summary Run the media cleanup sweeper now
// @Tags ops
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} models.SweepResult
// @Failure 401 {object} map[string]string "Invalid or missing API key"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /ops/cleanup/sweep [post]
func (h *OpsHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		h.Logger.Error("cleanup sweep failed", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.RespondJSON(w, http.StatusOK, result)
}
