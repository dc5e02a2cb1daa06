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

// ContentService is the interface that wraps methods for the content collections.
type ContentService interface {
	// Method ListPublished retrieve the records of a collection visible on the public site.
	//
	// Only records whose visibility flag is true are returned. Ordered collections come back by display_order.
	// An unknown collection yields models.ErrUnknownCollection.
	ListPublished(ctx context.Context, collection string) ([]models.ContentRecord, error)
	// Method GetPublished retrieve one record if it is visible on the public site.
	//
	// A draft is reported as models.ErrRecordNotFound so hidden records cannot be probed.
	GetPublished(ctx context.Context, collection, id string) (*models.ContentRecord, error)
	// Method List retrieve every record of a collection, drafts included.
	List(ctx context.Context, collection string) ([]models.ContentRecord, error)
	// Method Get retrieve one record regardless of its flag.
	Get(ctx context.Context, collection, id string) (*models.ContentRecord, error)
	// Method Create validates and stores a new record.
	//
	// "raw" is the decoded JSON object; server managed keys in it are ignored.
	// Validation failures wrap models.ErrInvalidRecord.
	Create(ctx context.Context, collection string, raw map[string]any) (*models.ContentRecord, error)
	// Method Update replaces the fields of a record and releases media it no longer references.
	Update(ctx context.Context, collection, id string, raw map[string]any) (*models.ContentRecord, error)
	// Method SetPublished writes the visibility flag of a record ("open" for positions).
	//
	// Existence is the only precondition. Collections without a flag yield models.ErrFlagNotSupported.
	SetPublished(ctx context.Context, collection, id string, value bool) error
	// Method Delete removes a record and releases its media.
	Delete(ctx context.Context, collection, id string) error
	// Method ContentBlocks returns the published text blocks of a page as key -> content.
	ContentBlocks(ctx context.Context, page, section string) (map[string]string, error)
}

// ContentHandler handles the public and admin endpoints of the content collections
type ContentHandler struct {
	BaseHandler
	service ContentService
	adminMw func(http.Handler) http.Handler
}

// NewContentHandler creates a new content handler
func NewContentHandler(svc ContentService, logger *zap.Logger, adminMw func(http.Handler) http.Handler) *ContentHandler {
	return &ContentHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     svc,
		adminMw:     adminMw,
	}
}

// RegisterRoutes registers all content handler routes
func (h *ContentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/content", h.GetContentBlocks)
	r.Route("/public/{collection}", func(r chi.Router) {
		r.Get("/", h.ListPublished)
		r.Get("/{id}", h.GetPublished)
	})

	r.Route("/admin/{collection}", func(r chi.Router) {
		r.Use(h.adminMw)
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Patch("/{id}/published", h.SetPublished)
	})
}

// ListPublished handles GET /public/{collection}
// @Summary List published records
// @Description Records visible on the public site. Executives are ordered by display_order, other collections newest first.
// @Tags public
// @Produce json
// @Param collection path string true "Collection" Enums(executives, gallery, announcements, blogs, news_events, personality_of_week, positions, content_blocks)
// @Success 200 {array} object
// @Failure 404 {object} map[string]string "Unknown collection"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /public/{collection} [get]
func (h *ContentHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	records, err := h.service.ListPublished(r.Context(), collection)
	if err != nil {
		h.respondContentError(w, err, "failed to list records")
		return
	}

	h.RespondJSON(w, http.StatusOK, records)
}

// GetPublished handles GET /public/{collection}/{id}
// @Summary Get a published record
// @Tags public
// @Produce json
// @Param collection path string true "Collection"
// @Param id path string true "Record ID"
// @Success 200 {object} object
// @Failure 404 {object} map[string]string "Record not found"
// @Router /public/{collection}/{id} [get]
func (h *ContentHandler) GetPublished(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	rec, err := h.service.GetPublished(r.Context(), collection, id)
	if err != nil {
		h.respondContentError(w, err, "failed to get record")
		return
	}

	h.RespondJSON(w, http.StatusOK, rec)
}

// GetContentBlocks handles GET /content
// @Summary Get the text blocks of a page
// @Description Returns published content blocks of a page as a key to content map. Section is optional.
// @Tags public
// @Produce json
// @Param page query string true "Page"
// @Param section query string false "Section"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Page is required"
// @Router /content [get]
func (h *ContentHandler) GetContentBlocks(w http.ResponseWriter, r *http.Request) {
	page := r.URL.Query().Get("page")
	section := r.URL.Query().Get("section")

	blocks, err := h.service.ContentBlocks(r.Context(), page, section)
	if err != nil {
		h.respondContentError(w, err, "failed to get content blocks")
		return
	}

	h.RespondJSON(w, http.StatusOK, blocks)
}

// List handles GET /admin/{collection}
// @Summary List all records
// @Description Every record of a collection, drafts included
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param collection path string true "Collection"
// @Success 200 {array} object
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Router /admin/{collection} [get]
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	records, err := h.service.List(r.Context(), collection)
	if err != nil {
		h.respondContentError(w, err, "failed to list records")
		return
	}

	h.RespondJSON(w, http.StatusOK, records)
}

// Get handles GET /admin/{collection}/{id}
// @Summary Get a record
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param collection path string true "Collection"
// @Param id path string true "Record ID"
// @Success 200 {object} object
// @Failure 404 {object} map[string]string "Record not found"
// @Router /admin/{collection}/{id} [get]
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	if err != nil {
		h.respondContentError(w, err, "failed to get record")
		return
	}

	h.RespondJSON(w, http.StatusOK, rec)
}

// Create handles POST /admin/{collection}
// @Summary Create a record
// @Description Executives are appended at the end of the display order. Announcements and news notify subscribed devices.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param collection path string true "Collection"
// @Param record body object true "Record fields"
// @Success 201 {object} object
// @Failure 400 {object} map[string]string "Invalid record"
// @Router /admin/{collection} [post]
func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil || raw == nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.service.Create(r.Context(), collection, raw)
	if err != nil {
		h.respondContentError(w, err, "failed to create record")
		return
	}

	h.RespondJSON(w, http.StatusCreated, rec)
}

// Update handles PUT /admin/{collection}/{id}
// @Summary Update a record
// @Description Replaces the fields of a record. Media no longer referenced is deleted from storage.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param collection path string true "Collection"
// @Param id path string true "Record ID"
// @Param record body object true "Record fields"
// @Success 200 {object} object
// @Failure 400 {object} map[string]string "Invalid record"
// @Failure 404 {object} map[string]string "Record not found"
// @Router /admin/{collection}/{id} [put]
func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil || raw == nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.service.Update(r.Context(), collection, id, raw)
	if err != nil {
		h.respondContentError(w, err, "failed to update record")
		return
	}

	h.RespondJSON(w, http.StatusOK, rec)
}

// SetPublished handles PATCH /admin/{collection}/{id}/published
// @Summary Publish or unpublish a record
// @Description Sets the visibility flag ("open" for positions). Only the record's existence is checked.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param collection path string true "Collection"
// @Param id path string true "Record ID"
// @Param request body models.FlagUpdate true "New flag value"
// @Success 200 {object} models.Message
// @Failure 400 {object} map[string]string "Missing value or collection has no flag"
// @Failure 404 {object} map[string]string "Record not found"
// @Router /admin/{collection}/{id}/published [patch]
func (h *ContentHandler) SetPublished(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	var req models.FlagUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		h.RespondError(w, http.StatusBadRequest, "value is required")
		return
	}

	if err := h.service.SetPublished(r.Context(), collection, id, *req.Value); err != nil {
		h.respondContentError(w, err, "failed to update flag")
		return
	}

	h.RespondMessage(w, http.StatusOK, "flag updated")
}

// Delete handles DELETE /admin/{collection}/{id}
// @Summary Delete a record
// @Description Deletes the record and its media. Media that cannot be deleted now is retried by the cleanup sweeper.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param collection path string true "Collection"
// @Param id path string true "Record ID"
// @Success 204
// @Failure 404 {object} map[string]string "Record not found"
// @Router /admin/{collection}/{id} [delete]
func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id")); err != nil {
		h.respondContentError(w, err, "failed to delete record")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondContentError maps domain errors of the content services to HTTP statuses
func (h *ContentHandler) respondContentError(w http.ResponseWriter, err error, logMsg string) {
	respondDomainError(&h.BaseHandler, w, err, logMsg)
}

func respondDomainError(h *BaseHandler, w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, models.ErrUnknownCollection):
		h.RespondError(w, http.StatusNotFound, "unknown collection")
	case errors.Is(err, models.ErrRecordNotFound):
		h.RespondError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, models.ErrInvalidRecord), errors.Is(err, models.ErrFlagNotSupported):
		h.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrConcurrentUpdate):
		h.RespondError(w, http.StatusConflict, err.Error())
	default:
		h.Logger.Error(logMsg, zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
