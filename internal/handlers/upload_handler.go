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

// UploadService is the interface that wraps the signed upload and delete protocols.
type UploadService interface {
	// Method RequestUploadGrant validates an upload request and returns a signed PUT URL with the object's public URL.
	//
	// Missing fields yield models.ErrMissingFields, a path outside the category set models.ErrInvalidPath.
	// Both are reported before the object store is contacted.
	// A store failure is returned as *models.StoreError.
	RequestUploadGrant(ctx context.Context, req models.UploadRequest) (*models.SignedUploadGrant, error)
	// Method DeleteObjectByPublicURL deletes the object behind a public URL.
	//
	// An object that is already gone is not an error: the result has AlreadyDeleted set.
	// An empty URL yields models.ErrMissingPublicURL, a URL outside the media bucket models.ErrForeignURL.
	DeleteObjectByPublicURL(ctx context.Context, publicURL string) (*models.DeleteResult, error)
}

// UploadHandler handles the upload grant and image delete endpoints
type UploadHandler struct {
	BaseHandler
	service UploadService
	adminMw func(http.Handler) http.Handler
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(svc UploadService, logger *zap.Logger, adminMw func(http.Handler) http.Handler) *UploadHandler {
	return &UploadHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     svc,
		adminMw:     adminMw,
	}
}

// RegisterRoutes registers all upload handler routes
func (h *UploadHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.adminMw)
		r.Post("/generate-upload-url", h.GenerateUploadURL)
		r.Post("/delete-image", h.DeleteImage)
	})
}

// GenerateUploadURL handles POST /generate-upload-url
// @Summary Create a signed upload URL
// @Description Issues a write-scoped URL valid for 15 minutes. The client must PUT the file with the same Content-Type.
// @Tags uploads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UploadRequest true "File to upload"
// @Success 200 {object} models.SignedUploadGrant
// @Failure 400 {object} map[string]string "Missing fields or invalid path"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Failure 500 {object} map[string]string "Could not create upload URL"
// @Router /generate-upload-url [post]
func (h *UploadHandler) GenerateUploadURL(w http.ResponseWriter, r *http.Request) {
	var req models.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	grant, err := h.service.RequestUploadGrant(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMissingFields):
			h.RespondError(w, http.StatusBadRequest, "Missing required fields: fileName, contentType, and path.")
		case errors.Is(err, models.ErrInvalidPath):
			h.RespondError(w, http.StatusBadRequest, "Invalid upload path specified.")
		default:
			h.Logger.Error("failed to generate signed url", zap.Error(err))
			detail := err.Error()
			var storeErr *models.StoreError
			if errors.As(err, &storeErr) {
				detail = storeErr.Err.Error()
			}
			h.RespondJSON(w, http.StatusInternalServerError, map[string]string{
				"error":         "Could not create upload URL. Please check server logs.",
				"detailedError": detail,
			})
		}
		return
	}

	h.RespondJSON(w, http.StatusOK, grant)
}

// DeleteImage handles POST /delete-image
// @Summary Delete an uploaded image
// @Description Deletes the object behind a public URL. Deleting an object that is already gone succeeds.
// @Tags uploads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.DeleteImageRequest true "Public URL of the object"
// @Success 200 {object} models.Message
// @Failure 400 {object} map[string]string "Missing or foreign publicUrl"
// @Failure 500 {object} models.Message "Image could not be deleted"
// @Router /delete-image [post]
func (h *UploadHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.DeleteObjectByPublicURL(r.Context(), req.PublicURL)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMissingPublicURL):
			h.RespondError(w, http.StatusBadRequest, "publicUrl is required.")
		case errors.Is(err, models.ErrForeignURL):
			h.RespondError(w, http.StatusBadRequest, "publicUrl does not belong to the media bucket.")
		default:
			h.Logger.Error("failed to delete image", zap.Error(err), zap.String("publicUrl", req.PublicURL))
			h.RespondMessage(w, http.StatusInternalServerError, "Image could not be deleted.")
		}
		return
	}

	if result.AlreadyDeleted {
		h.RespondMessage(w, http.StatusOK, "Image already deleted or not found.")
		return
	}
	h.RespondMessage(w, http.StatusOK, "Image deleted successfully.")
}
