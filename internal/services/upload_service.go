package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/piwcasokwa/backend/internal/models"
	"github.com/piwcasokwa/backend/internal/storage"
	"go.uber.org/zap"
)

// ObjectGateway is the interface that wraps the object store used for uploaded media
type ObjectGateway interface {
	// Method PresignPut issues a write-scoped URL for key valid for "expiry".
	//
	// The content type is bound into the signature, so the client PUT must send the same Content-Type.
	// Creating the URL does not create the object.
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	// Method Delete removes the object stored under key.
	//
	// A missing object is reported as storage.ErrObjectNotFound, any other failure as a wrapped store error.
	Delete(ctx context.Context, key string) error
	// Method PublicURL returns the canonical public URL of key. No other code builds these URLs.
	PublicURL(key string) string
	// Method KeyFromPublicURL is the inverse of PublicURL.
	//
	// URLs that do not point into the media bucket yield models.ErrForeignURL.
	KeyFromPublicURL(publicURL string) (string, error)
}

// CleanupRepository is the interface that wraps the outbox of objects waiting to be deleted
type CleanupRepository interface {
	// Method Add queues objects for deletion and fills in their IDs.
	Add(ctx context.Context, items []models.PendingCleanup) error
	// Method ListPending returns at most "limit" unfinished cleanups, oldest first.
	ListPending(ctx context.Context, limit int) ([]models.PendingCleanup, error)
	// Method MarkCompleted closes a cleanup whose object is gone.
	MarkCompleted(ctx context.Context, id int64) error
	// Method MarkFailed records a failed attempt and keeps the cleanup pending.
	MarkFailed(ctx context.Context, id int64, reason string) error
}

type uploadService struct {
	gateway  ObjectGateway
	cleanups CleanupRepository
	expiry   time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewUploadService creates a new upload service issuing grants valid for "expiry"
func NewUploadService(gateway ObjectGateway, cleanups CleanupRepository, expiry time.Duration, logger *zap.Logger) *uploadService {
	return &uploadService{
		gateway:  gateway,
		cleanups: cleanups,
		expiry:   expiry,
		now:      time.Now,
		logger:   logger,
	}
}

// RequestUploadGrant validates the request and issues a signed upload URL.
//
// Missing fields are reported before the path is checked, and both checks happen before the store is contacted.
// A file name with no character that survives sanitizing counts as missing.
func (s *uploadService) RequestUploadGrant(ctx context.Context, req models.UploadRequest) (*models.SignedUploadGrant, error) {
	if storage.SanitizeFileName(req.FileName) == "" || strings.TrimSpace(req.ContentType) == "" || req.Path == "" {
		return nil, models.ErrMissingFields
	}
	if !req.Path.IsValid() {
		return nil, models.ErrInvalidPath
	}

	now := s.now()
	key := storage.ObjectKey(req.Path, now, req.FileName)

	uploadURL, err := s.gateway.PresignPut(ctx, key, req.ContentType, s.expiry)
	if err != nil {
		s.logger.Error("failed to create signed upload url", zap.Error(err), zap.String("key", key))
		return nil, &models.StoreError{Op: "presign upload", Err: err}
	}

	s.logger.Info("upload grant issued", zap.String("key", key), zap.String("contentType", req.ContentType))

	return &models.SignedUploadGrant{
		UploadURL: uploadURL,
		PublicURL: s.gateway.PublicURL(key),
		ExpiresAt: now.Add(s.expiry),
	}, nil
}

// DeleteObjectByPublicURL resolves a public URL to its key and deletes the object.
//
// A missing object counts as success with AlreadyDeleted set.
// Other store failures are queued for the cleanup sweeper and returned as *models.StoreError.
func (s *uploadService) DeleteObjectByPublicURL(ctx context.Context, publicURL string) (*models.DeleteResult, error) {
	if strings.TrimSpace(publicURL) == "" {
		return nil, models.ErrMissingPublicURL
	}

	key, err := s.gateway.KeyFromPublicURL(publicURL)
	if err != nil {
		return nil, err
	}

	err = s.gateway.Delete(ctx, key)
	switch {
	case err == nil:
		s.logger.Info("object deleted", zap.String("key", key))
		return &models.DeleteResult{Key: key}, nil
	case errors.Is(err, storage.ErrObjectNotFound):
		s.logger.Info("object already deleted", zap.String("key", key))
		return &models.DeleteResult{Key: key, AlreadyDeleted: true}, nil
	}

	s.logger.Warn("failed to delete object, queued for cleanup", zap.Error(err), zap.String("key", key))
	pending := []models.PendingCleanup{{
		ObjectKey: key,
		PublicURL: publicURL,
		Reason:    models.CleanupReasonDeleteFailed,
		LastError: err.Error(),
		CreatedAt: s.now().UTC(),
	}}
	if qerr := s.cleanups.Add(ctx, pending); qerr != nil {
		s.logger.Error("orphaned object not queued for cleanup", zap.Error(qerr), zap.String("key", key))
	}

	return nil, &models.StoreError{Op: "delete object", Err: err}
}
