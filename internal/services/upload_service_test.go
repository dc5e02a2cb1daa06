package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/piwcasokwa/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestUploadService(gateway *mockGateway, cleanups *mockCleanupRepository, now time.Time) *uploadService {
	svc := NewUploadService(gateway, cleanups, 15*time.Minute, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestUploadService_RequestUploadGrant(t *testing.T) {
	now := time.UnixMilli(1700000000000).UTC()

	tests := []struct {
		name          string
		req           models.UploadRequest
		gateway       *mockGateway
		expectedError error
		storeError    bool
		expectedURL   string
	}{
		{
			name:        "success",
			req:         models.UploadRequest{FileName: "my photo.jpg", ContentType: "image/jpeg", Path: models.PathCategoryGallery},
			gateway:     &mockGateway{},
			expectedURL: testBucketBase + "gallery/1700000000000_myphoto.jpg",
		},
		{
			name:          "missing file name",
			req:           models.UploadRequest{ContentType: "image/jpeg", Path: models.PathCategoryGallery},
			gateway:       &mockGateway{},
			expectedError: models.ErrMissingFields,
		},
		{
			name:          "file name with nothing to keep",
			req:           models.UploadRequest{FileName: "!!!", ContentType: "image/jpeg", Path: models.PathCategoryGallery},
			gateway:       &mockGateway{},
			expectedError: models.ErrMissingFields,
		},
		{
			name:          "missing content type",
			req:           models.UploadRequest{FileName: "a.jpg", Path: models.PathCategoryGallery},
			gateway:       &mockGateway{},
			expectedError: models.ErrMissingFields,
		},
		{
			name:          "missing path reported before invalid path",
			req:           models.UploadRequest{FileName: "a.jpg", ContentType: "image/jpeg"},
			gateway:       &mockGateway{},
			expectedError: models.ErrMissingFields,
		},
		{
			name:          "invalid path",
			req:           models.UploadRequest{FileName: "a.jpg", ContentType: "image/jpeg", Path: "secrets"},
			gateway:       &mockGateway{},
			expectedError: models.ErrInvalidPath,
		},
		{
			name:       "store failure",
			req:        models.UploadRequest{FileName: "a.jpg", ContentType: "image/jpeg", Path: models.PathCategoryNews},
			gateway:    &mockGateway{presignErr: errors.New("signing key unavailable")},
			storeError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestUploadService(tt.gateway, &mockCleanupRepository{}, now)

			grant, err := svc.RequestUploadGrant(context.Background(), tt.req)

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, grant)
				assert.Empty(t, tt.gateway.presigned, "store must not be contacted for invalid requests")
			case tt.storeError:
				var storeErr *models.StoreError
				require.ErrorAs(t, err, &storeErr)
				assert.Contains(t, storeErr.Error(), "signing key unavailable")
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.expectedURL, grant.PublicURL)
				assert.Contains(t, grant.UploadURL, "gallery/1700000000000_myphoto.jpg")
				assert.Equal(t, now.Add(15*time.Minute), grant.ExpiresAt)
				assert.Equal(t, "image/jpeg", tt.gateway.lastType)
				assert.Equal(t, 15*time.Minute, tt.gateway.lastExpiry)
			}
		})
	}
}

func TestUploadService_RequestUploadGrant_EveryCategory(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	for _, category := range models.PathCategories {
		t.Run(string(category), func(t *testing.T) {
			svc := newTestUploadService(&mockGateway{}, &mockCleanupRepository{}, now)

			grant, err := svc.RequestUploadGrant(context.Background(), models.UploadRequest{
				FileName: "a.png", ContentType: "image/png", Path: category,
			})
			require.NoError(t, err)
			assert.Equal(t, testBucketBase+string(category)+"/1700000000000_a.png", grant.PublicURL)
		})
	}
}

func TestUploadService_GrantRoundTripsThroughDelete(t *testing.T) {
	gateway := &mockGateway{}
	svc := newTestUploadService(gateway, &mockCleanupRepository{}, time.UnixMilli(1700000000000))

	grant, err := svc.RequestUploadGrant(context.Background(), models.UploadRequest{
		FileName: "Exec Photo (1).JPG", ContentType: "image/jpeg", Path: models.PathCategoryExecutives,
	})
	require.NoError(t, err)

	result, err := svc.DeleteObjectByPublicURL(context.Background(), grant.PublicURL)
	require.NoError(t, err)
	assert.Equal(t, gateway.presigned[0], result.Key)
	assert.Equal(t, []string{"executives/1700000000000_ExecPhoto1.JPG"}, gateway.deleted)
}

func TestUploadService_DeleteObjectByPublicURL(t *testing.T) {
	key := "gallery/1700000000000_a.jpg"

	tests := []struct {
		name           string
		url            string
		gateway        *mockGateway
		cleanups       *mockCleanupRepository
		expectedError  error
		storeError     bool
		alreadyDeleted bool
		queued         int
	}{
		{
			name:     "success",
			url:      testBucketBase + key,
			gateway:  &mockGateway{},
			cleanups: &mockCleanupRepository{},
		},
		{
			name:           "already deleted is success",
			url:            testBucketBase + key,
			gateway:        &mockGateway{deleteErrs: map[string]error{key: errNotFound}},
			cleanups:       &mockCleanupRepository{},
			alreadyDeleted: true,
		},
		{
			name:          "missing url",
			url:           "  ",
			gateway:       &mockGateway{},
			cleanups:      &mockCleanupRepository{},
			expectedError: models.ErrMissingPublicURL,
		},
		{
			name:          "foreign url",
			url:           "https://example.com/elsewhere/a.jpg",
			gateway:       &mockGateway{},
			cleanups:      &mockCleanupRepository{},
			expectedError: models.ErrForeignURL,
		},
		{
			name:       "store failure is queued",
			url:        testBucketBase + key,
			gateway:    &mockGateway{deleteErrs: map[string]error{key: errStore}},
			cleanups:   &mockCleanupRepository{},
			storeError: true,
			queued:     1,
		},
		{
			name:       "store failure with outbox down",
			url:        testBucketBase + key,
			gateway:    &mockGateway{deleteErrs: map[string]error{key: errStore}},
			cleanups:   &mockCleanupRepository{addErr: errors.New("db down")},
			storeError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestUploadService(tt.gateway, tt.cleanups, time.Now())

			result, err := svc.DeleteObjectByPublicURL(context.Background(), tt.url)

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
			case tt.storeError:
				var storeErr *models.StoreError
				assert.ErrorAs(t, err, &storeErr)
				assert.ErrorIs(t, err, errStore)
			default:
				require.NoError(t, err)
				assert.Equal(t, key, result.Key)
				assert.Equal(t, tt.alreadyDeleted, result.AlreadyDeleted)
			}
			assert.Len(t, tt.cleanups.added, tt.queued)
			if tt.queued > 0 {
				assert.Equal(t, key, tt.cleanups.added[0].ObjectKey)
				assert.Equal(t, models.CleanupReasonDeleteFailed, tt.cleanups.added[0].Reason)
			}
		})
	}
}

func TestUploadService_DeleteIsIdempotent(t *testing.T) {
	key := "news/1_a.png"
	gateway := &mockGateway{}
	svc := newTestUploadService(gateway, &mockCleanupRepository{}, time.Now())

	first, err := svc.DeleteObjectByPublicURL(context.Background(), testBucketBase+key)
	require.NoError(t, err)
	assert.False(t, first.AlreadyDeleted)

	gateway.deleteErrs = map[string]error{key: errNotFound}
	second, err := svc.DeleteObjectByPublicURL(context.Background(), testBucketBase+key)
	require.NoError(t, err)
	assert.True(t, second.AlreadyDeleted)
}
