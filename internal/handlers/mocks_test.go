package handlers

import (
	"context"
	"net/http"

	"github.com/piwcasokwa/backend/internal/models"
)

// passThrough stands in for the auth and rate limit middlewares
func passThrough(next http.Handler) http.Handler { return next }

// denyAll rejects every request like the admin middleware does for a missing token
func denyAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
}

type mockUploadService struct {
	grant        *models.SignedUploadGrant
	grantErr     error
	deleteResult *models.DeleteResult
	deleteErr    error
	lastRequest  models.UploadRequest
	lastURL      string
}

func (m *mockUploadService) RequestUploadGrant(ctx context.Context, req models.UploadRequest) (*models.SignedUploadGrant, error) {
	m.lastRequest = req
	return m.grant, m.grantErr
}

func (m *mockUploadService) DeleteObjectByPublicURL(ctx context.Context, publicURL string) (*models.DeleteResult, error) {
	m.lastURL = publicURL
	return m.deleteResult, m.deleteErr
}

type mockEmailService struct {
	err  error
	sent []models.ContactMessage
}

func (m *mockEmailService) SendContactMessage(ctx context.Context, msg models.ContactMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockContentService struct {
	records   []models.ContentRecord
	record    *models.ContentRecord
	blocks    map[string]string
	err       error
	calls     []string
	lastRaw   map[string]any
	lastValue *bool
}

func (m *mockContentService) ListPublished(ctx context.Context, collection string) ([]models.ContentRecord, error) {
	m.calls = append(m.calls, "ListPublished:"+collection)
	return m.records, m.err
}

func (m *mockContentService) GetPublished(ctx context.Context, collection, id string) (*models.ContentRecord, error) {
	m.calls = append(m.calls, "GetPublished:"+collection+"/"+id)
	return m.record, m.err
}

func (m *mockContentService) List(ctx context.Context, collection string) ([]models.ContentRecord, error) {
	m.calls = append(m.calls, "List:"+collection)
	return m.records, m.err
}

func (m *mockContentService) Get(ctx context.Context, collection, id string) (*models.ContentRecord, error) {
	m.calls = append(m.calls, "Get:"+collection+"/"+id)
	return m.record, m.err
}

func (m *mockContentService) Create(ctx context.Context, collection string, raw map[string]any) (*models.ContentRecord, error) {
	m.calls = append(m.calls, "Create:"+collection)
	m.lastRaw = raw
	return m.record, m.err
}

func (m *mockContentService) Update(ctx context.Context, collection, id string, raw map[string]any) (*models.ContentRecord, error) {
	m.calls = append(m.calls, "Update:"+collection+"/"+id)
	m.lastRaw = raw
	return m.record, m.err
}

func (m *mockContentService) SetPublished(ctx context.Context, collection, id string, value bool) error {
	m.calls = append(m.calls, "SetPublished:"+collection+"/"+id)
	m.lastValue = &value
	return m.err
}

func (m *mockContentService) Delete(ctx context.Context, collection, id string) error {
	m.calls = append(m.calls, "Delete:"+collection+"/"+id)
	return m.err
}

func (m *mockContentService) ContentBlocks(ctx context.Context, page, section string) (map[string]string, error) {
	m.calls = append(m.calls, "ContentBlocks:"+page+"/"+section)
	return m.blocks, m.err
}

type mockPersonalityService struct {
	record    *models.ContentRecord
	err       error
	lastID    string
	lastValue bool
}

func (m *mockPersonalityService) SetActive(ctx context.Context, id string, active bool) (*models.ContentRecord, error) {
	m.lastID = id
	m.lastValue = active
	return m.record, m.err
}

func (m *mockPersonalityService) GetActive(ctx context.Context) (*models.ContentRecord, error) {
	return m.record, m.err
}

type mockNotificationService struct {
	tokens []string
	err    error
}

func (m *mockNotificationService) RegisterToken(ctx context.Context, token string) error {
	if m.err != nil {
		return m.err
	}
	m.tokens = append(m.tokens, token)
	return nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	return m.err
}

type mockSweeper struct {
	result *models.SweepResult
	err    error
}

func (m *mockSweeper) Sweep(ctx context.Context) (*models.SweepResult, error) {
	return m.result, m.err
}
