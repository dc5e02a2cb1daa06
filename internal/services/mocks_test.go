package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/piwcasokwa/backend/internal/models"
	"github.com/piwcasokwa/backend/internal/storage"
	"gopkg.in/mail.v2"
)

const testBucketBase = "https://storage.googleapis.com/site-media/"

// mockGateway is an in-memory ObjectGateway
type mockGateway struct {
	presignErr error
	deleteErrs map[string]error
	deleted    []string
	presigned  []string
	lastType   string
	lastExpiry time.Duration
}

func (m *mockGateway) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	if m.presignErr != nil {
		return "", m.presignErr
	}
	m.presigned = append(m.presigned, key)
	m.lastType = contentType
	m.lastExpiry = expiry
	return "https://signed.example/" + key + "?X-Amz-Signature=abc", nil
}

func (m *mockGateway) Delete(ctx context.Context, key string) error {
	if err := m.deleteErrs[key]; err != nil {
		return err
	}
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *mockGateway) PublicURL(key string) string {
	return testBucketBase + key
}

func (m *mockGateway) KeyFromPublicURL(publicURL string) (string, error) {
	key, ok := strings.CutPrefix(publicURL, testBucketBase)
	if !ok || key == "" {
		return "", models.ErrForeignURL
	}
	return key, nil
}

// mockCleanupRepository records outbox calls
type mockCleanupRepository struct {
	added     []models.PendingCleanup
	pending   []models.PendingCleanup
	completed []int64
	failed    map[int64]string
	addErr    error
	listErr   error
	nextID    int64
}

func (m *mockCleanupRepository) Add(ctx context.Context, items []models.PendingCleanup) error {
	if m.addErr != nil {
		return m.addErr
	}
	for i := range items {
		m.nextID++
		items[i].ID = m.nextID
	}
	m.added = append(m.added, items...)
	return nil
}

func (m *mockCleanupRepository) ListPending(ctx context.Context, limit int) ([]models.PendingCleanup, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if len(m.pending) > limit {
		return m.pending[:limit], nil
	}
	return m.pending, nil
}

func (m *mockCleanupRepository) MarkCompleted(ctx context.Context, id int64) error {
	m.completed = append(m.completed, id)
	return nil
}

func (m *mockCleanupRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	if m.failed == nil {
		m.failed = make(map[int64]string)
	}
	m.failed[id] = reason
	return nil
}

// mockDocumentRepository keeps records in a map
type mockDocumentRepository struct {
	records   map[string]*models.ContentRecord
	created   []*models.ContentRecord
	updated   []*models.ContentRecord
	released  []models.PendingCleanup
	deleted   []string
	published map[string]bool
	listCalls int
	err       error
	getErr    error
	nextOrder int
	afterList func()
}

func newMockDocumentRepository(records ...*models.ContentRecord) *mockDocumentRepository {
	m := &mockDocumentRepository{
		records:   make(map[string]*models.ContentRecord),
		published: make(map[string]bool),
	}
	for _, rec := range records {
		m.records[rec.ID] = rec
	}
	return m
}

func (m *mockDocumentRepository) Create(ctx context.Context, rec *models.ContentRecord) error {
	if m.err != nil {
		return m.err
	}
	if models.MustCollection(rec.Collection).Ordered {
		order := m.nextOrder
		m.nextOrder++
		rec.DisplayOrder = &order
	}
	m.created = append(m.created, rec)
	m.records[rec.ID] = rec
	return nil
}

func (m *mockDocumentRepository) GetByID(ctx context.Context, collection models.Collection, id string) (*models.ContentRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.records[id]
	if !ok || rec.Collection != collection {
		return nil, models.ErrRecordNotFound
	}
	clone := *rec
	return &clone, nil
}

func (m *mockDocumentRepository) List(ctx context.Context, collection models.Collection, publishedOnly bool) ([]models.ContentRecord, error) {
	m.listCalls++
	if m.err != nil {
		return nil, m.err
	}
	records := make([]models.ContentRecord, 0)
	for _, rec := range m.records {
		if rec.Collection != collection || (publishedOnly && !rec.Published) {
			continue
		}
		records = append(records, *rec)
	}
	if m.afterList != nil {
		m.afterList()
	}
	return records, nil
}

func (m *mockDocumentRepository) Update(ctx context.Context, rec *models.ContentRecord, released []models.PendingCleanup) error {
	if m.err != nil {
		return m.err
	}
	m.updated = append(m.updated, rec)
	m.released = append(m.released, released...)
	m.records[rec.ID] = rec
	return nil
}

func (m *mockDocumentRepository) SetPublished(ctx context.Context, collection models.Collection, id string, value bool) error {
	if m.err != nil {
		return m.err
	}
	rec, ok := m.records[id]
	if !ok || rec.Collection != collection {
		return models.ErrRecordNotFound
	}
	rec.Published = value
	m.published[id] = value
	return nil
}

func (m *mockDocumentRepository) Delete(ctx context.Context, collection models.Collection, id string, released []models.PendingCleanup) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.records[id]; !ok {
		return models.ErrRecordNotFound
	}
	delete(m.records, id)
	m.deleted = append(m.deleted, id)
	m.released = append(m.released, released...)
	return nil
}

// mockCache is a map-backed PublishedCache with per-collection generations
type mockCache struct {
	mu          sync.Mutex
	entries     map[models.Collection][]models.ContentRecord
	gens        map[models.Collection]int64
	invalidated []models.Collection
}

func newMockCache() *mockCache {
	return &mockCache{
		entries: make(map[models.Collection][]models.ContentRecord),
		gens:    make(map[models.Collection]int64),
	}
}

func (m *mockCache) Get(ctx context.Context, collection models.Collection) ([]models.ContentRecord, int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records, ok := m.entries[collection]
	return records, m.gens[collection], ok
}

func (m *mockCache) Set(ctx context.Context, collection models.Collection, generation int64, records []models.ContentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if generation != m.gens[collection] {
		return
	}
	m.entries[collection] = records
}

func (m *mockCache) Invalidate(ctx context.Context, collection models.Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, collection)
	m.gens[collection]++
	m.invalidated = append(m.invalidated, collection)
}

// mockNotifier records announced records
type mockNotifier struct {
	notified []string
}

func (m *mockNotifier) ContentCreated(ctx context.Context, rec *models.ContentRecord) {
	m.notified = append(m.notified, rec.ID)
}

// mockCoordinator records activation requests
type mockCoordinator struct {
	calls map[string]bool
	err   error
}

func (m *mockCoordinator) SetActive(ctx context.Context, id string, active bool) (*models.ContentRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.calls == nil {
		m.calls = make(map[string]bool)
	}
	m.calls[id] = active
	return &models.ContentRecord{ID: id, Collection: models.CollectionPersonalities, IsActive: active}, nil
}

// mockPointerRepository is an in-memory ActiveRecordRepository with optional injected CAS conflicts
type mockPointerRepository struct {
	mu        sync.Mutex
	recordID  *string
	version   int64
	conflicts int
	getErr    error
	casErr    error
	casCalls  int
}

func (m *mockPointerRepository) Get(ctx context.Context, collection models.Collection) (*models.ActivePointer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p := &models.ActivePointer{Collection: collection, Version: m.version}
	if m.recordID != nil {
		id := *m.recordID
		p.RecordID = &id
	}
	return p, nil
}

func (m *mockPointerRepository) CompareAndSet(ctx context.Context, collection models.Collection, recordID *string, expectedVersion int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++
	if m.casErr != nil {
		return false, m.casErr
	}
	if m.conflicts > 0 {
		// Another writer bumps the version first
		m.conflicts--
		m.version++
		return false, nil
	}
	if expectedVersion != m.version {
		return false, nil
	}
	m.recordID = recordID
	m.version++
	return true, nil
}

// mockMailSender captures sent messages
type mockMailSender struct {
	sent []*mail.Message
	err  error
}

func (m *mockMailSender) DialAndSend(msgs ...*mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msgs...)
	return nil
}

// mockEnqueuer captures enqueued tasks
type mockEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.tasks = append(m.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

// mockDeviceTokenRepository is an in-memory DeviceTokenRepository
type mockDeviceTokenRepository struct {
	tokens []string
	err    error
}

func (m *mockDeviceTokenRepository) Save(ctx context.Context, token string) error {
	if m.err != nil {
		return m.err
	}
	m.tokens = append(m.tokens, token)
	return nil
}

func (m *mockDeviceTokenRepository) ListTokens(ctx context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tokens, nil
}

// mockPusher captures pushes
type mockPusher struct {
	tokens  []string
	payload models.NotificationPayload
	err     error
}

func (m *mockPusher) Push(ctx context.Context, tokens []string, payload models.NotificationPayload) error {
	if m.err != nil {
		return m.err
	}
	m.tokens = tokens
	m.payload = payload
	return nil
}

var (
	errStore    = errors.New("store unavailable")
	errNotFound = storage.ErrObjectNotFound
)
