package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/piwcasokwa/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func personality(id string) *models.ContentRecord {
	return &models.ContentRecord{
		ID:         id,
		Collection: models.CollectionPersonalities,
		Published:  true,
		Fields:     map[string]any{"name": "Person " + id},
	}
}

func TestPersonalityService_SetActive(t *testing.T) {
	tests := []struct {
		name             string
		id               string
		active           bool
		pointers         *mockPointerRepository
		expectedError    error
		anyError         bool
		expectedActiveID *string
		expectedCAS      int
	}{
		{
			name:             "first activation",
			id:               "w1",
			active:           true,
			pointers:         &mockPointerRepository{},
			expectedActiveID: strRef("w1"),
			expectedCAS:      1,
		},
		{
			name:             "activation replaces previous holder",
			id:               "w2",
			active:           true,
			pointers:         &mockPointerRepository{recordID: strRef("w1"), version: 4},
			expectedActiveID: strRef("w2"),
			expectedCAS:      1,
		},
		{
			name:             "activating the holder is a no-op",
			id:               "w1",
			active:           true,
			pointers:         &mockPointerRepository{recordID: strRef("w1"), version: 4},
			expectedActiveID: strRef("w1"),
			expectedCAS:      0,
		},
		{
			name:        "deactivating the holder clears the pointer",
			id:          "w1",
			active:      false,
			pointers:    &mockPointerRepository{recordID: strRef("w1"), version: 4},
			expectedCAS: 1,
		},
		{
			name:             "deactivating a non-holder is a no-op",
			id:               "w2",
			active:           false,
			pointers:         &mockPointerRepository{recordID: strRef("w1"), version: 4},
			expectedActiveID: strRef("w1"),
			expectedCAS:      0,
		},
		{
			name:             "lost races are retried",
			id:               "w2",
			active:           true,
			pointers:         &mockPointerRepository{recordID: strRef("w1"), version: 4, conflicts: 2},
			expectedActiveID: strRef("w2"),
			expectedCAS:      3,
		},
		{
			name:             "gives up after bounded retries",
			id:               "w2",
			active:           true,
			pointers:         &mockPointerRepository{recordID: strRef("w1"), version: 4, conflicts: 3},
			expectedError:    models.ErrConcurrentUpdate,
			expectedActiveID: strRef("w1"),
			expectedCAS:      3,
		},
		{
			name:             "missing record",
			id:               "missing",
			active:           true,
			pointers:         &mockPointerRepository{recordID: strRef("w1"), version: 4},
			expectedError:    models.ErrRecordNotFound,
			expectedActiveID: strRef("w1"),
		},
		{
			name:     "pointer read error",
			id:       "w1",
			active:   true,
			pointers: &mockPointerRepository{getErr: errors.New("database error")},
			anyError: true,
		},
		{
			name:        "pointer write error",
			id:          "w1",
			active:      true,
			pointers:    &mockPointerRepository{casErr: errors.New("database error")},
			anyError:    true,
			expectedCAS: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := newMockDocumentRepository(personality("w1"), personality("w2"))
			cache := newMockCache()
			svc := NewPersonalityService(docs, tt.pointers, cache, zap.NewNop())

			rec, err := svc.SetActive(context.Background(), tt.id, tt.active)

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, rec)
			case tt.anyError:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.active, rec.IsActive)
			}
			if !tt.anyError {
				assert.Equal(t, tt.expectedActiveID, tt.pointers.recordID)
			}
			assert.Equal(t, tt.expectedCAS, tt.pointers.casCalls)
		})
	}
}

func TestPersonalityService_ConcurrentActivations(t *testing.T) {
	const n = 8
	records := make([]*models.ContentRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, personality(fmt.Sprintf("w%d", i)))
	}
	docs := newMockDocumentRepository(records...)
	pointers := &mockPointerRepository{}
	svc := NewPersonalityService(docs, pointers, newMockCache(), zap.NewNop())

	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.SetActive(context.Background(), fmt.Sprintf("w%d", i), true)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, models.ErrConcurrentUpdate)
	}
	assert.GreaterOrEqual(t, succeeded, 1)

	active, err := svc.GetActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, *pointers.recordID, active.ID)
}

func TestPersonalityService_GetActive(t *testing.T) {
	tests := []struct {
		name          string
		pointers      *mockPointerRepository
		expectedID    string
		expectedError error
	}{
		{
			name:       "active personality",
			pointers:   &mockPointerRepository{recordID: strRef("w2"), version: 2},
			expectedID: "w2",
		},
		{
			name:          "none active",
			pointers:      &mockPointerRepository{version: 3},
			expectedError: models.ErrRecordNotFound,
		},
		{
			name:          "dangling pointer",
			pointers:      &mockPointerRepository{recordID: strRef("gone"), version: 3},
			expectedError: models.ErrRecordNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := newMockDocumentRepository(personality("w1"), personality("w2"))
			svc := NewPersonalityService(docs, tt.pointers, newMockCache(), zap.NewNop())

			rec, err := svc.GetActive(context.Background())

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedID, rec.ID)
		})
	}
}

func TestPersonalityService_SetActive_InvalidatesCache(t *testing.T) {
	docs := newMockDocumentRepository(personality("w1"))
	cache := newMockCache()
	cache.entries[models.CollectionPersonalities] = []models.ContentRecord{}
	svc := NewPersonalityService(docs, &mockPointerRepository{}, cache, zap.NewNop())

	_, err := svc.SetActive(context.Background(), "w1", true)
	require.NoError(t, err)
	assert.NotContains(t, cache.entries, models.CollectionPersonalities)
}

func strRef(v string) *string {
	return &v
}
