package services

import (
	"context"
	"errors"

	"github.com/piwcasokwa/backend/internal/models"
	"go.uber.org/zap"
)

// ActiveRecordRepository is the interface that wraps the active pointer of exclusive collections
type ActiveRecordRepository interface {
	// Method Get returns the pointer of a collection.
	//
	// A collection that never had an active record yields an empty pointer with version 0.
	Get(ctx context.Context, collection models.Collection) (*models.ActivePointer, error)
	// Method CompareAndSet moves the pointer to "recordID" (nil clears it) if its version still equals "expectedVersion".
	//
	// It returns false without error when a concurrent writer changed the pointer first.
	CompareAndSet(ctx context.Context, collection models.Collection, recordID *string, expectedVersion int64) (bool, error)
}

// maxActiveAttempts bounds the compare-and-set retries of one transition
const maxActiveAttempts = 3

type personalityService struct {
	docs     DocumentRepository
	pointers ActiveRecordRepository
	cache    PublishedCache
	logger   *zap.Logger
}

// NewPersonalityService creates the coordinator of the personality of the week
func NewPersonalityService(docs DocumentRepository, pointers ActiveRecordRepository, cache PublishedCache, logger *zap.Logger) *personalityService {
	return &personalityService{
		docs:     docs,
		pointers: pointers,
		cache:    cache,
		logger:   logger,
	}
}

// SetActive makes the personality the active one, or clears it.
//
// Activation replaces whichever personality was active before, in a single pointer write.
// Deactivating a personality that is not active is a no-op.
// Lost compare-and-set races are retried; after maxActiveAttempts models.ErrConcurrentUpdate is returned.
func (s *personalityService) SetActive(ctx context.Context, id string, active bool) (*models.ContentRecord, error) {
	collection := models.CollectionPersonalities

	rec, err := s.docs.GetByID(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxActiveAttempts; attempt++ {
		pointer, err := s.pointers.Get(ctx, collection)
		if err != nil {
			return nil, err
		}

		var target *string
		if active {
			if pointer.Holds(id) {
				rec.IsActive = true
				return rec, nil
			}
			target = &id
		} else if !pointer.Holds(id) {
			rec.IsActive = false
			return rec, nil
		}

		swapped, err := s.pointers.CompareAndSet(ctx, collection, target, pointer.Version)
		if err != nil {
			return nil, err
		}
		if swapped {
			s.cache.Invalidate(ctx, collection)
			rec.IsActive = active

			fields := []zap.Field{zap.String("id", id), zap.Bool("active", active), zap.Int("attempt", attempt)}
			if pointer.RecordID != nil && active {
				fields = append(fields, zap.String("previous", *pointer.RecordID))
			}
			s.logger.Info("active personality changed", fields...)
			return rec, nil
		}

		s.logger.Debug("active pointer moved concurrently, retrying", zap.String("id", id), zap.Int("attempt", attempt))
	}

	s.logger.Warn("gave up changing active personality", zap.String("id", id), zap.Bool("active", active))
	return nil, models.ErrConcurrentUpdate
}

// GetActive returns the active personality
func (s *personalityService) GetActive(ctx context.Context) (*models.ContentRecord, error) {
	pointer, err := s.pointers.Get(ctx, models.CollectionPersonalities)
	if err != nil {
		return nil, err
	}
	if pointer.RecordID == nil {
		return nil, models.ErrRecordNotFound
	}

	rec, err := s.docs.GetByID(ctx, models.CollectionPersonalities, *pointer.RecordID)
	if errors.Is(err, models.ErrRecordNotFound) {
		// The pointer may outlive a record removed between the existence check and the swap
		s.logger.Warn("active pointer refers to a missing personality", zap.String("id", *pointer.RecordID))
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}
