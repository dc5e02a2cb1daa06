package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/piwcasokwa/backend/internal/models"
	"go.uber.org/zap"
)

// DocumentRepository is the interface that wraps methods for content documents data access
type DocumentRepository interface {
	// Method Create inserts a record.
	//
	// For ordered collections the repository assigns DisplayOrder = max(existing, -1) + 1 inside the insert transaction.
	// For exclusive collections with IsActive set, the active pointer moves to the new record in the same transaction.
	Create(ctx context.Context, rec *models.ContentRecord) error
	// Method GetByID retrieves a record of a collection.
	//
	// A missing record yields models.ErrRecordNotFound.
	GetByID(ctx context.Context, collection models.Collection, id string) (*models.ContentRecord, error)
	// Method List retrieves the records of a collection in display order.
	//
	// If "publishedOnly" is true, records whose visibility flag is false are omitted.
	List(ctx context.Context, collection models.Collection, publishedOnly bool) ([]models.ContentRecord, error)
	// Method Update writes the fields and flag of a record and queues "released" media in the same transaction.
	Update(ctx context.Context, rec *models.ContentRecord, released []models.PendingCleanup) error
	// Method SetPublished writes the visibility flag of a record.
	//
	// A missing record yields models.ErrRecordNotFound.
	SetPublished(ctx context.Context, collection models.Collection, id string, value bool) error
	// Method Delete removes a record, clears the active pointer it may hold and queues "released" media, all in one transaction.
	Delete(ctx context.Context, collection models.Collection, id string, released []models.PendingCleanup) error
}

// PublishedCache is the interface that wraps the read cache of published collections
type PublishedCache interface {
	// Method Get returns the cached published records of a collection, the cache generation
	// the read observed and whether there was a hit.
	Get(ctx context.Context, collection models.Collection) ([]models.ContentRecord, int64, bool)
	// Method Set stores the published records of a collection under the generation returned by Get.
	// Records stored under a generation that was invalidated in the meantime are never served.
	Set(ctx context.Context, collection models.Collection, generation int64, records []models.ContentRecord)
	// Method Invalidate makes every earlier cached read of a collection unreachable.
	Invalidate(ctx context.Context, collection models.Collection)
}

// MediaReleaser is the interface that wraps the release of stored media no record references any more
type MediaReleaser interface {
	// Method PlanRelease turns media URLs into outbox entries tagged with "reason".
	PlanRelease(urls []string, reason string) []models.PendingCleanup
	// Method Release makes one best-effort attempt to delete each queued object.
	Release(ctx context.Context, items []models.PendingCleanup)
}

// ContentNotifier is the interface that wraps notifications about new content
type ContentNotifier interface {
	// Method ContentCreated announces a freshly created record to subscribed devices.
	//
	// Failures are logged by the implementation and never affect the creation.
	ContentCreated(ctx context.Context, rec *models.ContentRecord)
}

// ActiveCoordinator is the interface that wraps the exclusive-active transitions
type ActiveCoordinator interface {
	// Method SetActive makes the record the single active one, or clears it when "active" is false.
	SetActive(ctx context.Context, id string, active bool) (*models.ContentRecord, error)
}

type contentService struct {
	docs     DocumentRepository
	cache    PublishedCache
	media    MediaReleaser
	notifier ContentNotifier
	active   ActiveCoordinator
	now      func() time.Time
	logger   *zap.Logger
}

// NewContentService creates a new content service
func NewContentService(
	docs DocumentRepository,
	cache PublishedCache,
	media MediaReleaser,
	notifier ContentNotifier,
	active ActiveCoordinator,
	logger *zap.Logger,
) *contentService {
	return &contentService{
		docs:     docs,
		cache:    cache,
		media:    media,
		notifier: notifier,
		active:   active,
		now:      time.Now,
		logger:   logger,
	}
}

// ListPublished returns the records visible on the public site.
// Only records whose flag is true are returned; collections without a flag are always visible.
func (s *contentService) ListPublished(ctx context.Context, collection string) ([]models.ContentRecord, error) {
	spec, err := models.LookupCollection(collection)
	if err != nil {
		return nil, err
	}

	cached, gen, ok := s.cache.Get(ctx, spec.Name)
	if ok {
		return cached, nil
	}

	records, err := s.docs.List(ctx, spec.Name, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", spec.Name, err)
	}

	s.cache.Set(ctx, spec.Name, gen, records)
	return records, nil
}

// GetPublished returns one record if it is visible on the public site
func (s *contentService) GetPublished(ctx context.Context, collection, id string) (*models.ContentRecord, error) {
	spec, err := models.LookupCollection(collection)
	if err != nil {
		return nil, err
	}

	rec, err := s.docs.GetByID(ctx, spec.Name, id)
	if err != nil {
		return nil, err
	}
	if !rec.Published {
		return nil, models.ErrRecordNotFound
	}
	return rec, nil
}

// List returns every record of a collection, drafts included
func (s *contentService) List(ctx context.Context, collection string) ([]models.ContentRecord, error) {
	spec, err := models.LookupCollection(collection)
	if err != nil {
		return nil, err
	}

	records, err := s.docs.List(ctx, spec.Name, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", spec.Name, err)
	}
	return records, nil
}

// Get returns one record regardless of its flag
func (s *contentService) Get(ctx context.Context, collection, id string) (*models.ContentRecord, error) {
	spec, err := models.LookupCollection(collection)
	if err != nil {
		return nil, err
	}
	return s.docs.GetByID(ctx, spec.Name, id)
}

// Create validates and stores a new record.
//
// The flag falls back to the collection default when omitted. Ordered collections append at the end.
// Announcements and news trigger a notification once stored.
func (s *contentService) Create(ctx context.Context, collection string, raw map[string]any) (*models.ContentRecord, error) {
	spec, err := models.LookupCollection(collection)
	if err != nil {
		return nil, err
	}

	in, err := models.ParseRecordInput(spec, raw)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := &models.ContentRecord{
		ID:         uuid.NewString(),
		Collection: spec.Name,
		Fields:     in.Fields,
		Published:  spec.DefaultFlag,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	switch {
	case spec.FlagField == "":
		rec.Published = true
	case in.Flag != nil:
		rec.Published = *in.Flag
	}
	if spec.Exclusive && in.Active != nil {
		rec.IsActive = *in.Active
	}

	if err := s.docs.Create(ctx, rec); err != nil {
		s.logger.Error("failed to create record", zap.Error(err), zap.String("collection", collection))
		return nil, fmt.Errorf("failed to create record: %w", err)
	}
	s.cache.Invalidate(ctx, spec.Name)

	s.logger.Info("record created", zap.String("collection", collection), zap.String("id", rec.ID))

	if spec.Notify {
		s.notifier.ContentCreated(ctx, rec)
	}
	return rec, nil
}

// Update replaces the fields of a record.
// Media the new version no longer references is released after the update commits.
func (s *contentService) Update(ctx context.Context, collection, id string, raw map[string]any) (*models.ContentRecord, error) {
	spec, err := models.LookupCollection(collection)
	if err != nil {
		return nil, err
	}

	in, err := models.ParseRecordInput(spec, raw)
	if err != nil {
		return nil, err
	}

	rec, err := s.docs.GetByID(ctx, spec.Name, id)
	if err != nil {
		return nil, err
	}

	newURLs := spec.MediaURLs(in.Fields)
	var dropped []string
	for _, url := range spec.MediaURLs(rec.Fields) {
		if !slices.Contains(newURLs, url) {
			dropped = append(dropped, url)
		}
	}
	released := s.media.PlanRelease(dropped, models.CleanupReasonMediaReplaced)

	rec.Fields = in.Fields
	if spec.FlagField != "" && in.Flag != nil {
		rec.Published = *in.Flag
	}
	rec.UpdatedAt = s.now().UTC()

	if err := s.docs.Update(ctx, rec, released); err != nil {
		s.logger.Error("failed to update record", zap.Error(err), zap.String("collection", collection), zap.String("id", id))
		return nil, fmt.Errorf("failed to update record: %w", err)
	}
	s.cache.Invalidate(ctx, spec.Name)
	s.media.Release(ctx, released)

	if spec.Exclusive && in.Active != nil && *in.Active != rec.IsActive {
		return s.active.SetActive(ctx, id, *in.Active)
	}
	return rec, nil
}

// SetPublished toggles the visibility flag of a record ("open" for positions).
// The only precondition is that the record exists; setting the current value again is allowed.
func (s *contentService) SetPublished(ctx context.Context, collection, id string, value bool) error {
	spec, err := models.LookupCollection(collection)
	if err != nil {
		return err
	}
	if spec.FlagField == "" {
		return models.ErrFlagNotSupported
	}

	if err := s.docs.SetPublished(ctx, spec.Name, id, value); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, spec.Name)

	s.logger.Info("record flag changed",
		zap.String("collection", collection),
		zap.String("id", id),
		zap.String("flag", spec.FlagField),
		zap.Bool("value", value),
	)
	return nil
}

// Delete removes a record and releases its media.
// The record delete does not wait on the store; failed media deletes stay queued for the sweeper.
func (s *contentService) Delete(ctx context.Context, collection, id string) error {
	spec, err := models.LookupCollection(collection)
	if err != nil {
		return err
	}

	rec, err := s.docs.GetByID(ctx, spec.Name, id)
	if err != nil {
		return err
	}

	released := s.media.PlanRelease(spec.MediaURLs(rec.Fields), models.CleanupReasonRecordDeleted)
	if err := s.docs.Delete(ctx, spec.Name, id, released); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, spec.Name)

	s.logger.Info("record deleted", zap.String("collection", collection), zap.String("id", id), zap.Int("media", len(released)))

	s.media.Release(ctx, released)
	return nil
}

// ContentBlocks returns the published text blocks of a page as key -> content.
// An empty section matches every section of the page.
func (s *contentService) ContentBlocks(ctx context.Context, page, section string) (map[string]string, error) {
	if page == "" {
		return nil, models.InvalidRecordError("page is required")
	}

	records, err := s.ListPublished(ctx, string(models.CollectionContentBlocks))
	if err != nil {
		return nil, err
	}

	blocks := make(map[string]string)
	for _, rec := range records {
		if rec.Fields["page"] != page {
			continue
		}
		if section != "" && rec.Fields["section"] != section {
			continue
		}
		key, _ := rec.Fields["key"].(string)
		content, _ := rec.Fields["content"].(string)
		blocks[key] = content
	}
	return blocks, nil
}
