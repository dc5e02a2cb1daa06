// Package cache keeps the published collections the public site reads in Redis
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/piwcasokwa/backend/internal/models"
	"go.uber.org/zap"
)

const (
	keyPrefix        = "published:"
	generationPrefix = "published:gen:"
)

// noGeneration marks a read whose generation is unknown; Set ignores it
const noGeneration int64 = -1

// redisClient is the part of *redis.Client the cache uses
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// cachedRecord is the storage shape of a record.
// ContentRecord marshals to the flattened site shape, which cannot be decoded back.
type cachedRecord struct {
	ID           string            `json:"id"`
	Collection   models.Collection `json:"collection"`
	Fields       map[string]any    `json:"fields"`
	Published    bool              `json:"published"`
	DisplayOrder *int              `json:"displayOrder,omitempty"`
	IsActive     bool              `json:"isActive"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

type publishedCache struct {
	client redisClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewPublishedCache creates a Redis backed cache of published collections.
// Redis failures are logged and treated as misses; the database stays the source of truth.
//
// Entries are keyed by a per-collection generation. Invalidate bumps the generation,
// so a list read before an invalidation is written under a key no reader looks up.
func NewPublishedCache(client redisClient, ttl time.Duration, logger *zap.Logger) *publishedCache {
	return &publishedCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached published records of a collection and the generation they belong to.
// On a miss the generation is still returned and must be handed back to Set.
func (c *publishedCache) Get(ctx context.Context, collection models.Collection) ([]models.ContentRecord, int64, bool) {
	gen, err := c.client.Get(ctx, generationKey(collection)).Int64()
	if errors.Is(err, redis.Nil) {
		gen = 0
	} else if err != nil {
		c.logger.Warn("cache read failed", zap.Error(err), zap.String("collection", string(collection)))
		return nil, noGeneration, false
	}

	data, err := c.client.Get(ctx, key(collection, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false
	}
	if err != nil {
		c.logger.Warn("cache read failed", zap.Error(err), zap.String("collection", string(collection)))
		return nil, noGeneration, false
	}

	var cached []cachedRecord
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("cache entry is corrupt", zap.Error(err), zap.String("collection", string(collection)))
		return nil, gen, false
	}

	records := make([]models.ContentRecord, 0, len(cached))
	for _, r := range cached {
		records = append(records, models.ContentRecord{
			ID:           r.ID,
			Collection:   r.Collection,
			Fields:       r.Fields,
			Published:    r.Published,
			DisplayOrder: r.DisplayOrder,
			IsActive:     r.IsActive,
			CreatedAt:    r.CreatedAt,
			UpdatedAt:    r.UpdatedAt,
		})
	}
	return records, gen, true
}

// Set stores the published records of a collection under "generation" for the configured TTL
func (c *publishedCache) Set(ctx context.Context, collection models.Collection, generation int64, records []models.ContentRecord) {
	if generation < 0 {
		return
	}

	cached := make([]cachedRecord, 0, len(records))
	for _, r := range records {
		cached = append(cached, cachedRecord{
			ID:           r.ID,
			Collection:   r.Collection,
			Fields:       r.Fields,
			Published:    r.Published,
			DisplayOrder: r.DisplayOrder,
			IsActive:     r.IsActive,
			CreatedAt:    r.CreatedAt,
			UpdatedAt:    r.UpdatedAt,
		})
	}

	data, err := json.Marshal(cached)
	if err != nil {
		c.logger.Warn("failed to encode cache entry", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, key(collection, generation), data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.Error(err), zap.String("collection", string(collection)))
	}
}

// Invalidate moves the collection to a new generation; older entries expire with their TTL
func (c *publishedCache) Invalidate(ctx context.Context, collection models.Collection) {
	if err := c.client.Incr(ctx, generationKey(collection)).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", zap.Error(err), zap.String("collection", string(collection)))
	}
}

func key(collection models.Collection, generation int64) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, collection, generation)
}

func generationKey(collection models.Collection) string {
	return generationPrefix + string(collection)
}
