// internal/store/cached.go
package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// Backend is the store a CachedStore reads through to.
type Backend interface {
	Get(ctx context.Context, collection, id string) (map[string]interface{}, error)
	MergeSet(ctx context.Context, collection, id string, partial map[string]interface{}) error
}

// CachedStore puts a Redis read-through cache in front of a Backend.
// Cache failures are logged and fall through to the backend.
type CachedStore struct {
	backend Backend
	redis   *redis.Client
	ttl     time.Duration
	logger  logger.Logger
}

func NewCachedStore(backend Backend, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &CachedStore{
		backend: backend,
		redis:   rdb,
		ttl:     ttl,
		logger:  log.WithFields(map[string]interface{}{"component": "document-cache"}),
	}
}

func cacheKey(collection, id string) string {
	return fmt.Sprintf("doc:%s:%s", collection, id)
}

// versionKey changes on every write; a cache fill watching it is dropped when a write
// lands between the backend read and the fill.
func versionKey(collection, id string) string {
	return fmt.Sprintf("docver:%s:%s", collection, id)
}

func (c *CachedStore) Get(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	key := cacheKey(collection, id)

	raw, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		doc := map[string]interface{}{}
		if jsonErr := json.Unmarshal(raw, &doc); jsonErr == nil {
			metrics.EntitlementCacheLookups.WithLabelValues("hit").Inc()
			return doc, nil
		}
		c.logger.Warn("Discarding unreadable cache entry", map[string]interface{}{"key": key})
	case stderrors.Is(err, redis.Nil):
	default:
		c.logger.Warn("Cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	metrics.EntitlementCacheLookups.WithLabelValues("miss").Inc()

	var (
		doc        map[string]interface{}
		backendErr error
		loaded     bool
	)
	fillErr := c.redis.Watch(ctx, func(tx *redis.Tx) error {
		doc, backendErr = c.backend.Get(ctx, collection, id)
		loaded = true
		if backendErr != nil {
			return nil
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, versionKey(collection, id))

	if !loaded {
		doc, backendErr = c.backend.Get(ctx, collection, id)
	}
	if backendErr != nil {
		return nil, backendErr
	}

	switch {
	case fillErr == nil:
	case stderrors.Is(fillErr, redis.TxFailedErr):
		c.logger.Debug("Skipped cache fill for a document written during the read", map[string]interface{}{"key": key})
	default:
		c.logger.Warn("Cache write failed", map[string]interface{}{"key": key, "error": fillErr.Error()})
	}
	return doc, nil
}

// MergeSet writes through to the backend, bumps the document version so in-flight
// fills are discarded, and drops the cached copy.
func (c *CachedStore) MergeSet(ctx context.Context, collection, id string, partial map[string]interface{}) error {
	if err := c.backend.MergeSet(ctx, collection, id, partial); err != nil {
		return err
	}
	if err := c.redis.Incr(ctx, versionKey(collection, id)).Err(); err != nil {
		c.logger.Warn("Cache version bump failed", map[string]interface{}{
			"collection": collection,
			"id":         id,
			"error":      err.Error(),
		})
	}
	c.Invalidate(ctx, collection, id)
	return nil
}

// Invalidate removes a cached document.
func (c *CachedStore) Invalidate(ctx context.Context, collection, id string) {
	if err := c.redis.Del(ctx, cacheKey(collection, id)).Err(); err != nil {
		c.logger.Warn("Cache invalidation failed", map[string]interface{}{
			"collection": collection,
			"id":         id,
			"error":      err.Error(),
		})
	}
}
