// Package cache keeps per knowledge base buckets for the library hub.
package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/louisbranch/gmconsole/internal/services/console/platform/observability"
	"github.com/rs/zerolog"
)

// Buckets.
const (
	BucketExplore   = "explore"
	BucketEntities  = "entities"
	BucketDashboard = "dashboard"
	BucketMindmap   = "mindmap"
)

// ErrMiss is returned by stores for absent entries.
var ErrMiss = errors.New("cache miss")

// Store holds encoded bucket values under a namespace and knowledge base.
type Store interface {
	Get(ctx context.Context, namespace string, kb string, bucket string) ([]byte, error)
	Set(ctx context.Context, namespace string, kb string, bucket string, value []byte) error
	Clear(ctx context.Context, namespace string, kb string) error
}

// Cache is one session's view of a Store.
type Cache struct {
	store     Store
	namespace string
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// New returns a cache scoped to namespace. A nil store keeps entries in
// memory.
func New(store Store, namespace string, metrics *observability.Metrics, logger zerolog.Logger) *Cache {
	if store == nil {
		store = NewMemory()
	}
	return &Cache{store: store, namespace: namespace, metrics: metrics, logger: logger}
}

// Load decodes the bucket of kb into out and reports whether it was present.
// Store failures count as misses.
func (c *Cache) Load(ctx context.Context, kb string, bucket string, out any) bool {
	data, err := c.store.Get(ctx, c.namespace, kb, bucket)
	switch {
	case errors.Is(err, ErrMiss):
		c.count(bucket, "miss")
		return false
	case err != nil:
		c.count(bucket, "error")
		c.logger.Warn().Err(err).Str("kb", kb).Str("bucket", bucket).Msg("cache read failed")
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.count(bucket, "error")
		return false
	}
	c.count(bucket, "hit")
	return true
}

// Save encodes value into the bucket of kb.
func (c *Cache) Save(ctx context.Context, kb string, bucket string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("bucket", bucket).Msg("cache encode failed")
		return
	}
	if err := c.store.Set(ctx, c.namespace, kb, bucket, data); err != nil {
		c.logger.Warn().Err(err).Str("kb", kb).Str("bucket", bucket).Msg("cache write failed")
	}
}

// Drop removes one bucket of kb.
func (c *Cache) Drop(ctx context.Context, kb string, bucket string) {
	if err := c.store.Set(ctx, c.namespace, kb, bucket, nil); err != nil {
		c.logger.Warn().Err(err).Str("kb", kb).Str("bucket", bucket).Msg("cache drop failed")
	}
}

// Clear removes every bucket of kb.
func (c *Cache) Clear(ctx context.Context, kb string) {
	if err := c.store.Clear(ctx, c.namespace, kb); err != nil {
		c.logger.Warn().Err(err).Str("kb", kb).Msg("cache clear failed")
	}
}

func (c *Cache) count(bucket string, result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.CacheLookups.WithLabelValues(bucket, result).Inc()
}
