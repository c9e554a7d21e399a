package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores each knowledge base as one hash of buckets that expires ttl
// after its last write.
type Redis struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedis returns a store on rdb.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{redis: rdb, ttl: ttl}
}

func (r *Redis) key(namespace string, kb string) string {
	return fmt.Sprintf("gmconsole:library:%s:%s", namespace, kb)
}

// Get returns the bucket value or ErrMiss.
func (r *Redis) Get(ctx context.Context, namespace string, kb string, bucket string) ([]byte, error) {
	raw, err := r.redis.HGet(ctx, r.key(namespace, kb), bucket).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("library cache hget: %w", err)
	}
	return raw, nil
}

// Set writes the bucket; a nil value deletes it.
func (r *Redis) Set(ctx context.Context, namespace string, kb string, bucket string, value []byte) error {
	key := r.key(namespace, kb)
	if value == nil {
		if err := r.redis.HDel(ctx, key, bucket).Err(); err != nil {
			return fmt.Errorf("library cache hdel: %w", err)
		}
		return nil
	}
	pipe := r.redis.TxPipeline()
	pipe.HSet(ctx, key, bucket, value)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("library cache hset: %w", err)
	}
	return nil
}

// Clear deletes every bucket of kb.
func (r *Redis) Clear(ctx context.Context, namespace string, kb string) error {
	if err := r.redis.Del(ctx, r.key(namespace, kb)).Err(); err != nil {
		return fmt.Errorf("library cache del: %w", err)
	}
	return nil
}
