// Package cache is the read-through result cache placed in front of the
// scoring operations. Failures of the backing store are treated as misses.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/legaldesk/insights/internal/metrics"
	"github.com/legaldesk/insights/pkg/logger"
)

// Store is the Cache Gateway: a key/value store with per-entry expiry.
type Store interface {
	// Get reports found=false with a nil error on a plain miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ReadThrough returns the cached value for key, or runs compute and stores its
// result for ttl. Errors from compute are returned and never cached. Two
// concurrent misses on the same key both run compute.
func ReadThrough[T any](ctx context.Context, store Store, op, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	if store != nil {
		if cached, ok := lookup[T](ctx, store, op, key); ok {
			metrics.RecordCacheHit(op)
			return cached, nil
		}
		metrics.RecordCacheMiss(op)
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	if store != nil {
		populate(ctx, store, key, value, ttl)
	}
	return value, nil
}

func lookup[T any](ctx context.Context, store Store, op, key string) (T, bool) {
	var zero T

	data, found, err := store.Get(ctx, key)
	if err != nil {
		logger.Warn("Cache read failed, computing fresh result",
			zap.String("operation", op),
			zap.String("key", key),
			zap.Error(err),
		)
		return zero, false
	}
	if !found {
		return zero, false
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	return value, true
}

func populate[T any](ctx context.Context, store Store, key string, value T, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := store.Set(ctx, key, data, ttl); err != nil {
		logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}
