// Package cache provides the shared counter store behind the rate limiter and
// session cache. Two backends exist: a process-local map for single-instance
// deployments and tests, and Redis for multi-instance deployments.
package cache

import (
	"context"
	"time"
)

// Store is a shared key/value store with atomic counter support.
type Store interface {
	// IncrementWithTTL atomically increments key, starting a fresh window on
	// first use, and returns the current count with the remaining TTL.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
