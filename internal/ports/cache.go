package ports

import (
	"context"
	"time"
)

// Cache is a string key-value store with per-entry TTL.
// Adapters exist for the relational store and for Redis.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value; ttl <= 0 keeps it until deleted.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
