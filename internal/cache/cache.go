// Package cache provides the small cache contract shared by the in-process
// and Redis backends. The permission layer sits on top of it; which backend
// is wired depends on deployment config.
package cache

import (
	"context"
	"time"
)

type Client interface {
	// Get returns the value and whether the key was present and unexpired.
	Get(ctx context.Context, key string) (string, bool)

	// Set stores a value. ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Flush removes every key this client owns.
	Flush(ctx context.Context) error
}
