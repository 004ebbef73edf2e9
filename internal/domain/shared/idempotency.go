package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL is how long a claimed key is remembered when no TTL
// is configured
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore holds short-lived claims on keys. The HTTP layer claims
// Idempotency-Key values so a retried money movement is applied once, and
// the event bus claims event IDs so a handler sees each event once.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It reports false when the key is
	// already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether key holds a live claim
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release drops a claim so the key can be retried after a failure
	Release(ctx context.Context, key string) error

	Close() error
}
