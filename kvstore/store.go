// Package kvstore defines the TTL key-value store abstraction shared by the
// deduplication ledger and the conversation session tracker. Production
// deployments back it with an external atomic key-value service; tests and
// single-instance deployments use the in-memory implementation.
package kvstore

import (
	"context"
	"time"

	"github.com/samber/mo"
)

// Store is a string key-value space with per-key TTL semantics. Get must not
// return expired entries. Keys and Len only count live entries.
//
// The interface provides no compare-and-swap, so read-modify-write sequences
// on top of it are only safe under a single-worker deployment. Running more
// than one worker process requires a backing store with atomic primitives.
type Store interface {
	Get(ctx context.Context, key string) (mo.Option[string], error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Len(ctx context.Context, prefix string) (int, error)
	// Clear removes every entry under prefix and returns how many were
	// removed
	Clear(ctx context.Context, prefix string) (int, error)
	// Sweep removes expired entries eagerly and returns how many were
	// removed. Expiry is otherwise lazy on Get.
	Sweep(ctx context.Context) (int, error)
}
