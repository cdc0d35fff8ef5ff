package cache

import (
	"context"
	"time"
)

// Entry is one cached value with its insertion time. Expiry is computed by
// the cache layer, not the store.
type Entry struct {
	Value      any       `json:"value"`
	InsertedAt time.Time `json:"inserted_at"`
}

// Store is the cache's backing storage. The in-memory store relies on the
// cache's own mutex for exclusion; the Redis store is safe on its own and
// round-trips values through JSON.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) (int, error)
}
