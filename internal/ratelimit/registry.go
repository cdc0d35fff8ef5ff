package ratelimit

import (
	"context"
	"time"

	"telegram-bridge/internal/config"
)

// Registry routes a category name to its limiter. Unknown categories fall
// back to "default".
type Registry struct {
	limiters map[string]*Limiter
}

// NewRegistry builds one limiter per configured category. A "default"
// category is always present.
func NewRegistry(limits map[string]config.RateLimit) *Registry {
	r := &Registry{limiters: make(map[string]*Limiter, len(limits))}
	for cat, rl := range limits {
		r.limiters[cat] = NewLimiter(rl.MaxRequests, rl.Window)
	}
	if _, ok := r.limiters["default"]; !ok {
		r.limiters["default"] = NewLimiter(20, time.Second)
	}
	return r
}

func (r *Registry) limiter(category string) *Limiter {
	if l, ok := r.limiters[category]; ok {
		return l
	}
	return r.limiters["default"]
}

// Acquire admits one request in the given category.
func (r *Registry) Acquire(ctx context.Context, category string) error {
	return r.limiter(category).Acquire(ctx)
}

// HandleFloodWait pauses the given category for d.
func (r *Registry) HandleFloodWait(ctx context.Context, category string, d time.Duration) error {
	return r.limiter(category).HandleFloodWait(ctx, d)
}

// Stats snapshots every category's counters.
func (r *Registry) Stats() map[string]Stats {
	out := make(map[string]Stats, len(r.limiters))
	for cat, l := range r.limiters {
		out[cat] = l.Stats()
	}
	return out
}
