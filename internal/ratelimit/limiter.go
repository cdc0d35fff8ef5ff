package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Limiter is a sliding-window limiter for one operation category. It keeps
// the timestamps of admitted requests and delays admission once the window
// is full.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	requests    []time.Time

	total      int64
	delayed    int64
	floodWaits int64
}

// Stats is a point-in-time snapshot of one limiter's counters.
type Stats struct {
	TotalRequests    int64 `json:"total_requests"`
	DelayedRequests  int64 `json:"delayed_requests"`
	FloodWaitErrors  int64 `json:"flood_wait_errors"`
	CurrentQueueSize int   `json:"current_queue_size"`
}

// NewLimiter constructs a Limiter admitting at most maxRequests per window.
func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{maxRequests: maxRequests, window: window}
}

// Acquire blocks until the caller may proceed without pushing the admitted
// rate above maxRequests per window, or until ctx is cancelled.
//
// The mutex is held across the backoff sleep on purpose: serializing
// callers in a full category is the price of never exceeding the ceiling.
// Cancellation releases the lock immediately.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.prune(now)

	if len(l.requests) >= l.maxRequests {
		wait := l.requests[0].Add(l.window).Sub(now)
		if wait > 0 {
			l.delayed++
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			l.prune(time.Now())
		}
	}

	l.requests = append(l.requests, time.Now())
	l.total++
	return nil
}

// HandleFloodWait pauses for the duration demanded by an explicit backoff
// signal. It is independent of the window bookkeeping.
func (l *Limiter) HandleFloodWait(ctx context.Context, d time.Duration) error {
	l.mu.Lock()
	l.floodWaits++
	l.mu.Unlock()
	log.Warn().Dur("wait", d).Msg("flood wait: backing off")
	return sleep(ctx, d)
}

// Stats returns the limiter's counters.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		TotalRequests:    l.total,
		DelayedRequests:  l.delayed,
		FloodWaitErrors:  l.floodWaits,
		CurrentQueueSize: len(l.requests),
	}
}

// prune drops request timestamps that have fallen out of the window.
// Caller holds l.mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for ; i < len(l.requests); i++ {
		if l.requests[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		l.requests = append(l.requests[:0], l.requests[i:]...)
	}
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
