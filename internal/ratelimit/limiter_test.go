package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"telegram-bridge/internal/config"
)

func TestLimiterAdmitsUpToCapacity(t *testing.T) {
	l := NewLimiter(5, time.Second)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("admissions within capacity should not block, took %v", elapsed)
	}

	s := l.Stats()
	if s.TotalRequests != 5 {
		t.Fatalf("expected 5 total requests, got %d", s.TotalRequests)
	}
	if s.DelayedRequests != 0 {
		t.Fatalf("expected no delays, got %d", s.DelayedRequests)
	}
}

func TestLimiterDelaysBeyondCapacity(t *testing.T) {
	window := 200 * time.Millisecond
	l := NewLimiter(2, window)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)
	if elapsed < window-20*time.Millisecond {
		t.Fatalf("third admission should wait ~%v, took %v", window, elapsed)
	}
	if got := l.Stats().DelayedRequests; got != 1 {
		t.Fatalf("expected 1 delayed request, got %d", got)
	}
}

func TestLimiterConcurrentCeiling(t *testing.T) {
	window := 300 * time.Millisecond
	l := NewLimiter(3, window)

	var mu sync.Mutex
	var admitted []time.Time
	var wg sync.WaitGroup
	wg.Add(6)
	for i := 0; i < 6; i++ {
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			admitted = append(admitted, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	// no trailing window may contain more than 3 admissions
	for i := range admitted {
		count := 0
		for j := range admitted {
			d := admitted[i].Sub(admitted[j])
			if d >= 0 && d < window {
				count++
			}
		}
		if count > 3 {
			t.Fatalf("window around admission %d holds %d admissions", i, count)
		}
	}
}

func TestLimiterAcquireCancellation(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := l.Acquire(ctx)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("cancellation should release the limiter promptly")
	}
}

func TestHandleFloodWaitCounts(t *testing.T) {
	l := NewLimiter(10, time.Second)
	if err := l.HandleFloodWait(context.Background(), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if got := l.Stats().FloodWaitErrors; got != 1 {
		t.Fatalf("expected 1 flood wait, got %d", got)
	}
}

func TestRegistryRoutesUnknownToDefault(t *testing.T) {
	reg := NewRegistry(map[string]config.RateLimit{
		"read":    {MaxRequests: 30, Window: time.Second},
		"default": {MaxRequests: 20, Window: time.Second},
	})
	if err := reg.Acquire(context.Background(), "no-such-category"); err != nil {
		t.Fatal(err)
	}
	stats := reg.Stats()
	if stats["default"].TotalRequests != 1 {
		t.Fatalf("unknown category should hit default, got %+v", stats)
	}
	if stats["read"].TotalRequests != 0 {
		t.Fatalf("read limiter should be untouched, got %+v", stats)
	}
}

func TestRegistryAlwaysHasDefault(t *testing.T) {
	reg := NewRegistry(map[string]config.RateLimit{
		"write": {MaxRequests: 10, Window: time.Second},
	})
	if err := reg.Acquire(context.Background(), "default"); err != nil {
		t.Fatal(err)
	}
}
