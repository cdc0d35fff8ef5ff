package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"telegram-bridge/internal/telegram"

	"github.com/rs/zerolog/log"
)

// HandleState tracks where a handle is in its lifecycle.
type HandleState string

const (
	StateCreated      HandleState = "created"
	StateConnected    HandleState = "connected"
	StateDisconnected HandleState = "disconnected"
	StateClosed       HandleState = "closed"
)

// ErrAcquireTimeout is returned when no handle becomes available in time.
// It is not fatal; the caller decides whether to retry.
var ErrAcquireTimeout = errors.New("pool: timed out waiting for a client")

// Handle wraps one client connection. Between Acquire and Release it is
// owned exclusively by the acquirer.
type Handle struct {
	ID     int
	Client telegram.Client

	mu    sync.Mutex
	state HandleState
}

// State returns the handle's lifecycle state.
func (h *Handle) State() HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) setState(s HandleState) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// Factory creates the i-th client for the pool.
type Factory func(id int) (telegram.Client, error)

// Health is a read-only snapshot of pool and connection health.
type Health struct {
	Total     int          `json:"total_clients"`
	Healthy   int          `json:"healthy"`
	Unhealthy int          `json:"unhealthy"`
	Available int          `json:"available"`
	InUse     int          `json:"in_use"`
	Breaker   BreakerState `json:"reconnect_breaker"`
}

// Stats is a snapshot of the pool's counters.
type Stats struct {
	TotalAcquisitions int64 `json:"total_acquisitions"`
	FailedConnections int64 `json:"failed_connections"`
	PoolSize          int   `json:"pool_size"`
	AvailableClients  int   `json:"available_clients"`
}

// Pool is a bounded FIFO pool of client handles.
type Pool struct {
	factory        Factory
	size           int
	acquireTimeout time.Duration
	breaker        *Breaker

	mu           sync.Mutex
	handles      []*Handle
	available    chan *Handle
	initialized  bool
	acquisitions int64
	failedConns  int64
}

// New constructs a pool of up to size handles. Handles are created on the
// first Acquire or an explicit Initialize.
func New(factory Factory, size int, acquireTimeout time.Duration) *Pool {
	return &Pool{
		factory:        factory,
		size:           size,
		acquireTimeout: acquireTimeout,
		breaker:        NewBreaker(3, 1, 30*time.Second),
	}
}

// Initialize creates and connects the pool's handles. Per-handle failures
// are counted and tolerated; the pool may come up below capacity. Calling
// it again is a no-op until after Shutdown.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}

	p.available = make(chan *Handle, p.size)
	p.handles = nil
	for i := 0; i < p.size; i++ {
		client, err := p.factory(i)
		if err != nil {
			p.failedConns++
			log.Warn().Err(err).Int("client", i).Msg("pool: client creation failed")
			continue
		}
		h := &Handle{ID: i, Client: client, state: StateCreated}
		if err := client.Connect(ctx); err != nil {
			p.failedConns++
			log.Warn().Err(err).Int("client", i).Msg("pool: client connect failed")
			continue
		}
		h.setState(StateConnected)
		p.handles = append(p.handles, h)
		p.available <- h
	}
	p.initialized = true
	log.Info().Int("connected", len(p.handles)).Int("requested", p.size).Msg("pool: initialized")
	return nil
}

// Acquire takes a handle from the availability queue, waiting up to timeout.
// The pool is lazily initialized on first use.
func (p *Pool) Acquire(ctx context.Context, timeout time.Duration) (*Handle, error) {
	if err := p.Initialize(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	available := p.available
	p.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case h := <-available:
		p.mu.Lock()
		p.acquisitions++
		p.mu.Unlock()
		return h, nil
	case <-timer.C:
		return nil, ErrAcquireTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a handle to the pool. A disconnected handle gets one
// reconnect attempt through the breaker; it is requeued either way so a
// later acquirer may retry.
func (p *Pool) Release(ctx context.Context, h *Handle) {
	if h == nil {
		return
	}
	p.mu.Lock()
	if !p.initialized || !p.owns(h) {
		p.mu.Unlock()
		return
	}
	available := p.available
	p.mu.Unlock()

	if !h.Client.IsConnected() {
		h.setState(StateDisconnected)
		err := p.breaker.Call(func() error { return h.Client.Connect(ctx) })
		if err != nil {
			log.Warn().Err(err).Int("client", h.ID).Msg("pool: reconnect failed")
		} else {
			h.setState(StateConnected)
		}
	}

	select {
	case available <- h:
	default:
		// queue replaced or full after a shutdown race; drop the handle
	}
}

// owns reports whether h belongs to the current handle set. Caller holds p.mu.
func (p *Pool) owns(h *Handle) bool {
	for _, have := range p.handles {
		if have == h {
			return true
		}
	}
	return false
}

// Execute runs fn with a pooled client, releasing the handle on every exit
// path.
func (p *Pool) Execute(ctx context.Context, fn func(ctx context.Context, client telegram.Client) error) error {
	h, err := p.Acquire(ctx, p.acquireTimeout)
	if err != nil {
		return err
	}
	defer p.Release(ctx, h)
	return fn(ctx, h.Client)
}

// HealthCheck scans every handle and reports connection health. It never
// mutates pool state.
func (p *Pool) HealthCheck() Health {
	p.mu.Lock()
	handles := make([]*Handle, len(p.handles))
	copy(handles, p.handles)
	available := 0
	if p.available != nil {
		available = len(p.available)
	}
	p.mu.Unlock()

	h := Health{
		Total:     len(handles),
		Available: available,
		InUse:     len(handles) - available,
		Breaker:   p.breaker.State(),
	}
	for _, handle := range handles {
		if handle.Client.IsConnected() {
			h.Healthy++
		} else {
			h.Unhealthy++
		}
	}
	return h
}

// Stats returns the pool's counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	available := 0
	if p.available != nil {
		available = len(p.available)
	}
	return Stats{
		TotalAcquisitions: p.acquisitions,
		FailedConnections: p.failedConns,
		PoolSize:          p.size,
		AvailableClients:  available,
	}
}

// Shutdown disconnects every handle and resets the pool. It is idempotent
// and a later Initialize brings the pool back up.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	for _, h := range p.handles {
		if err := h.Client.Disconnect(ctx); err != nil {
			log.Warn().Err(err).Int("client", h.ID).Msg("pool: disconnect failed")
		}
		h.setState(StateClosed)
	}
drain:
	for {
		select {
		case <-p.available:
		default:
			break drain
		}
	}
	p.handles = nil
	p.available = nil
	p.initialized = false
	log.Info().Msg("pool: shutdown complete")
}
