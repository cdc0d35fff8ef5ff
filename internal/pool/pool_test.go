package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"telegram-bridge/internal/telegram"
)

// fakeClient implements telegram.Client for pool tests.
type fakeClient struct {
	mu          sync.Mutex
	connected   bool
	failConnect bool
	connects    int
}

func (f *fakeClient) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.failConnect {
		return errors.New("network unreachable")
	}
	f.connected = true
	return nil
}

func (f *fakeClient) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *fakeClient) setFailConnect(v bool) {
	f.mu.Lock()
	f.failConnect = v
	f.mu.Unlock()
}

func (f *fakeClient) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeClient) SendMessage(context.Context, string, string) error { return nil }

func (f *fakeClient) ForwardMessage(context.Context, string, int, string) error { return nil }

func (f *fakeClient) DeleteMessage(context.Context, string, int) error { return nil }

func (f *fakeClient) InviteToGroup(context.Context, string, string) error { return nil }

func (f *fakeClient) MarkRead(context.Context, string) error { return nil }

func (f *fakeClient) GetContacts(context.Context) ([]telegram.Contact, error) { return nil, nil }

func (f *fakeClient) GetEntity(context.Context, string) (telegram.Entity, error) {
	return telegram.Entity{}, nil
}

func newTestPool(t *testing.T, size int, clients []*fakeClient) *Pool {
	t.Helper()
	return New(func(id int) (telegram.Client, error) {
		return clients[id], nil
	}, size, time.Second)
}

func TestPoolCapacityAndTimeout(t *testing.T) {
	clients := []*fakeClient{{}, {}}
	p := newTestPool(t, 2, clients)
	ctx := context.Background()

	h1, err := p.Acquire(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := p.Acquire(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatal("two acquires returned the same handle")
	}

	start := time.Now()
	_, err = p.Acquire(ctx, 80*time.Millisecond)
	if !errors.Is(err, ErrAcquireTimeout) {
		t.Fatalf("expected ErrAcquireTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Fatalf("timed out too early: %v", elapsed)
	}

	p.Release(ctx, h1)
	h3, err := p.Acquire(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if h3 != h1 {
		t.Fatal("FIFO queue should hand back the released handle")
	}
}

func TestPoolAcquireUnblocksOnRelease(t *testing.T) {
	clients := []*fakeClient{{}}
	p := newTestPool(t, 1, clients)
	ctx := context.Background()

	h, err := p.Acquire(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire(ctx, time.Second)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	p.Release(ctx, h)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("blocked acquire should succeed after release: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("acquire did not unblock after release")
	}
}

func TestPoolInitializePartialFailure(t *testing.T) {
	p := New(func(id int) (telegram.Client, error) {
		if id == 0 {
			return nil, errors.New("create failed")
		}
		return &fakeClient{}, nil
	}, 3, time.Second)

	if err := p.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := p.Stats()
	if s.FailedConnections != 1 {
		t.Fatalf("expected 1 failed connection, got %d", s.FailedConnections)
	}
	if s.AvailableClients != 2 {
		t.Fatalf("expected 2 available clients, got %d", s.AvailableClients)
	}
}

func TestPoolInitializeIdempotent(t *testing.T) {
	created := 0
	p := New(func(id int) (telegram.Client, error) {
		created++
		return &fakeClient{}, nil
	}, 2, time.Second)
	ctx := context.Background()

	if err := p.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	if created != 2 {
		t.Fatalf("expected 2 clients created, got %d", created)
	}
}

func TestPoolReleaseReconnectsDisconnected(t *testing.T) {
	client := &fakeClient{}
	p := newTestPool(t, 1, []*fakeClient{client})
	ctx := context.Background()

	h, err := p.Acquire(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	client.setConnected(false)
	p.Release(ctx, h)

	if !client.IsConnected() {
		t.Fatal("release should reconnect a disconnected client")
	}
	if h.State() != StateConnected {
		t.Fatalf("expected state connected, got %s", h.State())
	}
	if client.connectCount() != 2 {
		t.Fatalf("expected 2 connects, got %d", client.connectCount())
	}
}

func TestPoolReleaseRequeuesOnReconnectFailure(t *testing.T) {
	client := &fakeClient{}
	p := newTestPool(t, 1, []*fakeClient{client})
	ctx := context.Background()

	h, err := p.Acquire(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	client.setConnected(false)
	client.setFailConnect(true)
	p.Release(ctx, h)

	// handle must come back even though reconnect failed
	h2, err := p.Acquire(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("handle should be requeued after failed reconnect: %v", err)
	}
	if h2.State() != StateDisconnected {
		t.Fatalf("expected state disconnected, got %s", h2.State())
	}
}

func TestPoolExecuteReleasesOnError(t *testing.T) {
	p := newTestPool(t, 1, []*fakeClient{{}})
	ctx := context.Background()

	boom := errors.New("operation failed")
	if err := p.Execute(ctx, func(context.Context, telegram.Client) error {
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected operation error, got %v", err)
	}

	// handle must be back despite the failure
	if _, err := p.Acquire(ctx, 100*time.Millisecond); err != nil {
		t.Fatalf("handle leaked after Execute failure: %v", err)
	}
}

func TestPoolHealthCheck(t *testing.T) {
	clients := []*fakeClient{{}, {}, {}}
	p := newTestPool(t, 3, clients)
	ctx := context.Background()
	if err := p.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Acquire(ctx, 100*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	clients[2].setConnected(false)

	h := p.HealthCheck()
	if h.Total != 3 {
		t.Fatalf("expected 3 total, got %d", h.Total)
	}
	if h.Healthy != 2 || h.Unhealthy != 1 {
		t.Fatalf("expected 2 healthy / 1 unhealthy, got %d/%d", h.Healthy, h.Unhealthy)
	}
	if h.Available != 2 || h.InUse != 1 {
		t.Fatalf("expected 2 available / 1 in use, got %d/%d", h.Available, h.InUse)
	}
}

func TestPoolShutdownAndReinitialize(t *testing.T) {
	clients := []*fakeClient{{}, {}}
	p := newTestPool(t, 2, clients)
	ctx := context.Background()

	if err := p.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	p.Shutdown(ctx)
	p.Shutdown(ctx) // idempotent

	for i, c := range clients {
		if c.IsConnected() {
			t.Fatalf("client %d still connected after shutdown", i)
		}
	}
	if s := p.Stats(); s.AvailableClients != 0 {
		t.Fatalf("expected empty pool after shutdown, got %d", s.AvailableClients)
	}

	// pool comes back up lazily
	if _, err := p.Acquire(ctx, 100*time.Millisecond); err != nil {
		t.Fatalf("acquire after shutdown should reinitialize: %v", err)
	}
}
