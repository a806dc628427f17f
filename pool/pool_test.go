package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sinhashubham95/connpool"
)

type testConn struct {
	id int64
}

type fakeBackend struct {
	mu         sync.Mutex
	nextID     int64
	connected  map[*testConn]bool
	failDBs    map[string]error
	permanent  map[string]bool
	connectDur time.Duration
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		connected: make(map[*testConn]bool),
		failDBs:   make(map[string]error),
		permanent: make(map[string]bool),
	}
}

func (f *fakeBackend) connect(_ context.Context, dbname string) (*testConn, error) {
	f.mu.Lock()
	if err, ok := f.failDBs[dbname]; ok {
		f.mu.Unlock()
		return nil, err
	}
	f.nextID++
	c := &testConn{id: f.nextID}
	f.connected[c] = true
	f.mu.Unlock()
	if f.connectDur > 0 {
		time.Sleep(f.connectDur)
	}
	return c, nil
}

func (f *fakeBackend) disconnect(_ context.Context, c *testConn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.connected, c)
	return nil
}

func (f *fakeBackend) classifier(err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, permanent := range f.permanent {
		if permanent && errors.Is(err, errInvalidDatabase) {
			return true
		}
	}
	return false
}

func (f *fakeBackend) connectedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.connected)
}

var errInvalidDatabase = errors.New("invalid database")

func newTestPool(t *testing.T, backend *fakeBackend, maxCapacity int) *Pool[*testConn] {
	t.Helper()
	cfg := connpool.Config{
		MaxCapacity:         maxCapacity,
		PermanentClassifier: backend.classifier,
		MinIdleTimeBeforeGC: 50 * time.Millisecond,
	}
	p, err := New[*testConn](cfg, backend.connect, backend.disconnect)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestAcquireRelease_SingleDBBoundedCapacity(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPool(t, backend, 6)
	ctx := context.Background()

	var wg sync.WaitGroup
	var peak atomic.Int64
	var cur atomic.Int64

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := p.Acquire(ctx, "db")
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := cur.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			cur.Add(-1)
			if err := p.Release(ctx, "db", conn, 5*time.Millisecond, false); err != nil {
				t.Errorf("Release: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak.Load() > 6 {
		t.Fatalf("peak concurrent connections = %d, want <= 6", peak.Load())
	}
	if got := p.CurrentCapacity(); got > 6 {
		t.Fatalf("CurrentCapacity() = %d, want <= 6", got)
	}
}

func TestRelease_UnknownConnectionErrors(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPool(t, backend, 2)
	ctx := context.Background()

	err := p.Release(ctx, "db", &testConn{id: 999}, 0, false)
	if !errors.Is(err, connpool.ErrUnknownConnection) {
		t.Fatalf("Release() = %v, want ErrUnknownConnection", err)
	}
}

func TestAcquire_PermanentFailureShortCircuits(t *testing.T) {
	backend := newFakeBackend()
	backend.failDBs["bad"] = errInvalidDatabase
	backend.permanent["bad"] = true
	p := newTestPool(t, backend, 4)
	ctx := context.Background()

	_, err := p.Acquire(ctx, "bad")
	if !errors.Is(err, errInvalidDatabase) {
		t.Fatalf("Acquire(bad) = %v, want errInvalidDatabase", err)
	}

	conn, err := p.Acquire(ctx, "good")
	if err != nil {
		t.Fatalf("Acquire(good): %v", err)
	}
	if err := p.Release(ctx, "good", conn, time.Millisecond, false); err != nil {
		t.Fatalf("Release(good): %v", err)
	}
}

func TestAcquire_CancellationDoesNotLeak(t *testing.T) {
	backend := newFakeBackend()
	backend.connectDur = 20 * time.Millisecond
	p := newTestPool(t, backend, 1)

	holder, err := p.Acquire(context.Background(), "db")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
			defer cancel()
			_, err := p.Acquire(ctx, "db")
			if err != nil && !errors.Is(err, connpool.ErrAcquireCanceled) {
				t.Errorf("Acquire: unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if err := p.Release(context.Background(), "db", holder, time.Millisecond, false); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if got := p.CurrentCapacity(); got != 1 {
		t.Fatalf("CurrentCapacity() = %d, want 1", got)
	}
}

// TestGC_ReclaimsIdleAfterThreshold matches spec.md scenario 5: hold every
// connection then release them all, and confirm current_capacity is still 8
// right after the releases, then drains to zero once MinIdleTimeBeforeGC
// has elapsed.
func TestGC_ReclaimsIdleAfterThreshold(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPool(t, backend, 10)
	ctx := context.Background()

	conns := make([]*testConn, 8)
	for i := range conns {
		conn, err := p.Acquire(ctx, "db")
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		conns[i] = conn
	}
	if got := backend.connectedCount(); got != 8 {
		t.Fatalf("connectedCount() = %d, want 8", got)
	}

	for _, conn := range conns {
		if err := p.Release(ctx, "db", conn, time.Millisecond, false); err != nil {
			t.Fatalf("Release: %v", err)
		}
	}

	if got := p.CurrentCapacity(); got != 8 {
		t.Fatalf("CurrentCapacity() right after release = %d, want 8 (GC hasn't fired yet)", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.CurrentCapacity() == 0 && backend.connectedCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("GC did not reclaim idle connections in time: CurrentCapacity=%d connected=%d",
		p.CurrentCapacity(), backend.connectedCount())
}

// TestRelease_DiscardReplacesConnection confirms discard=true disconnects
// the surrendered connection and schedules a fresh one for the same block,
// rather than just shrinking the block's share.
func TestRelease_DiscardReplacesConnection(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPool(t, backend, 3)
	ctx := context.Background()

	conn, err := p.Acquire(ctx, "db")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := p.Release(ctx, "db", conn, time.Millisecond, true); err != nil {
		t.Fatalf("Release(discard): %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatalf("discard did not settle on a replacement connection in time: CurrentCapacity=%d connected=%d",
				p.CurrentCapacity(), backend.connectedCount())
		}
		if p.CurrentCapacity() == 1 && backend.connectedCount() == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	replacement, err := p.Acquire(ctx, "db")
	if err != nil {
		t.Fatalf("Acquire after discard: %v", err)
	}
	if replacement == conn {
		t.Fatal("Acquire after discard handed back the discarded connection")
	}
	if err := p.Release(ctx, "db", replacement, time.Millisecond, false); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

// TestTryStealForLocked_TransfersFromOverQuotaBlock covers the steal+transfer
// mechanism scenario 2/3 rely on: a block with spare, over-quota idle
// connections gives one up to a block that has none.
func TestTryStealForLocked_TransfersFromOverQuotaBlock(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPool(t, backend, 3)

	p.mu.Lock()
	defer p.mu.Unlock()

	src := p.blockLocked("src")
	c1 := &testConn{id: 1}
	src.conns[c1] = &connState{}
	src.idle.pushTop(c1, time.Now())
	src.quota = 0

	dst := p.blockLocked("dst")

	conn, ok := p.tryStealForLocked(dst)
	if !ok {
		t.Fatal("tryStealForLocked() = (_, false), want true")
	}
	if conn != c1 {
		t.Fatalf("tryStealForLocked() = %v, want %v", conn, c1)
	}
	if _, stillOwned := src.conns[c1]; stillOwned {
		t.Error("src still owns the connection tryStealForLocked claimed to steal")
	}
	if dst.pendingConns != 1 {
		t.Errorf("dst.pendingConns = %d, want 1 (transfer in flight)", dst.pendingConns)
	}
}
