package pool

import (
	"testing"
	"time"
)

// TestTickSaturatedLocked_ProportionalQuotas exercises Mode C's
// demand-proportional rounding-accumulator distribution directly, bypassing
// timing-sensitive Acquire/Release traffic.
func TestTickSaturatedLocked_ProportionalQuotas(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPool(t, backend, 10)

	p.mu.Lock()
	defer p.mu.Unlock()

	a := p.blockLocked("a")
	a.waitersCount = 6
	a.waitersAvg.Add(6)
	a.queryTimeAvg.Add(float64(10 * time.Millisecond))

	b := p.blockLocked("b")
	b.waitersCount = 3
	b.waitersAvg.Add(3)
	b.queryTimeAvg.Add(float64(10 * time.Millisecond))

	c := p.blockLocked("c")
	c.waitersCount = 1
	c.waitersAvg.Add(1)
	c.queryTimeAvg.Add(float64(10 * time.Millisecond))

	p.tickSaturatedLocked()

	if a.quota != 6 {
		t.Errorf("a.quota = %d, want 6", a.quota)
	}
	if b.quota != 3 {
		t.Errorf("b.quota = %d, want 3", b.quota)
	}
	if c.quota != 1 {
		t.Errorf("c.quota = %d, want 1", c.quota)
	}
	if sum := a.quota + b.quota + c.quota; sum != p.maxCapacity {
		t.Errorf("quota sum = %d, want maxCapacity %d", sum, p.maxCapacity)
	}
}

// TestTickSaturatedLocked_NoDemandZerosEveryQuota covers the totalDemand<=0
// branch: blocks that never recorded a waiter or query time get no quota.
func TestTickSaturatedLocked_NoDemandZerosEveryQuota(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPool(t, backend, 4)

	p.mu.Lock()
	defer p.mu.Unlock()

	a := p.blockLocked("a")
	b := p.blockLocked("b")

	p.tickSaturatedLocked()

	if a.quota != 0 || b.quota != 0 {
		t.Errorf("quotas = (%d, %d), want (0, 0)", a.quota, b.quota)
	}
}

// TestTickStarvingLocked_QuotaAndRotation exercises Mode D's per-block
// quota-in-{0,1} assignment and the rotation of zero-quota blocks to the end
// of the round-robin order.
func TestTickStarvingLocked_QuotaAndRotation(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPool(t, backend, 2)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.conntimeAvg.Add(float64(50 * time.Millisecond))

	recent := p.blockLocked("recent")
	recent.conns[&testConn{id: 1}] = &connState{}
	recent.lastConnectTS = time.Now()

	stale := p.blockLocked("stale")
	stale.conns[&testConn{id: 2}] = &connState{}
	stale.lastConnectTS = time.Now().Add(-time.Hour)

	busy := p.blockLocked("busy")
	busy.conns[&testConn{id: 3}] = &connState{}
	busy.conns[&testConn{id: 4}] = &connState{}

	empty := p.blockLocked("empty")
	empty.waitersCount = 1

	p.tickStarvingLocked(false)

	if recent.quota != 1 {
		t.Errorf("recent.quota = %d, want 1 (just connected, within conntimeAvg)", recent.quota)
	}
	if stale.quota != 0 {
		t.Errorf("stale.quota = %d, want 0 (single conn, past conntimeAvg)", stale.quota)
	}
	if busy.quota != 0 {
		t.Errorf("busy.quota = %d, want 0 (more than one conn)", busy.quota)
	}
	if empty.quota != 1 {
		t.Errorf("empty.quota = %d, want 1 (no conn yet)", empty.quota)
	}

	wantOrder := []string{"recent", "empty", "stale", "busy"}
	if len(p.order) != len(wantOrder) {
		t.Fatalf("order = %v, want %v", p.order, wantOrder)
	}
	for i := range wantOrder {
		if p.order[i] != wantOrder[i] {
			t.Fatalf("order = %v, want %v", p.order, wantOrder)
		}
	}
}

// TestTickStarvingLocked_ProactiveStealOnlyWhenEntering verifies the
// steal-for-starving-blocks scan runs only when enteringStarving is true,
// and only then moves an idle connection from an over-quota block toward a
// waiting, connectionless one.
func TestTickStarvingLocked_ProactiveStealOnlyWhenEntering(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPool(t, backend, 2)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.conntimeAvg.Add(float64(time.Millisecond))

	source := p.blockLocked("source")
	c1, c2 := &testConn{id: 1}, &testConn{id: 2}
	source.conns[c1] = &connState{}
	source.conns[c2] = &connState{}
	source.idle.pushTop(c1, time.Now())
	source.idle.pushTop(c2, time.Now())
	source.lastConnectTS = time.Now().Add(-time.Hour)

	dest := p.blockLocked("dest")
	dest.waitersCount = 1

	// Not entering starving: quotas/rotation still happen, but nothing is
	// stolen even though dest has an outstanding waiter and no connection.
	p.tickStarvingLocked(false)
	if len(source.conns) != 2 {
		t.Fatalf("len(source.conns) = %d, want 2 (no steal without enteringStarving)", len(source.conns))
	}
	if dest.pendingConns != 0 {
		t.Fatalf("dest.pendingConns = %d, want 0 (no steal without enteringStarving)", dest.pendingConns)
	}

	p.tickStarvingLocked(true)

	if len(source.conns) != 1 {
		t.Errorf("len(source.conns) = %d, want 1 after entering-starving steal", len(source.conns))
	}
	if dest.pendingConns != 1 {
		t.Errorf("dest.pendingConns = %d, want 1 (transfer in flight)", dest.pendingConns)
	}
}
