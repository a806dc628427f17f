// Package pool is the engineering core of connpool: it owns every Block,
// the global capacity budget, the calibration tick, the transfer/GC
// scheduler and the public Acquire/Release/Prune surface.
//
// Go is preemptively scheduled, unlike the reference implementation's
// single cooperative thread, so every mutation of pool or block state here
// is made behind one mutex instead of relying on there being no suspension
// between a check and its dependent write.
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/sinhashubham95/connpool"
	"github.com/sinhashubham95/connpool/rollavg"
)

// Pool schedules a bounded budget of backend connections across the blocks
// registered with it, recalibrating per-block quotas from observed demand.
type Pool[C comparable] struct {
	mu sync.Mutex

	cfg          connpool.Config
	connector    connpool.Connector[C]
	disconnector connpool.Disconnector[C]
	collector    StatsCollector

	maxCapacity     int
	currentCapacity int

	blocks   map[string]*Block[C]
	order    []string
	waitlist []string

	conntimeAvg *rollavg.RollingAverage

	tickScheduled bool

	gcScheduled      bool
	gcPendingRequest bool
	lastGC           time.Time

	starving    bool
	wasStarving bool
	saturated   bool

	failedConnects        int
	failedDisconnects     int
	successfulConnects    int
	successfulDisconnects int

	pendingLog []LogEntry

	closed  bool
	closing context.CancelFunc
	baseCtx context.Context
}

// New creates a Pool with the given configuration, connector and
// disconnector. cfg is validated and defaulted in place.
func New[C comparable](cfg connpool.Config, connector connpool.Connector[C], disconnector connpool.Disconnector[C]) (*Pool[C], error) {
	if err := cfg.ValidateAndDefault(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool[C]{
		cfg:          cfg,
		connector:    connector,
		disconnector: disconnector,
		maxCapacity:  cfg.MaxCapacity,
		blocks:       make(map[string]*Block[C]),
		conntimeAvg:  rollavg.New(10),
		baseCtx:      ctx,
		closing:      cancel,
	}, nil
}

// SetStatsCollector registers f to receive the Snapshot published at the
// start of every tick. Passing nil disables publication.
func (p *Pool[C]) SetStatsCollector(f StatsCollector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collector = f
}

// MaxCapacity is the aggregate connection budget.
func (p *Pool[C]) MaxCapacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxCapacity
}

// CurrentCapacity is the number of connections currently open or pending.
func (p *Pool[C]) CurrentCapacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentCapacity
}

// ActiveConns is the number of connections currently checked out.
func (p *Pool[C]) ActiveConns() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.blocks {
		n += b.acquiredCount
	}
	return n
}

// FailedConnects is the running count of connect attempts that failed.
func (p *Pool[C]) FailedConnects() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failedConnects
}

// FailedDisconnects is the running count of disconnects that returned an
// error (the connection is still considered gone).
func (p *Pool[C]) FailedDisconnects() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failedDisconnects
}

// blockLocked returns the block for dbname, creating it (and appending it
// to the round-robin order) if this is its first mention.
func (p *Pool[C]) blockLocked(dbname string) *Block[C] {
	if b, ok := p.blocks[dbname]; ok {
		return b
	}
	b := newBlock[C](dbname, p.cfg.Logger, p.cfg.MinLogTimeThreshold)
	b.log.afterFlush = func() {
		p.mu.Lock()
		b.log.flush()
		p.mu.Unlock()
	}
	p.blocks[dbname] = b
	p.order = append(p.order, dbname)
	return b
}

func (p *Pool[C]) removeBlockLocked(dbname string) {
	delete(p.blocks, dbname)
	for i, n := range p.order {
		if n == dbname {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	p.removeFromWaitlistLocked(dbname)
}

func (p *Pool[C]) removeFromWaitlistLocked(dbname string) {
	for i, n := range p.waitlist {
		if n == dbname {
			p.waitlist = append(p.waitlist[:i], p.waitlist[i+1:]...)
			return
		}
	}
}

func (p *Pool[C]) addToWaitlistLocked(b *Block[C]) {
	for _, n := range p.waitlist {
		if n == b.dbname {
			return
		}
	}
	p.waitlist = append(p.waitlist, b.dbname)
}

// rotateToEndLocked moves dbname to the end of the round-robin order, used
// by the starving-regime tick to favor fresh candidates on the next scan.
func (p *Pool[C]) rotateToEndLocked(dbname string) {
	for i, n := range p.order {
		if n == dbname {
			p.order = append(p.order[:i], p.order[i+1:]...)
			p.order = append(p.order, dbname)
			return
		}
	}
}

func (p *Pool[C]) logEventLocked(dbname, event string) {
	p.pendingLog = append(p.pendingLog, LogEntry{Timestamp: time.Now(), Event: event, Dbname: dbname})
}

// Acquire returns a connection scoped to dbname, creating the block on
// first use. It suspends until one is available, the connector's retries
// are exhausted for this block, or ctx is done.
func (p *Pool[C]) Acquire(ctx context.Context, dbname string) (C, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero C
	if p.closed {
		return zero, connpool.ErrPoolClosed
	}

	b := p.blockLocked(dbname)
	b.suppressed = false
	p.maybeScheduleTickLocked()

	if p.currentCapacity < p.maxCapacity {
		if len(p.order) == 1 {
			if b.idle.len() <= 1 {
				p.scheduleNewConnectionLocked(b)
			}
		} else if b.countConns() == 0 || b.countConns() < b.quota || b.countApproxAvailable() == 0 {
			p.scheduleNewConnectionLocked(b)
		}
		return p.blockAcquireLocked(ctx, b)
	}

	// saturated
	if b.countConns() == 0 {
		if _, ok := p.tryStealForLocked(b); !ok {
			p.addToWaitlistLocked(b)
		}
		return p.blockAcquireLocked(ctx, b)
	}
	if b.countConns() < b.quota {
		p.tryStealForLocked(b)
	}
	return p.blockAcquireLocked(ctx, b)
}

// blockAcquireLocked implements Block.acquire, suspending (releasing p.mu)
// on an empty idle stack and re-checking on wake, per §4.2/§5.
func (p *Pool[C]) blockAcquireLocked(ctx context.Context, b *Block[C]) (C, error) {
	attempt := 1
	for {
		conn, err, retry := p.tryAcquireOnceLocked(ctx, b, attempt)
		if err != nil {
			var zero C
			return zero, err
		}
		if !retry {
			return conn, nil
		}
		attempt++
	}
}

func (p *Pool[C]) tryAcquireOnceLocked(ctx context.Context, b *Block[C], attempt int) (conn C, err error, retry bool) {
	var zero C
	b.waitersCount++
	defer func() { b.waitersCount-- }()

	if b.idle.len() == 0 {
		w, elem := b.enqueueWaiterLocked(attempt)

		p.mu.Unlock()
		select {
		case <-w.ch:
		case <-ctx.Done():
		}
		p.mu.Lock()

		if !w.completed {
			// Canceled while still suspended.
			b.removeWaiterLocked(elem)
			if b.idle.len() > 0 {
				b.wakeupNextLocked()
			}
			return zero, connpool.ErrAcquireCanceled, false
		}
		if w.err != nil {
			return zero, w.err, false
		}
	}

	if c, ok := b.idle.popTop(); ok {
		st := b.conns[c]
		if st == nil {
			st = &connState{}
			b.conns[c] = st
		}
		st.inUse = true
		st.inUseSince = time.Now()
		b.acquiredCount++
		return c, nil, false
	}
	return zero, nil, true
}

// Release returns conn, previously acquired for dbname, to the pool.
// queryDuration is recorded in the block's rolling query-time average.
// discard forces the connection to be disconnected and replaced instead of
// reused.
func (p *Pool[C]) Release(ctx context.Context, dbname string, conn C, queryDuration time.Duration, discard bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return connpool.ErrPoolClosed
	}
	b, ok := p.blocks[dbname]
	if !ok {
		return connpool.ErrUnknownConnection
	}
	st, ok := b.conns[conn]
	if !ok || !st.inUse {
		return connpool.ErrUnknownConnection
	}

	st.inUse = false
	b.acquiredCount--
	b.queryTimeAvg.Add(float64(queryDuration))

	if discard {
		p.scheduleDiscardLocked(b, conn)
		return nil
	}

	if p.shouldFreeLocked(b) {
		if dst := p.findMostStarvingBlockLocked(); dst != nil {
			p.scheduleTransferLocked(b, conn, dst)
			return nil
		}
	}

	b.releaseLocked(conn, time.Now())
	p.requestGCLocked()
	return nil
}

// shouldFreeLocked implements the should_free(block) policy from §4.4.
func (p *Pool[C]) shouldFreeLocked(b *Block[C]) bool {
	if len(p.order) == 1 {
		return false
	}
	if !p.saturated && b.countConns() <= b.quota {
		return false
	}
	if p.starving && b.countConns() == 1 && b.waitersCount > 0 {
		age := time.Since(b.lastConnectTS)
		if age < time.Duration(p.conntimeAvg.Avg()) {
			return false
		}
	}
	return true
}

// findMostStarvingBlockLocked implements the three-priority destination
// search from §4.4.
func (p *Pool[C]) findMostStarvingBlockLocked() *Block[C] {
	for _, name := range append([]string(nil), p.waitlist...) {
		b, ok := p.blocks[name]
		if !ok {
			p.removeFromWaitlistLocked(name)
			continue
		}
		if b.countConns() > 0 {
			// See the Open Question resolution in DESIGN.md: the stricter
			// reading still skips this entry, but surfaces the violation.
			p.cfg.Logger.Warn("waitlisted block already holds a connection", "dbname", name)
			continue
		}
		if b.waitersCount > 0 {
			p.removeFromWaitlistLocked(name)
			return b
		}
	}

	var best *Block[C]
	for _, name := range p.order {
		b := p.blocks[name]
		if b.suppressed {
			continue
		}
		if b.countConns() == 0 && b.waitersCount > 0 {
			if best == nil || b.waitersCount > best.waitersCount {
				best = b
			}
		}
	}
	if best != nil {
		return best
	}

	bestGap := 0
	for _, name := range p.order {
		b := p.blocks[name]
		if b.suppressed {
			continue
		}
		gap := b.quota - b.countConns()
		if gap > 0 && gap > bestGap {
			best = b
			bestGap = gap
		}
	}
	return best
}

// tryStealForLocked attempts to steal an idle connection from any
// over-quota block on b's behalf, best effort.
func (p *Pool[C]) tryStealForLocked(b *Block[C]) (C, bool) {
	var zero C
	for _, name := range p.order {
		src := p.blocks[name]
		if src == b || src.countOverQuota() == 0 {
			continue
		}
		if conn, ok := src.tryStealLocked(nil); ok {
			delete(src.conns, conn)
			b.pendingConns++
			go p.transferTask(src, conn, b)
			return conn, true
		}
	}
	return zero, false
}

// IterConnections returns every connection handle currently tracked by the
// pool, for inspection only.
func (p *Pool[C]) IterConnections() []C {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []C
	for _, name := range p.order {
		b := p.blocks[name]
		for c := range b.conns {
			out = append(out, c)
		}
	}
	return out
}

// Close cancels all outstanding acquirers and stops background tasks. It
// does not wait for in-flight connect/disconnect tasks to finish.
func (p *Pool[C]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.closing()
	for _, name := range p.order {
		p.blocks[name].abortWaitersLocked(connpool.ErrPoolClosed)
	}
	return nil
}
