package pool

import (
	"container/list"
	"log/slog"
	"time"

	"github.com/sinhashubham95/connpool/rollavg"
)

// connState is the mutable state carried by a single connection handle
// while it belongs to a Block.
type connState struct {
	inUse        bool
	inUseSince   time.Time
	inStackSince time.Time
}

// Block holds every connection the pool currently has open against one
// logical database, plus the bookkeeping the calibration tick needs to
// decide how many of them it deserves.
//
// A Block is not safe for concurrent use on its own: every method below
// must be called with the owning Pool's mutex held, exactly as the
// reference implementation relies on its single cooperative thread never
// interleaving two mutations of the same block.
type Block[C comparable] struct {
	dbname string

	conns        map[C]*connState
	pendingConns int
	quota        int

	idle    idleStack[C]
	waiters *list.List // of *waiter

	waitersCount    int
	acquiredCount   int
	connectFailures int
	lastConnectTS   time.Time

	queryTimeAvg *rollavg.RollingAverage
	waitersAvg   *rollavg.RollingAverage

	suppressed bool

	log *logBatcher
}

func newBlock[C comparable](dbname string, logger *slog.Logger, logThreshold time.Duration) *Block[C] {
	return &Block[C]{
		dbname:       dbname,
		conns:        make(map[C]*connState),
		quota:        1,
		waiters:      list.New(),
		queryTimeAvg: rollavg.New(20),
		waitersAvg:   rollavg.New(3),
		log:          newLogBatcher(logger, dbname, logThreshold),
	}
}

// Dbname returns the database this block tracks.
func (b *Block[C]) Dbname() string { return b.dbname }

// Quota returns the block's current target connection count.
func (b *Block[C]) Quota() int { return b.quota }

// countConns is |conns| + pending_conns: the block's live share of capacity.
func (b *Block[C]) countConns() int {
	return len(b.conns) + b.pendingConns
}

func (b *Block[C]) countOverQuota() int {
	over := b.countConns() - b.quota
	if over < 0 {
		return 0
	}
	return over
}

// countApproxAvailable approximates idle capacity not already spoken for by
// a suspended waiter; approximate because a release may have completed but
// its wakeup has not yet resumed.
func (b *Block[C]) countApproxAvailable() int {
	a := b.countConns() - b.acquiredCount - b.waitersCount
	if a < 0 {
		return 0
	}
	return a
}

// tryStealLocked pops the bottom (least recently used) idle connection,
// optionally refusing unless it has sat idle since before olderThan.
func (b *Block[C]) tryStealLocked(olderThan *time.Time) (C, bool) {
	var zero C
	if b.idle.len() == 0 {
		return zero, false
	}
	if olderThan != nil {
		since, ok := b.idle.peekBottomSince()
		if !ok || since.After(*olderThan) {
			return zero, false
		}
	}
	conn, ok := b.idle.popBottom()
	if !ok {
		return zero, false
	}
	return conn, true
}

// enqueueWaiterLocked registers a new suspended acquirer. attempt>1 means
// the waiter was woken but lost the race for a connection and must not
// lose its place in the queue, so it re-enters at the front.
func (b *Block[C]) enqueueWaiterLocked(attempt int) (*waiter, *list.Element) {
	w := newWaiter()
	var elem *list.Element
	if attempt > 1 {
		elem = b.waiters.PushFront(w)
	} else {
		elem = b.waiters.PushBack(w)
	}
	return w, elem
}

// removeWaiterLocked drops elem from the queue if it is still linked. Safe
// to call even if release() already removed it.
func (b *Block[C]) removeWaiterLocked(elem *list.Element) {
	b.waiters.Remove(elem)
}

// wakeupNextLocked wakes the first not-yet-completed waiter, if any.
func (b *Block[C]) wakeupNextLocked() {
	for e := b.waiters.Front(); e != nil; e = b.waiters.Front() {
		w := e.Value.(*waiter)
		b.waiters.Remove(e)
		if !w.completed {
			w.complete(nil)
			return
		}
	}
}

// abortWaitersLocked fails every queued waiter with err, used when a
// connect permanently fails for this block.
func (b *Block[C]) abortWaitersLocked(err error) {
	for e := b.waiters.Front(); e != nil; e = b.waiters.Front() {
		w := e.Value.(*waiter)
		b.waiters.Remove(e)
		if !w.completed {
			w.complete(err)
		}
	}
}

// releaseLocked puts conn back on top of the idle stack and wakes at most
// one waiter.
func (b *Block[C]) releaseLocked(conn C, now time.Time) {
	st := b.conns[conn]
	if st == nil {
		st = &connState{}
		b.conns[conn] = st
	}
	st.inUse = false
	st.inStackSince = now
	b.idle.pushTop(conn, now)
	b.wakeupNextLocked()
}
