package pool

import "time"

// requestGCLocked is called by every release() that puts a connection back
// on an idle stack. The first request after a quiet period schedules the
// next GC run; requests within min_idle_before_gc of the last run coalesce
// into one.
func (p *Pool[C]) requestGCLocked() {
	if p.starving {
		return
	}
	if p.gcScheduled {
		p.gcPendingRequest = true
		return
	}

	delay := p.cfg.MinIdleTimeBeforeGC
	if since := time.Since(p.lastGC); since < delay {
		delay -= since
	}
	p.gcScheduled = true
	time.AfterFunc(delay, func() {
		p.mu.Lock()
		p.gcScheduled = false
		again := p.gcPendingRequest
		p.gcPendingRequest = false
		if !p.closed {
			p.runGCLocked()
		}
		p.mu.Unlock()
		if again {
			p.mu.Lock()
			p.requestGCLocked()
			p.mu.Unlock()
		}
	})
}

// runGCLocked reclaims connections that have sat idle past
// MinIdleTimeBeforeGC. It never runs while the pool is starving: the slots
// are needed.
func (p *Pool[C]) runGCLocked() {
	if p.starving {
		return
	}
	p.lastGC = time.Now()
	cutoff := time.Now().Add(-p.cfg.MinIdleTimeBeforeGC)

	for _, name := range p.order {
		b := p.blocks[name]
		for {
			conn, ok := b.tryStealLocked(&cutoff)
			if !ok {
				break
			}
			delete(b.conns, conn)
			go p.discardTask(b, conn)
		}
	}
}
