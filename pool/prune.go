package pool

import (
	"context"

	"github.com/sinhashubham95/connpool"
	"golang.org/x/sync/errgroup"
)

// PruneInactive marks dbname's block suppressed (refusing inbound
// transfers), drains its idle stack and disconnects everything it
// collected. Only connections idle at call time are drained: connects
// still in flight are not awaited, and their connections land on the
// block's idle stack once they complete. Checked-out connections are left
// alone. The block itself is not removed; a future Acquire can resurrect it.
func (p *Pool[C]) PruneInactive(ctx context.Context, dbname string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return connpool.ErrPoolClosed
	}
	b, ok := p.blocks[dbname]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	b.suppressed = true

	var conns []C
	for {
		conn, ok := b.idle.popTop()
		if !ok {
			break
		}
		delete(b.conns, conn)
		conns = append(conns, conn)
	}
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, conn := range conns {
		conn := conn
		g.Go(func() error {
			err := p.disconnector(gctx, conn)
			p.mu.Lock()
			if err != nil {
				p.failedDisconnects++
			} else {
				p.successfulDisconnects++
			}
			p.currentCapacity--
			p.mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// PruneAll hard-kills every connection across every block, for HA failover.
// It does not wait for in-flight connects; one that completes afterwards
// attaches its connection to its block as usual.
func (p *Pool[C]) PruneAll(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return connpool.ErrPoolClosed
	}

	var conns []C
	for _, name := range p.order {
		b := p.blocks[name]
		b.suppressed = true
		b.idle = idleStack[C]{}
		for conn := range b.conns {
			conns = append(conns, conn)
		}
		b.conns = make(map[C]*connState)
		p.logEventLocked(b.dbname, "disconnect")
	}
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, conn := range conns {
		conn := conn
		g.Go(func() error {
			err := p.disconnector(gctx, conn)
			p.mu.Lock()
			if err != nil {
				p.failedDisconnects++
			} else {
				p.successfulDisconnects++
			}
			p.currentCapacity--
			p.mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}
