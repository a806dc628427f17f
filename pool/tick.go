package pool

import (
	"math"
	"time"
)

// maybeScheduleTickLocked schedules the next calibration tick, delayed by
// max(conntime_avg, MinConnTimeThreshold), but only while there is
// outstanding demand to calibrate for.
func (p *Pool[C]) maybeScheduleTickLocked() {
	if p.tickScheduled {
		return
	}
	total := 0
	for _, name := range p.order {
		b := p.blocks[name]
		total += b.waitersCount + b.acquiredCount
	}
	if total == 0 {
		return
	}

	p.tickScheduled = true
	delay := time.Duration(p.conntimeAvg.Avg())
	if delay < p.cfg.MinConnTimeThreshold {
		delay = p.cfg.MinConnTimeThreshold
	}
	time.AfterFunc(delay, func() {
		p.mu.Lock()
		p.tickScheduled = false
		if !p.closed {
			p.tickLocked()
		}
		p.mu.Unlock()
	})
}

// tickLocked is the calibration loop described in §4.5.
func (p *Pool[C]) tickLocked() {
	p.emitSnapshotLocked()

	if len(p.order) == 1 {
		p.blocks[p.order[0]].quota = p.maxCapacity
		return
	}

	type demand struct {
		b      *Block[C]
		amount float64
	}

	aggregateWaiters := 0
	needAtLeast := 0
	var dropped []string
	for _, name := range p.order {
		b := p.blocks[name]
		nwaiters := b.waitersCount + b.acquiredCount
		b.waitersAvg.Add(float64(nwaiters))
		aggregateWaiters += nwaiters

		moving := math.Max(b.waitersAvg.Avg(), float64(nwaiters))
		if moving > 0 && !b.suppressed {
			needAtLeast++
		} else if moving == 0 && b.countConns() == 0 {
			dropped = append(dropped, name)
		}
	}
	for _, name := range dropped {
		p.removeBlockLocked(name)
	}

	wasStarving := p.wasStarving
	p.starving = needAtLeast >= p.maxCapacity
	p.wasStarving = p.starving

	if aggregateWaiters < p.maxCapacity {
		p.saturated = false
		if p.currentCapacity >= p.maxCapacity {
			p.rebalanceLocked()
		}
		return
	}
	p.saturated = true

	if p.starving {
		p.tickStarvingLocked(!wasStarving && len(p.waitlist) > 0)
	} else {
		p.tickSaturatedLocked()
		p.rebalanceLocked()
	}
}

// tickStarvingLocked implements Mode D: more active blocks than slots, so
// every block gets quota in {0, 1}. enteringStarving is true only on the
// first tick that transitions into the starving regime with a non-empty
// waitlist — the proactive steal-for-starving scan below runs only then,
// not on every starving tick.
func (p *Pool[C]) tickStarvingLocked(enteringStarving bool) {
	connTimeAvg := time.Duration(p.conntimeAvg.Avg())
	var zeroQuota []string

	for _, name := range p.order {
		b := p.blocks[name]
		switch {
		case b.countConns() == 1:
			if time.Since(b.lastConnectTS) < connTimeAvg {
				b.quota = 1
			} else {
				b.quota = 0
				zeroQuota = append(zeroQuota, name)
			}
		case b.countConns() > 1:
			b.quota = 0
			zeroQuota = append(zeroQuota, name)
		default:
			b.quota = 1
		}
	}

	for _, name := range zeroQuota {
		p.rotateToEndLocked(name)
	}

	if !enteringStarving {
		return
	}
	for _, name := range p.order {
		dst := p.blocks[name]
		if dst.countConns() > 0 || dst.waitersCount == 0 {
			continue
		}
		if _, ok := p.tryStealForLocked(dst); !ok {
			break
		}
	}
}

// tickSaturatedLocked implements Mode C: quota distributed proportionally
// to calibrated demand.
func (p *Pool[C]) tickSaturatedLocked() {
	minQueryTime := float64(p.cfg.MinQueryTimeThreshold)

	type entry struct {
		name   string
		demand float64
	}
	entries := make([]entry, 0, len(p.order))
	totalDemand := 0.0
	for _, name := range p.order {
		b := p.blocks[name]
		nwaiters := float64(b.waitersCount + b.acquiredCount)
		qt := b.queryTimeAvg.Avg()
		if qt < minQueryTime {
			qt = minQueryTime
		}
		d := maxFloat(b.waitersAvg.Avg(), nwaiters) * qt
		entries = append(entries, entry{name: name, demand: d})
		totalDemand += d
	}

	capacityLeft := p.maxCapacity
	if totalDemand <= 0 {
		for _, e := range entries {
			p.blocks[e.name].quota = 0
		}
		return
	}

	remaining := make([]entry, 0, len(entries))
	for _, e := range entries {
		share := float64(p.maxCapacity) * e.demand / totalDemand
		if share > 0 && share <= 1 {
			p.blocks[e.name].quota = 1
			capacityLeft--
			continue
		}
		remaining = append(remaining, e)
	}

	remainingDemand := 0.0
	for _, e := range remaining {
		remainingDemand += e.demand
	}

	if capacityLeft < 0 {
		capacityLeft = 0
	}
	if remainingDemand <= 0 || capacityLeft == 0 {
		for _, e := range remaining {
			p.blocks[e.name].quota = 0
		}
		return
	}

	acc := 0.0
	prevRounded := 0
	for _, e := range remaining {
		acc += float64(capacityLeft) * e.demand / remainingDemand
		rounded := int(math.Round(acc))
		p.blocks[e.name].quota = rounded - prevRounded
		prevRounded = rounded
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// rebalanceLocked shrinks over-quota blocks in favor of ones that need
// growth, and grows under-quota blocks when the pool has spare capacity.
func (p *Pool[C]) rebalanceLocked() {
	for _, name := range p.order {
		b := p.blocks[name]

		for b.countConns() > b.quota {
			if !p.shouldFreeLocked(b) {
				break
			}
			conn, ok := b.tryStealLocked(nil)
			if !ok {
				break
			}
			delete(b.conns, conn)
			if dst := p.findMostStarvingBlockLocked(); dst != nil {
				dst.pendingConns++
				go p.transferTask(b, conn, dst)
			} else {
				go p.discardTask(b, conn)
			}
		}

		if b.countConns() < b.quota && p.currentCapacity < p.maxCapacity {
			for b.countConns() < b.quota && p.currentCapacity < p.maxCapacity {
				p.scheduleNewConnectionLocked(b)
			}
		}
	}
}

// emitSnapshotLocked publishes the previous tick's state to the registered
// StatsCollector, if any, and begins a new snapshot window. The collector
// runs on its own goroutine, so a slow external sink never stalls
// calibration; snapshots are not dropped or coalesced, each one is
// delivered.
func (p *Pool[C]) emitSnapshotLocked() {
	if p.collector == nil {
		p.pendingLog = nil
		return
	}

	snap := Snapshot{
		Timestamp:             time.Now(),
		Capacity:              p.currentCapacity,
		Log:                   p.pendingLog,
		FailedConnects:        p.failedConnects,
		FailedDisconnects:     p.failedDisconnects,
		SuccessfulConnects:    p.successfulConnects,
		SuccessfulDisconnects: p.successfulDisconnects,
	}
	for _, name := range p.order {
		b := p.blocks[name]
		snap.Blocks = append(snap.Blocks, BlockSnapshot{
			Dbname:      b.dbname,
			NWaitersAvg: b.waitersAvg.Avg(),
			NConns:      len(b.conns),
			NPending:    b.pendingConns,
			NWaiters:    b.waitersCount,
			Quota:       b.quota,
		})
	}
	p.pendingLog = nil

	collector := p.collector
	go collector(snap)
}
