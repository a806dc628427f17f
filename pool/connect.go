package pool

import "time"

// scheduleNewConnectionLocked reserves a capacity slot for b and dispatches
// an async connect task. Capacity is charged synchronously at the decision
// point so overlapping decisions never exceed the budget (§5).
func (p *Pool[C]) scheduleNewConnectionLocked(b *Block[C]) {
	p.currentCapacity++
	b.pendingConns++
	go p.connectTask(b)
}

func (p *Pool[C]) connectTask(b *Block[C]) {
	var lastErr error
	permanent := false

	// One initial attempt plus up to MaxConnectRetries retries before giving
	// up on this block's waiters.
	for attempt := 0; attempt <= p.cfg.MaxConnectRetries; attempt++ {
		start := time.Now()
		conn, err := p.connector(p.baseCtx, b.dbname)
		if err == nil {
			elapsed := time.Since(start)

			p.mu.Lock()
			p.conntimeAvg.Add(float64(elapsed))
			p.successfulConnects++
			b.pendingConns--
			b.lastConnectTS = time.Now()
			b.connectFailures = 0
			b.log.log("connect")
			p.logEventLocked(b.dbname, "connect")
			b.releaseLocked(conn, time.Now())
			p.mu.Unlock()
			return
		}

		lastErr = err
		b.connectFailures++

		p.mu.Lock()
		p.failedConnects++
		permanent = p.cfg.PermanentClassifier(err)
		p.mu.Unlock()

		if permanent {
			break
		}
	}

	p.mu.Lock()
	b.pendingConns--
	p.currentCapacity--
	b.abortWaitersLocked(lastErr)
	p.mu.Unlock()
}

// scheduleTransferLocked moves conn from src to dst without changing
// currentCapacity: src gives up ownership synchronously, dst's pending
// count absorbs it until the async disconnect/reconnect completes.
func (p *Pool[C]) scheduleTransferLocked(src *Block[C], conn C, dst *Block[C]) {
	delete(src.conns, conn)
	dst.pendingConns++
	go p.transferTask(src, conn, dst)
}

func (p *Pool[C]) transferTask(src *Block[C], conn C, dst *Block[C]) {
	if err := p.disconnector(p.baseCtx, conn); err != nil {
		p.mu.Lock()
		p.failedDisconnects++
		p.mu.Unlock()
	} else {
		p.mu.Lock()
		p.successfulDisconnects++
		p.mu.Unlock()
	}

	var lastErr error
	permanent := false
	var newConn C
	connected := false

	for attempt := 0; attempt <= p.cfg.MaxConnectRetries; attempt++ {
		start := time.Now()
		c, err := p.connector(p.baseCtx, dst.dbname)
		if err == nil {
			p.mu.Lock()
			p.conntimeAvg.Add(float64(time.Since(start)))
			p.successfulConnects++
			p.mu.Unlock()
			newConn = c
			connected = true
			break
		}
		lastErr = err
		p.mu.Lock()
		p.failedConnects++
		permanent = p.cfg.PermanentClassifier(err)
		p.mu.Unlock()
		if permanent {
			break
		}
	}

	p.mu.Lock()
	dst.pendingConns--
	if connected {
		dst.lastConnectTS = time.Now()
		dst.log.log("transfer")
		p.logEventLocked(dst.dbname, "transfer")
		dst.releaseLocked(newConn, time.Now())
	} else {
		p.currentCapacity--
		dst.abortWaitersLocked(lastErr)
	}
	p.mu.Unlock()
}

// scheduleDiscardLocked removes conn from b, disconnects it asynchronously
// (decrementing currentCapacity once the disconnect completes), and
// schedules a replacement connection for b so that discarding never leaves
// the block a connection short of its due share.
func (p *Pool[C]) scheduleDiscardLocked(b *Block[C], conn C) {
	delete(b.conns, conn)
	go p.discardTask(b, conn)
	p.scheduleNewConnectionLocked(b)
}

func (p *Pool[C]) discardTask(b *Block[C], conn C) {
	err := p.disconnector(p.baseCtx, conn)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failedDisconnects++
	} else {
		p.successfulDisconnects++
	}
	p.currentCapacity--
	b.log.log("discard")
	p.logEventLocked(b.dbname, "discard")
}
