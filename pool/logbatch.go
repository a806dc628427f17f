package pool

import (
	"log/slog"
	"time"
)

// logBatcher coalesces high-frequency connection lifecycle events into a
// single summarized log line per suppression window, mirroring
// Block.log_connection/_log_batched_conns in the reference pool. It is
// observability only and must never influence scheduling decisions.
type logBatcher struct {
	logger    *slog.Logger
	dbname    string
	threshold time.Duration

	batching  bool
	lastLog   time.Time
	events    map[string]int
	timer     *time.Timer
	afterFlush func()
}

func newLogBatcher(logger *slog.Logger, dbname string, threshold time.Duration) *logBatcher {
	return &logBatcher{logger: logger, dbname: dbname, threshold: threshold, events: make(map[string]int)}
}

// log records event. Call with the pool mutex held; any deferred flush is
// scheduled via time.AfterFunc and re-acquires the mutex itself through
// afterFlush, which callers must set to a function that does so.
func (b *logBatcher) log(event string) {
	now := time.Now()

	if b.batching {
		b.events[event]++
		return
	}

	if !b.lastLog.IsZero() && now.Sub(b.lastLog) <= b.threshold {
		b.batching = true
		b.events[event]++
		if b.afterFlush != nil {
			b.timer = time.AfterFunc(b.threshold, b.afterFlush)
		}
		return
	}

	b.lastLog = now
	b.logger.Debug("connection lifecycle event", "dbname", b.dbname, "event", event)
}

// flush emits the coalesced counts collected during a batching window. Call
// with the pool mutex held.
func (b *logBatcher) flush() {
	if !b.batching {
		return
	}
	b.batching = false
	b.lastLog = time.Now()
	if len(b.events) == 0 {
		return
	}
	attrs := make([]any, 0, len(b.events)*2)
	for event, count := range b.events {
		attrs = append(attrs, event, count)
	}
	b.logger.Info("batched connection lifecycle events", append([]any{"dbname", b.dbname}, attrs...)...)
	b.events = make(map[string]int)
}
