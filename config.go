package connpool

import (
	"log/slog"
	"time"
)

// Default configuration constants, matching the reference implementation's
// connpool/config.py byte for byte.
const (
	DefaultMaxConnectRetries     = 3
	DefaultMinConnTimeThreshold  = 10 * time.Millisecond
	DefaultMinQueryTimeThreshold = time.Millisecond
	DefaultMinLogTimeThreshold   = time.Second
	DefaultMinIdleTimeBeforeGC   = 120 * time.Second
	DefaultStatsCollectInterval  = 100 * time.Millisecond
)

// Config is the configuration required to create a Pool.
type Config struct {
	// MaxCapacity is the aggregate connection budget shared across every
	// block. Mandatory.
	MaxCapacity int

	// PermanentClassifier decides whether a connect error should skip
	// MaxConnectRetries. Defaults to a classifier that never treats an
	// error as permanent.
	PermanentClassifier PermanentClassifier

	// MaxConnectRetries bounds how many times a failed connect is retried
	// before the block's waiters are aborted with the last error.
	MaxConnectRetries int

	// MinConnTimeThreshold is the floor used when scheduling the next tick:
	// the delay is max(conntime_avg, MinConnTimeThreshold).
	MinConnTimeThreshold time.Duration

	// MinQueryTimeThreshold is the floor applied to querytime_avg when
	// computing calibrated demand, so a block with near-instant queries
	// still gets a representative, non-zero demand figure.
	MinQueryTimeThreshold time.Duration

	// MinLogTimeThreshold is the suppression window used by the log
	// batcher to coalesce high-frequency connection lifecycle events.
	MinLogTimeThreshold time.Duration

	// MinIdleTimeBeforeGC is the minimum time a connection must have sat
	// idle before the GC pass is allowed to reclaim it, and the minimum
	// spacing between GC runs.
	MinIdleTimeBeforeGC time.Duration

	// StatsCollectInterval is advisory metadata for external callers that
	// poll Snapshot rather than registering a StatsCollector; the pool
	// itself emits a snapshot once per tick.
	StatsCollectInterval time.Duration

	// Logger receives structured events for connect/disconnect/transfer/GC
	// activity. Defaults to slog.Default().
	Logger *slog.Logger
}

var defaultPermanentClassifier PermanentClassifier = func(error) bool { return false }

// ValidateAndDefault validates mandatory fields and fills in zero-valued
// ones with their defaults.
func (c *Config) ValidateAndDefault() error {
	if c.MaxCapacity <= 0 {
		return ErrInvalidMaxCapacity
	}
	if c.PermanentClassifier == nil {
		c.PermanentClassifier = defaultPermanentClassifier
	}
	if c.MaxConnectRetries <= 0 {
		c.MaxConnectRetries = DefaultMaxConnectRetries
	}
	if c.MinConnTimeThreshold <= 0 {
		c.MinConnTimeThreshold = DefaultMinConnTimeThreshold
	}
	if c.MinQueryTimeThreshold <= 0 {
		c.MinQueryTimeThreshold = DefaultMinQueryTimeThreshold
	}
	if c.MinLogTimeThreshold <= 0 {
		c.MinLogTimeThreshold = DefaultMinLogTimeThreshold
	}
	if c.MinIdleTimeBeforeGC <= 0 {
		c.MinIdleTimeBeforeGC = DefaultMinIdleTimeBeforeGC
	}
	if c.StatsCollectInterval <= 0 {
		c.StatsCollectInterval = DefaultStatsCollectInterval
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}
