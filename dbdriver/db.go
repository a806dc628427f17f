// Package dbdriver is the backend a connpool.Pool actually dials: it wraps
// a registered database/sql/driver.DriverContext as the Connect/Close pair
// a connpool.Connector[*Connection]/connpool.Disconnector[*Connection] wrap
// in turn, one *DB per logical database name a Block addresses. It is not
// part of the pool's scheduling core (spec.md keeps the concrete connect
// mechanism out of that scope); it exists so the rest of the module has a
// real backend to be exercised against instead of a bare test fake.
package dbdriver

import (
	"context"
	"database/sql/driver"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// registered drivers, addressed by name the way database/sql's own driver
// registry works (Open looks one up by DriverName).
var (
	driversMu sync.RWMutex
	drivers   = make(map[string]driver.DriverContext)
)

// RegisterDriver makes a database/sql/driver.DriverContext available to
// Open under name, so a connpool.Connector built on this package can open
// connections against it without importing the concrete driver package
// directly.
func RegisterDriver(name string, d driver.DriverContext) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = d
}

// DB is a single logical database's connector: the thing that dials new
// backend connections on behalf of the Block that owns them.
type DB struct {
	c driver.Connector

	closed               atomic.Bool
	baseAcquireCtx       context.Context
	cancelBaseAcquireCtx context.CancelFunc
}

// Open opens a new DB bound to cfg.DriverName/cfg.URL. A pool connector
// typically keeps one of these per dbname it has seen a Block for.
func Open(ctx context.Context, cfg *ConnectionConfig) (*DB, error) {
	driversMu.RLock()
	d, ok := drivers[cfg.DriverName]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("driver %s not registered", cfg.DriverName)
	}
	c, err := d.OpenConnector(cfg.URL)
	if err != nil {
		return nil, err
	}
	baseAcquireCtx, cancelBaseAcquireCtx := context.WithCancel(ctx)
	return &DB{c: c, baseAcquireCtx: baseAcquireCtx, cancelBaseAcquireCtx: cancelBaseAcquireCtx}, nil
}

// Close marks the database closed, so that Connect fails with [ErrDBClosed],
// and closes the underlying driver connector if it implements io.Closer.
// It does not wait for queries running on connections already handed out,
// and does not close those connections. Closing an already closed DB
// returns [ErrDBClosed].
//
// It is rare to Close a [DB], as the [DB] handle is meant to be
// long-lived and shared between many goroutines.
func (db *DB) Close() error {
	if db.closed.CompareAndSwap(false, true) {
		defer db.cancelBaseAcquireCtx()
		if c, ok := db.c.(io.Closer); ok {
			return c.Close()
		}
		return nil
	}
	return ErrDBClosed
}
