package dbdriver

import (
	"context"
	"fmt"
	"sync"

	"github.com/sinhashubham95/connpool"
)

// MultiDBConnector adapts this package's DB/Connection pair to
// connpool.Connector[*Connection]/connpool.Disconnector[*Connection]: it
// opens one DB per dbname a Block addresses, substituting dbname into dsnOf
// to build that database's connection string, and hands out *Connections
// from whichever DB owns the name a Pool is calibrating quotas for.
type MultiDBConnector struct {
	driverName string
	dsnOf      func(dbname string) string

	mu  sync.Mutex
	dbs map[string]*DB
}

// NewMultiDBConnector returns a connector that lazily opens one DB per
// distinct dbname seen, using driverName and dsnOf(dbname) to open it.
func NewMultiDBConnector(driverName string, dsnOf func(dbname string) string) *MultiDBConnector {
	return &MultiDBConnector{driverName: driverName, dsnOf: dsnOf, dbs: make(map[string]*DB)}
}

func (m *MultiDBConnector) dbFor(ctx context.Context, dbname string) (*DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if db, ok := m.dbs[dbname]; ok {
		return db, nil
	}
	db, err := Open(ctx, &ConnectionConfig{DriverName: m.driverName, URL: m.dsnOf(dbname)})
	if err != nil {
		return nil, fmt.Errorf("dbdriver: opening %s: %w", dbname, err)
	}
	m.dbs[dbname] = db
	return db, nil
}

// Connect implements connpool.Connector[*Connection].
func (m *MultiDBConnector) Connect(ctx context.Context, dbname string) (*Connection, error) {
	db, err := m.dbFor(ctx, dbname)
	if err != nil {
		return nil, err
	}
	return db.Connect(ctx)
}

// Disconnect implements connpool.Disconnector[*Connection].
func (m *MultiDBConnector) Disconnect(_ context.Context, conn *Connection) error {
	return conn.Close()
}

// Close closes every per-dbname DB this connector has opened so far. Call it
// after the owning Pool has been closed and drained.
func (m *MultiDBConnector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first error
	for name, db := range m.dbs {
		if err := db.Close(); err != nil && first == nil {
			first = fmt.Errorf("dbdriver: closing %s: %w", name, err)
		}
	}
	return first
}

var (
	_ connpool.Connector[*Connection]    = (*MultiDBConnector)(nil).Connect
	_ connpool.Disconnector[*Connection] = (*MultiDBConnector)(nil).Disconnect
)
