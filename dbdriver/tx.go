package dbdriver

import (
	"context"
	"database/sql/driver"
)

// TXIsolationLevel is the transaction isolation level used in [TXOptions].
type TXIsolationLevel int

// Various isolation levels that drivers may support in [Connection.BeginTX].
// If a driver does not support a given isolation level an error may be returned.
//
// See https://en.wikipedia.org/wiki/Isolation_(database_systems)#Isolation_levels.
const (
	TXIsolationLevelDefault TXIsolationLevel = iota
	TXIsolationLevelReadUncommitted
	TXIsolationLevelReadCommitted
	TXIsolationLevelWriteCommitted
	TXIsolationLevelRepeatableRead
	TXIsolationLevelSnapshot
	TXIsolationLevelSerializable
	TXIsolationLevelLinearizable
)

// TXAccessMode is the transaction access mode (read write or read only)
type TXAccessMode string

// Transaction access modes
const (
	TXAccessModeReadWrite TXAccessMode = "read write"
	TXAccessModeReadOnly  TXAccessMode = "read only"
)

// TXDeferrableMode is the transaction deferrable mode (deferrable or not deferrable)
type TXDeferrableMode string

// Transaction deferrable modes
const (
	TXDeferrableModeDeferrable    TXDeferrableMode = "deferrable"
	TXDeferrableModeNotDeferrable TXDeferrableMode = "not deferrable"
)

// TXOptions holds the transaction options to be used in [Connection.BeginTX].
type TXOptions struct {
	IsolationLevel TXIsolationLevel
	AccessMode     TXAccessMode
	DeferrableMode TXDeferrableMode

	// BeginQuery is carried on the options but is not used by [Connection.BeginTX]: the transaction is
	// always begun through the driver, with IsolationLevel and AccessMode.
	BeginQuery string
}

// TX is an in-progress database transaction.
//
// A transaction must end with a call to [TX.Commit] or [TX.Rollback].
//
// After a call to [TX.Commit] or [TX.Rollback], all operations on the
// transaction fail with [ErrTXClosed].
//
// The statements prepared for a transaction by calling
// the transaction's [TX.Prepare] are not tracked by the transaction and
// are not closed by [TX.Commit] or [TX.Rollback].
type TX interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	Prepare(ctx context.Context, query string) (Statement, error)
	Statement(ctx context.Context, s Statement) (Statement, error)
}

type tx struct {
	c    *Connection
	t    driver.Tx
	ctx  context.Context
	done bool
}

func (x *tx) Commit(_ context.Context) error {
	if x.done {
		return ErrTXClosed
	}
	x.done = true
	return x.t.Commit()
}

func (x *tx) Rollback(_ context.Context) error {
	if x.done {
		return ErrTXClosed
	}
	x.done = true
	return x.t.Rollback()
}

func (x *tx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	if x.done {
		return nil, ErrTXClosed
	}
	return x.c.Query(ctx, query, args...)
}

func (x *tx) QueryRow(ctx context.Context, query string, args ...any) Row {
	if x.done {
		return &row{err: ErrTXClosed}
	}
	return x.c.QueryRow(ctx, query, args...)
}

func (x *tx) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	if x.done {
		return nil, ErrTXClosed
	}
	return x.c.Exec(ctx, query, args...)
}

func (x *tx) Prepare(ctx context.Context, query string) (Statement, error) {
	if x.done {
		return nil, ErrTXClosed
	}
	return x.c.Prepare(ctx, query)
}

func (x *tx) Statement(_ context.Context, s Statement) (Statement, error) {
	if x.done {
		return nil, ErrTXClosed
	}
	return s, nil
}
