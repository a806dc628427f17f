package dbdriver

import (
	"context"
	"database/sql/driver"
)

// Ping verifies a Connection to the database is still alive, using the
// driver's Pinger when it implements one; otherwise it returns nil.
func (c *Connection) Ping(ctx context.Context) error {
	if p, ok := c.c.(driver.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Query executes a query that returns rows, typically a SELECT.
// The args are for any placeholder parameters in the query.
func (c *Connection) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	nvs, err := getDriverNamedValuesFromArgs(c, args)
	if err != nil {
		return nil, err
	}

	if qc, ok := c.c.(driver.QueryerContext); ok {
		r, err := qc.QueryContext(ctx, query, nvs)
		if err != nil {
			return nil, err
		}
		return newRows(r), nil
	}

	//nolint:staticcheck // fallback for drivers that only implement the legacy interface
	if q, ok := c.c.(driver.Queryer); ok {
		values, err := namedValuesToValues(nvs)
		if err != nil {
			return nil, err
		}
		r, err := q.Query(query, values)
		if err != nil {
			return nil, err
		}
		return newRows(r), nil
	}

	return nil, ErrBadConnection
}

// QueryRow executes a query that is expected to return at most one row.
// QueryRow always returns a non-nil value. Errors are deferred until
// [Row]'s Scan method is called.
// If the query selects no rows, the [Row.Scan] will return [ErrNoRows].
// Otherwise, [Row.Scan] scans the first selected row and discards
// the rest.
func (c *Connection) QueryRow(ctx context.Context, query string, args ...any) Row {
	r, err := c.Query(ctx, query, args...)
	if err != nil {
		return &row{err: err}
	}
	return &row{rows: r}
}

// Exec executes a query without returning any rows.
// The args are for any placeholder parameters in the query.
func (c *Connection) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	nvs, err := getDriverNamedValuesFromArgs(c, args)
	if err != nil {
		return nil, err
	}

	if ec, ok := c.c.(driver.ExecerContext); ok {
		res, err := ec.ExecContext(ctx, query, nvs)
		if err != nil {
			return nil, err
		}
		return driverResult(res), nil
	}

	//nolint:staticcheck // fallback for drivers that only implement the legacy interface
	if e, ok := c.c.(driver.Execer); ok {
		values, err := namedValuesToValues(nvs)
		if err != nil {
			return nil, err
		}
		res, err := e.Exec(query, values)
		if err != nil {
			return nil, err
		}
		return driverResult(res), nil
	}

	return nil, ErrBadConnection
}

// Prepare creates a prepared statement for later queries or executions.
// Multiple queries or executions may be run concurrently from the
// returned statement.
// The caller must call the statement's [Statement.Close] method
// when the statement is no longer needed.
func (c *Connection) Prepare(ctx context.Context, query string) (Statement, error) {
	if pc, ok := c.c.(driver.ConnPrepareContext); ok {
		s, err := pc.PrepareContext(ctx, query)
		if err != nil {
			return nil, err
		}
		return &statement{c: c, s: s}, nil
	}

	s, err := c.c.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &statement{c: c, s: s}, nil
}

// BeginTX starts a transaction.
//
// The provided context is passed to the driver's BeginTx when the driver
// implements driver.ConnBeginTx. This package does not watch the context
// itself: it does not roll back on cancellation, and [TX.Commit] does not
// check it.
//
// The provided [TXOptions] is optional and may be nil if defaults should be used.
// With a driver.ConnBeginTx driver, an isolation level the driver doesn't
// support makes the driver return an error; drivers without it are begun
// with Begin and the options are ignored.
func (c *Connection) BeginTX(ctx context.Context, opts *TXOptions) (TX, error) {
	if bc, ok := c.c.(driver.ConnBeginTx); ok {
		t, err := bc.BeginTx(ctx, txOptionsToDriver(opts))
		if err != nil {
			return nil, err
		}
		return &tx{c: c, t: t, ctx: ctx}, nil
	}

	t, err := c.c.Begin() //nolint:staticcheck // fallback for drivers without BeginTx
	if err != nil {
		return nil, err
	}
	return &tx{c: c, t: t, ctx: ctx}, nil
}

func namedValuesToValues(nvs []driver.NamedValue) ([]driver.Value, error) {
	values := make([]driver.Value, len(nvs))
	for i, nv := range nvs {
		if nv.Name != "" {
			return nil, ErrNamedArgNoLetterBegin
		}
		values[i] = nv.Value
	}
	return values, nil
}

func driverResult(res driver.Result) Result {
	lastInsertID, err := res.LastInsertId()
	if err != nil {
		return &result{err: err}
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return &result{err: err}
	}
	return &result{lastInsertID: lastInsertID, rowsAffected: rowsAffected}
}

func txOptionsToDriver(opts *TXOptions) driver.TxOptions {
	if opts == nil {
		return driver.TxOptions{}
	}
	return driver.TxOptions{
		Isolation: driver.IsolationLevel(opts.IsolationLevel),
		ReadOnly:  opts.AccessMode == TXAccessModeReadOnly,
	}
}
