package dbdriver

import (
	"context"
	"database/sql/driver"
)

// Statement is a prepared statement.
// A Statement is safe for concurrent use by multiple goroutines.
//
// If a Statement is prepared on a [TX] or [Connection], it will be bound to a single
// underlying connection forever. If the [TX] or [Connection] closes, the Statement will
// become unusable and all operations will return an error.
type Statement interface {
	Close(ctx context.Context) error
	NumberOfInputs() int
	Exec(ctx context.Context, args ...any) (Result, error)
	Query(ctx context.Context, args ...any) (Rows, error)
	QueryRow(ctx context.Context, args ...any) (Row, error)
}

type statement struct {
	c      *Connection
	s      driver.Stmt
	closed bool
}

func (s *statement) Close(_ context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.s.Close()
}

func (s *statement) NumberOfInputs() int {
	return s.s.NumInput()
}

func (s *statement) Exec(ctx context.Context, args ...any) (Result, error) {
	if s.closed {
		return nil, ErrStatementClosed
	}
	nvs, err := getDriverNamedValuesFromArgs(s.c, args)
	if err != nil {
		return nil, err
	}

	if ec, ok := s.s.(driver.StmtExecContext); ok {
		res, err := ec.ExecContext(ctx, nvs)
		if err != nil {
			return nil, err
		}
		return driverResult(res), nil
	}

	values, err := namedValuesToValues(nvs)
	if err != nil {
		return nil, err
	}
	res, err := s.s.Exec(values) //nolint:staticcheck // fallback for drivers without ExecContext
	if err != nil {
		return nil, err
	}
	return driverResult(res), nil
}

func (s *statement) Query(ctx context.Context, args ...any) (Rows, error) {
	if s.closed {
		return nil, ErrStatementClosed
	}
	nvs, err := getDriverNamedValuesFromArgs(s.c, args)
	if err != nil {
		return nil, err
	}

	if qc, ok := s.s.(driver.StmtQueryContext); ok {
		r, err := qc.QueryContext(ctx, nvs)
		if err != nil {
			return nil, err
		}
		return newRows(r), nil
	}

	values, err := namedValuesToValues(nvs)
	if err != nil {
		return nil, err
	}
	r, err := s.s.Query(values) //nolint:staticcheck // fallback for drivers without QueryContext
	if err != nil {
		return nil, err
	}
	return newRows(r), nil
}

func (s *statement) QueryRow(ctx context.Context, args ...any) (Row, error) {
	r, err := s.Query(ctx, args...)
	if err != nil {
		return &row{err: err}, nil
	}
	return &row{rows: r}, nil
}
