package dbdriver

import (
	"context"
	"database/sql/driver"
	"io"
)

// Rows is the result of a query. Its cursor starts before the first row
// of the result set. Use [Rows.Next] to advance from row to row.
type Rows interface {
	Next() bool
	NextResultSet() bool
	Error() error
	Close(ctx context.Context) error
	Scan(values ...any) error
	Values() ([]any, error)
	RawValues() [][]byte
}

type rows struct {
	r       driver.Rows
	columns []Column
	cur     []driver.Value
	err     error
	closed  bool
}

func newRows(r driver.Rows) *rows {
	return &rows{r: r, columns: getColumnsFromDriverColumns(r), cur: make([]driver.Value, len(r.Columns()))}
}

func (r *rows) Next() bool {
	if r.err != nil || r.closed {
		return false
	}
	if err := r.r.Next(r.cur); err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}
	return true
}

func (r *rows) NextResultSet() bool {
	rs, ok := r.r.(driver.RowsNextResultSet)
	if !ok {
		return false
	}
	if !rs.HasNextResultSet() {
		return false
	}
	if err := rs.NextResultSet(); err != nil {
		r.err = err
		return false
	}
	return true
}

func (r *rows) Error() error {
	return r.err
}

func (r *rows) Close(_ context.Context) error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.r.Close()
}

func (r *rows) Scan(values ...any) error {
	if len(values) != len(r.cur) {
		return ErrRowsUnexpectedScanValues
	}
	for i, v := range r.cur {
		if err := assign(values[i], v); err != nil {
			return err
		}
	}
	return nil
}

func (r *rows) Values() ([]any, error) {
	out := make([]any, len(r.cur))
	for i, v := range r.cur {
		out[i] = v
	}
	return out, nil
}

func (r *rows) RawValues() [][]byte {
	out := make([][]byte, len(r.cur))
	for i, v := range r.cur {
		if b, ok := v.([]byte); ok {
			out[i] = b
		}
	}
	return out
}

// Columns returns the column metadata for the rows, mirroring the behavior
// exposed through [Connection.Query].
func (r *rows) Columns() []Column {
	return r.columns
}

type errRows struct {
	err error
}

func (r *errRows) Next() bool                    { return false }
func (r *errRows) NextResultSet() bool           { return false }
func (r *errRows) Error() error                  { return r.err }
func (r *errRows) Close(_ context.Context) error { return nil }
func (r *errRows) Scan(_ ...any) error            { return r.err }
func (r *errRows) Values() ([]any, error)         { return nil, r.err }
func (r *errRows) RawValues() [][]byte            { return nil }
