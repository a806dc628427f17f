package dbdriver

import "context"

// Row is the result of calling [Connection.QueryRow] to select a single row.
type Row interface {
	Scan(ctx context.Context, values ...any) error
	Error() error
}

type row struct {
	rows Rows
	err  error
}

func (r *row) Scan(ctx context.Context, values ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close(ctx)
	if !r.rows.Next() {
		if err := r.rows.Error(); err != nil {
			return err
		}
		return ErrNoRows
	}
	if err := r.rows.Scan(values...); err != nil {
		return err
	}
	return r.rows.Error()
}

func (r *row) Error() error {
	return r.err
}
