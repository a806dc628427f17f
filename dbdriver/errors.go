package dbdriver

import "errors"

// Sentinel errors returned by this package.
var (
	ErrDBClosed         = errors.New("dbdriver: database is closed")
	ErrMissingDriverName = errors.New("dbdriver: missing driver name")
	ErrMissingURL        = errors.New("dbdriver: missing url")

	ErrNoRows                    = errors.New("dbdriver: no rows in result set")
	ErrRowsClosed                = errors.New("dbdriver: rows are closed")
	ErrRowsScanWithoutNext       = errors.New("dbdriver: Scan called without calling Next")
	ErrRowsUnexpectedScan        = errors.New("dbdriver: unexpected scan target")
	ErrRowsUnexpectedScanValues  = errors.New("dbdriver: wrong number of values for Scan")
	ErrRowsUnsupportedScan       = errors.New("dbdriver: unsupported Scan")

	ErrTXClosed                          = errors.New("dbdriver: transaction is closed")
	ErrTXOptionsInvalidIsolationLevel    = errors.New("dbdriver: invalid transaction isolation level")
	ErrTXOptionsInvalidAccessMode        = errors.New("dbdriver: invalid transaction access mode")

	ErrNamedArgNoLetterBegin          = errors.New("dbdriver: named argument must begin with a letter")
	ErrConvertingArgumentToNamedArg   = errors.New("dbdriver: failed converting argument to named value")

	ErrBadConnection = errors.New("dbdriver: bad connection")

	ErrNotAPointer = errors.New("dbdriver: destination not a pointer")
	ErrNilPointer  = errors.New("dbdriver: destination is a nil pointer")

	ErrStatementClosed = errors.New("dbdriver: statement is closed")
)
