package connpool

import "errors"

// Sentinel errors returned by the pool's public surface.
var (
	// ErrUnknownConnection is returned by Release when the connection handle
	// is not tracked by the named block, or was not marked checked out. This
	// is a programming error at the call site; the pool does not attempt to
	// recover from it.
	ErrUnknownConnection = errors.New("connpool: unknown or un-acquired connection")

	// ErrPoolClosed is returned by Acquire, Release, PruneInactive and
	// PruneAll once Close has been called.
	ErrPoolClosed = errors.New("connpool: pool is closed")

	// ErrAcquireCanceled is returned by Acquire when its context is canceled
	// or its deadline expires while suspended waiting for a connection.
	ErrAcquireCanceled = errors.New("connpool: acquire canceled")

	// ErrInvalidMaxCapacity is returned by Config.ValidateAndDefault when
	// MaxCapacity is not positive.
	ErrInvalidMaxCapacity = errors.New("connpool: max capacity must be positive")
)
