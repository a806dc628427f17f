// Package connpool schedules a bounded budget of backend connections across
// many logical databases ("blocks"). It generalizes the per-database
// connection-lifetime bookkeeping of github.com/sinhashubham95/alpha-sql's
// pool package to a population of databases competing for one capacity
// budget, recalibrating per-block quotas from observed demand.
//
// The engineering core lives in the pool subpackage; this package holds the
// connector contract, configuration and the sentinel errors shared by it.
package connpool

import "context"

// Connector establishes a new connection to dbname. It is supplied by the
// caller; the pool treats C as an opaque, comparable handle it can look up
// by identity. A Connector may fail; PermanentClassifier (see Config)
// decides whether a given failure should short-circuit retries.
type Connector[C comparable] func(ctx context.Context, dbname string) (C, error)

// Disconnector tears down a connection previously produced by a Connector.
// Failures are counted (FailedDisconnects) but never block progress; the
// connection is considered gone regardless of the error.
type Disconnector[C comparable] func(ctx context.Context, conn C) error

// PermanentClassifier reports whether a connect error should be treated as
// permanent (e.g. the target database does not exist), in which case the
// pool skips MaxConnectRetries and immediately fails every waiter of that
// block. A nil classifier is equivalent to one that always returns false.
type PermanentClassifier func(error) bool
