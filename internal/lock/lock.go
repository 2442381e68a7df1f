// Package lock provides mutual exclusion scoped by string keys.  The
// scheduler locks "theater:<name>" around its overlap check and insert;
// the ledger locks "seat:<showtime>:<seat>" around its availability check
// and insert.  Attempts on the same key serialize; different keys never
// wait on each other.
package lock

import (
	"context"
	"errors"
)

// ErrTimeout is returned when a lock could not be acquired before the
// configured wait elapsed or the context ended.
var ErrTimeout = errors.New("lock wait timeout")

// Locker acquires a lock for key.  The returned release function must be
// called exactly once; calling it again is a no-op.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
