// Package runlock provides the mutual-exclusion guard shared by ingestion
// and recompute. The storage engines support a single writer, so overlapping
// bulk operations are rejected up front instead of relying on caller
// discipline.
package runlock

import (
	"errors"
	"fmt"
	"sync"
)

// ErrHeld is returned when the guard is already taken. Callers match it
// with errors.Is.
var ErrHeld = errors.New("operation already in flight")

// Guard serializes bulk writers. The zero value is ready to use.
type Guard struct {
	mu     sync.Mutex
	holder string
}

// TryAcquire takes the guard for the named operation. It never blocks: if
// another operation holds the guard it fails fast with ErrHeld naming the
// holder. On success the returned release function must be called exactly
// once.
func (g *Guard) TryAcquire(op string) (release func(), err error) {
	if !g.mu.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrHeld, g.Holder())
	}
	g.holder = op
	return func() {
		g.holder = ""
		g.mu.Unlock()
	}, nil
}

// Holder returns the name of the operation currently holding the guard,
// empty when free. Advisory only; the value may be stale by the time the
// caller looks at it.
func (g *Guard) Holder() string {
	return g.holder
}
