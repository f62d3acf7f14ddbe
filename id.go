package segbuf

import "sync/atomic"

// idGenerator issues monotonically increasing, nonzero participant ids.
// Scoped to a single Dispatcher rather than a process-global, so that two
// independent dispatchers in the same process never observe id collisions
// against each other.
type idGenerator struct {
	next atomic.Uint64
}

// nextID returns the next id, or ErrCapacityExhausted once the counter
// would wrap past the uint64 range. A failed assignment leaves the
// generator's state unchanged so a retry (after, e.g., recovering capacity
// elsewhere) is not itself the thing that overflowed.
func (g *idGenerator) nextID() (uint64, error) {
	for {
		cur := g.next.Load()
		if cur == ^uint64(0) {
			return 0, ErrCapacityExhausted
		}
		if g.next.CompareAndSwap(cur, cur+1) {
			return cur + 1, nil
		}
	}
}
