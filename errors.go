package segbuf

import "fmt"

var (
	// ErrInvalidParticipant is returned when a participant is nil or has
	// not yet been assigned an id.
	ErrInvalidParticipant = fmt.Errorf("segbuf: invalid participant")

	// ErrInsufficientCapability is returned when an operation requires a
	// capability the participant was not constructed with.
	ErrInsufficientCapability = fmt.Errorf("segbuf: insufficient capability")

	// ErrAlreadyClaimed is returned by Segment.claim when the participant
	// is already present in the segment's roster.
	ErrAlreadyClaimed = fmt.Errorf("segbuf: participant already claimed")

	// ErrNoAssociatedSegment is returned when an operation requires at
	// least one segment claimed by the participant and there is none.
	ErrNoAssociatedSegment = fmt.Errorf("segbuf: no associated segment")

	// ErrEndOfStream is returned by Read once a participant has consumed
	// everything currently visible.
	ErrEndOfStream = fmt.Errorf("segbuf: end of stream")

	// ErrSegmentFull is returned by Segment.append's defensive recheck
	// when the frontier has reached capacity or a write is already in
	// flight; callers should open a fresh segment rather than retry.
	ErrSegmentFull = fmt.Errorf("segbuf: segment is full")

	// ErrCapacityExhausted is returned when the dispatcher-scoped id
	// counter rolls over.
	ErrCapacityExhausted = fmt.Errorf("segbuf: id space exhausted")

	// ErrAllocationFailed is kept for taxonomy completeness; Go's
	// allocator panics rather than returning an error on true OOM, so
	// nothing in this module currently returns it.
	ErrAllocationFailed = fmt.Errorf("segbuf: segment allocation failed")

	// ErrHookUnimplemented is returned by Dispatcher.BufferHookForWrite,
	// which has no implementation yet.
	ErrHookUnimplemented = fmt.Errorf("segbuf: buffer hook for write is unimplemented")

	// ErrDispatcherClosed is returned by Write, Read and WithParticipant
	// once Shutdown has been called.
	ErrDispatcherClosed = fmt.Errorf("segbuf: dispatcher is shut down")
)
