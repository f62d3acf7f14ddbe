package segbuf

import "sync"

// Dispatcher is the façade that routes Write, Read, HasNext and
// WithParticipant to the right segment for a given participant, creates
// segments on demand, and enforces capability checks. It is the unique
// owner of the segment list.
//
// Ids are scoped to one Dispatcher, not process-global: two independent
// Dispatchers in the same process never collide on id.
type Dispatcher[T any] struct {
	cfg  config
	ids  *idGenerator
	list segmentList[T]

	closeMu sync.Mutex
	closed  bool

	// readersMu guards readers/readerSeen: the set of READ-capable
	// participants the dispatcher has ever seen, used to broadcast-claim
	// every newly created segment onto every known reader (see register
	// and broadcastClaim below).
	readersMu  sync.Mutex
	readers    []*Participant
	readerSeen map[uint64]bool

	pruner *pruner[T]
}

// New constructs a Dispatcher with no initial segments and starts its
// background pruner.
func New[T any](opts ...Option) *Dispatcher[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &Dispatcher[T]{cfg: cfg, ids: &idGenerator{}}
	d.pruner = newPruner(d)
	d.pruner.start()
	return d
}

// NewWith constructs a Dispatcher and immediately creates and claims one
// segment of initialCapacity slots for participant, unconditionally and
// regardless of its capability.
func NewWith[T any](initialCapacity int, p *Participant, opts ...Option) (*Dispatcher[T], error) {
	d := New[T](append([]Option{WithSegmentCapacity(initialCapacity)}, opts...)...)
	if err := d.register(p); err != nil {
		return nil, err
	}
	if _, err := d.newSegmentFor(p); err != nil {
		return nil, err
	}
	return d, nil
}

// NewWithN is like NewWith but pre-allocates n segments claimed by
// participant up front.
func NewWithN[T any](initialCapacity int, p *Participant, n int, opts ...Option) (*Dispatcher[T], error) {
	d := New[T](append([]Option{WithSegmentCapacity(initialCapacity)}, opts...)...)
	if err := d.register(p); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if _, err := d.newSegmentFor(p); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Dispatcher[T]) ensureID(p *Participant) error {
	if p == nil {
		return ErrInvalidParticipant
	}
	return p.assignID(d.ids)
}

func (d *Dispatcher[T]) newSegmentFor(p *Participant) (*Segment[T], error) {
	seq := d.list.nextCreationSeq()
	s := newSegment[T](d.cfg.segmentCapacity, seq)
	if err := s.claim(p); err != nil {
		return nil, err
	}
	d.list.append(s)
	d.broadcastClaim(s, p)
	return s, nil
}

// register ensures p has an id and, if it is READ-capable, that it is
// known to the dispatcher's reader registry. The first time a reader is
// seen it is retroactively claimed onto every segment that already
// exists, so it observes history written before it ever called Read.
// Pairing is advisory only and never couples progress on its own; this
// registry, not the partner link, is what lets any reader (paired or
// not) see a writer's prior output. Once registered, the reader also
// receives every future segment a writer creates via broadcastClaim.
func (d *Dispatcher[T]) register(p *Participant) error {
	if err := d.ensureID(p); err != nil {
		return err
	}
	if !p.Capability().CanRead() {
		return nil
	}

	d.readersMu.Lock()
	if d.readerSeen == nil {
		d.readerSeen = make(map[uint64]bool)
	}
	known := d.readerSeen[p.ID()]
	if !known {
		d.readerSeen[p.ID()] = true
		d.readers = append(d.readers, p)
	}
	d.readersMu.Unlock()

	if known {
		return nil
	}
	for _, s := range d.list.all() {
		if err := s.claim(p); err != nil && err != ErrAlreadyClaimed {
			return err
		}
	}
	return nil
}

// broadcastClaim attaches every currently registered reader to a
// newly created segment, except the segment's own creator. A claim
// failure for one reader (e.g. a concurrent release) is best-effort and
// must not fail the writer's append.
func (d *Dispatcher[T]) broadcastClaim(s *Segment[T], creator *Participant) {
	d.readersMu.Lock()
	readers := make([]*Participant, len(d.readers))
	copy(readers, d.readers)
	d.readersMu.Unlock()

	for _, r := range readers {
		if sameParticipant(r, creator) {
			continue
		}
		_ = s.claim(r)
	}
}

// ensureSegment guarantees participant has at least one claimed segment,
// registering it and creating a default-capacity segment claimed by
// participant if it has none yet, regardless of capability.
func (d *Dispatcher[T]) ensureSegment(p *Participant) (*Segment[T], error) {
	if err := d.register(p); err != nil {
		return nil, err
	}
	claimed := d.list.claimedBy(p)
	if len(claimed) > 0 {
		return claimed[len(claimed)-1], nil
	}
	return d.newSegmentFor(p)
}

// WithParticipant is the general-purpose entry point: it guarantees id
// assignment and default-segment existence for participant, then invokes
// closure with no dispatcher-internal locks held. Locking is the
// responsibility of Write/Read themselves if closure calls them.
func (d *Dispatcher[T]) WithParticipant(p *Participant, closure func() (any, error)) (any, error) {
	if p == nil {
		return nil, ErrInvalidParticipant
	}
	if d.isClosed() {
		return nil, ErrDispatcherClosed
	}
	if _, err := d.ensureSegment(p); err != nil {
		return nil, err
	}
	return closure()
}

// Write appends item to participant's stream.
func (d *Dispatcher[T]) Write(item T, p *Participant) error {
	if p == nil {
		return ErrInvalidParticipant
	}
	if !p.Capability().CanWrite() {
		return ErrInsufficientCapability
	}
	if d.isClosed() {
		return ErrDispatcherClosed
	}

	_, err := p.withExecSlot(func() (any, error) {
		return nil, d.writeLocked(item, p)
	})
	return err
}

func (d *Dispatcher[T]) writeLocked(item T, p *Participant) error {
	if err := d.register(p); err != nil {
		return err
	}

	claimed := d.list.claimedBy(p)
	var tail *Segment[T]
	if len(claimed) == 0 {
		s, err := d.newSegmentFor(p)
		if err != nil {
			return err
		}
		tail = s
	} else {
		tail = claimed[len(claimed)-1]
	}

	if tail.isDesignatedWriter(p) && tail.writable() {
		if err := tail.append(item); err == nil {
			return nil
		}
	}

	// Tail is full, not writable, or p is not its designated writer:
	// open a fresh segment claimed by p and write there.
	fresh, err := d.newSegmentFor(p)
	if err != nil {
		return err
	}
	return fresh.append(item)
}

// Read returns the next item in participant's logical stream.
func (d *Dispatcher[T]) Read(p *Participant) (T, error) {
	var zero T
	if p == nil {
		return zero, ErrInvalidParticipant
	}
	if !p.Capability().CanRead() {
		return zero, ErrInsufficientCapability
	}
	if d.isClosed() {
		return zero, ErrDispatcherClosed
	}

	v, err := p.withExecSlot(func() (any, error) {
		return d.readLocked(p)
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func (d *Dispatcher[T]) readLocked(p *Participant) (T, error) {
	var zero T
	if err := d.register(p); err != nil {
		return zero, err
	}

	claimed := d.list.claimedBy(p)
	if len(claimed) == 0 {
		return zero, ErrNoAssociatedSegment
	}

	for {
		segIdx, slotIdx := p.cursor()
		if segIdx >= uint64(len(claimed)) {
			return zero, ErrEndOfStream
		}
		s := claimed[segIdx]

		s.enterRead()
		w := s.frontier()
		if slotIdx < w {
			v := s.at(slotIdx)
			s.exitRead()
			p.advanceSlot()
			return v, nil
		}
		s.exitRead()

		if segIdx+1 >= uint64(len(claimed)) {
			return zero, ErrEndOfStream
		}
		p.advanceSegment()
	}
}

// HasNext reports whether participant has a readable item available
// without consuming it, advancing the check across claimed segments.
func (d *Dispatcher[T]) HasNext(p *Participant) bool {
	if p == nil || !p.Capability().CanRead() || d.isClosed() {
		return false
	}
	if err := d.register(p); err != nil {
		return false
	}

	claimed := d.list.claimedBy(p)
	segIdx, slotIdx := p.cursor()

	for i := segIdx; i < uint64(len(claimed)); i++ {
		s := claimed[i]
		if slotIdx < s.frontier() {
			return true
		}
		slotIdx = 0
	}
	return false
}

// BufferView is the (currently unimplemented) result of
// BufferHookForWrite: a bounded, non-owning view into the writable tail
// of a participant's current segment, together with its remaining
// capacity.
type BufferView[T any] struct {
	Data      []T
	Remaining int
}

// BufferHookForWrite has no implementation yet; it always returns
// ErrHookUnimplemented rather than guessing at one.
func (d *Dispatcher[T]) BufferHookForWrite(p *Participant) (BufferView[T], error) {
	return BufferView[T]{}, ErrHookUnimplemented
}

// SegmentCount returns the current number of live segments, for
// diagnostics and tests.
func (d *Dispatcher[T]) SegmentCount() int {
	return d.list.snapshotLen()
}

func (d *Dispatcher[T]) isClosed() bool {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()
	return d.closed
}

// Shutdown stops the pruner, releases every participant from every
// segment, and drops every segment whose roster is then empty and which
// no read or write is still using. It is the only global stop the core
// provides.
func (d *Dispatcher[T]) Shutdown() {
	d.closeMu.Lock()
	if d.closed {
		d.closeMu.Unlock()
		return
	}
	d.closed = true
	d.closeMu.Unlock()

	d.pruner.stop()

	for _, s := range d.list.all() {
		for _, p := range s.rosterSnapshot() {
			_ = s.release(p)
		}
	}
	d.list.pruneEligible(d.list.all())
}
