package segbuf

import (
	"sync"
	"time"

	"github.com/valyala/fastrand"
)

// pruner is the background actor that periodically sweeps a dispatcher's
// segment list, releasing segments with an empty roster that are not
// currently in use. Its worker parallelism adapts to segment-list length
// via a ceil(length/regionSize) policy, fanning goroutines out over
// disjoint slices of a snapshot rather than growing or shrinking a fixed
// pool.
type pruner[T any] struct {
	d        *Dispatcher[T]
	interval time.Duration
	region   int
	logger   Logger

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

func newPruner[T any](d *Dispatcher[T]) *pruner[T] {
	return &pruner[T]{
		d:        d,
		interval: d.cfg.pruneInterval,
		region:   d.cfg.regionSize,
		logger:   d.cfg.logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (pr *pruner[T]) start() {
	go pr.run()
}

func (pr *pruner[T]) stop() {
	pr.once.Do(func() { close(pr.stopCh) })
	<-pr.doneCh
}

func (pr *pruner[T]) run() {
	defer close(pr.doneCh)

	for {
		select {
		case <-time.After(jitter(pr.interval)):
			pr.sweep()
		case <-pr.stopCh:
			return
		}
	}
}

// jitter spreads sweep wake-ups by up to ±10% of interval so that many
// dispatchers in one process do not phase-lock their sweeps.
func jitter(interval time.Duration) time.Duration {
	if interval <= 0 {
		return interval
	}
	spread := int64(interval) / 10
	if spread <= 0 {
		return interval
	}
	offset := int64(fastrand.Uint32n(uint32(2*spread))) - spread
	return interval + time.Duration(offset)
}

func (pr *pruner[T]) sweep() {
	defer func() {
		if r := recover(); r != nil {
			pr.logger.Printf("pruner: recovered from panic during sweep: %v", r)
		}
	}()

	segments := pr.d.list.all()
	n := len(segments)
	if n == 0 {
		return
	}

	workers := workerCount(n, pr.region)
	regionLen := (n + workers - 1) / workers

	var wg sync.WaitGroup
	results := make([][]*Segment[T], workers)

	for w := 0; w < workers; w++ {
		start := w * regionLen
		if start >= n {
			break
		}
		end := start + regionLen
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(idx, start, end int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					pr.logger.Printf("pruner: worker %d recovered from panic: %v", idx, r)
				}
			}()

			var eligible []*Segment[T]
			for _, s := range segments[start:end] {
				if s.rosterEmpty() && !s.inUse() {
					eligible = append(eligible, s)
				}
			}
			results[idx] = eligible
		}(w, start, end)
	}
	wg.Wait()

	var all []*Segment[T]
	for _, r := range results {
		all = append(all, r...)
	}
	if removed := pr.d.list.pruneEligible(all); removed > 0 {
		pr.logger.Printf("pruner: removed %d segment(s), %d remaining", removed, pr.d.list.snapshotLen())
	}
}

// workerCount is ceil(length/regionSize), clamped to at least one worker.
func workerCount(length, regionSize int) int {
	if regionSize <= 0 {
		regionSize = 1
	}
	n := (length + regionSize - 1) / regionSize
	if n < 1 {
		n = 1
	}
	return n
}
