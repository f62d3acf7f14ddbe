package segbuf

import (
	"sync"
	"testing"
	"time"
)

func TestPairCapabilitiesAndPartnerLink(t *testing.T) {
	reader, writer := Pair("r", "w")

	if reader.Capability() != CapRead {
		t.Fatalf("expected reader capability READ, got %v", reader.Capability())
	}
	if writer.Capability() != CapWrite {
		t.Fatalf("expected writer capability WRITE, got %v", writer.Capability())
	}

	if got := reader.Partner(); got != writer {
		t.Fatalf("expected reader.Partner() == writer, got %v", got)
	}
	if got := writer.Partner(); got != reader {
		t.Fatalf("expected writer.Partner() == reader, got %v", got)
	}
}

func TestParticipantUnpairedHasNoPartner(t *testing.T) {
	p := NewParticipant("solo", CapReadWrite)
	if p.Partner() != nil {
		t.Fatalf("expected nil partner for an unpaired participant")
	}
}

func TestParticipantIDAssignedLazily(t *testing.T) {
	p := NewParticipant("p", CapRead)
	if p.ID() != 0 {
		t.Fatalf("expected unassigned id 0, got %d", p.ID())
	}

	gen := &idGenerator{}
	if err := p.assignID(gen); err != nil {
		t.Fatalf("assignID: %v", err)
	}
	first := p.ID()
	if first == 0 {
		t.Fatalf("expected nonzero id after assignment")
	}

	// A second assignment attempt must not change the id.
	if err := p.assignID(gen); err != nil {
		t.Fatalf("assignID (second): %v", err)
	}
	if p.ID() != first {
		t.Fatalf("expected id to stay %d, got %d", first, p.ID())
	}
}

func TestIdGeneratorUniqueUnderConcurrency(t *testing.T) {
	const n = 1000
	gen := &idGenerator{}

	ids := make([]uint64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			p := NewParticipant("", CapRead)
			if err := p.assignID(gen); err != nil {
				t.Errorf("assignID: %v", err)
				return
			}
			ids[i] = p.ID()
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	for _, id := range ids {
		if id == 0 {
			t.Fatalf("expected nonzero id")
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}

// TestExecutionSlotSerializesOps mirrors taskq_test.go's TestTaskQLock
// hand-scheduled interleaving: one goroutine holds the execution slot for
// a while, and a second call on the same participant must wait for it.
func TestExecutionSlotSerializesOps(t *testing.T) {
	p := NewParticipant("p", CapReadWrite)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_, _ = p.withExecSlot(func() (any, error) {
			close(started)
			<-release
			return nil, nil
		})
		close(done)
	}()

	<-started

	secondStarted := make(chan struct{})
	go func() {
		_, _ = p.withExecSlot(func() (any, error) {
			close(secondStarted)
			return nil, nil
		})
	}()

	select {
	case <-secondStarted:
		t.Fatalf("second operation started before the first released its execution slot")
	case <-time.After(10 * time.Millisecond):
	}

	close(release)
	<-done

	select {
	case <-secondStarted:
	case <-time.After(time.Second):
		t.Fatalf("second operation never ran after the first released its execution slot")
	}
}
