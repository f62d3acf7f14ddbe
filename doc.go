// Package segbuf implements an in-process dynamic segmented buffer for
// streaming data between producer and consumer participants of varying
// speed.
//
// The buffer grows by appending fixed-capacity segments on demand and
// shrinks by pruning segments no live participant still needs. A
// Participant is a capability-tagged handle (READ, WRITE, or READ_WRITE)
// that a Dispatcher routes Write, Read, HasNext and WithParticipant calls
// through. Segments enforce a multi-reader / single-writer discipline:
// each segment has at most one designated writer, decided once at the
// segment's creation, while any number of readers may traverse an
// already-published segment concurrently using their own private
// cursors.
//
// A background pruner periodically sweeps the segment list and removes
// segments whose roster has emptied and which are not currently in use
// by a reader or writer, adapting its own worker parallelism to the
// segment count.
//
// Typical usage pairs a reader and a writer and lets them run at their
// own pace:
//
//	reader, writer := segbuf.Pair("consumer", "producer")
//	d := segbuf.New[int]()
//	defer d.Shutdown()
//
//	if err := d.Write(42, writer); err != nil {
//	    // handle err
//	}
//	v, err := d.Read(reader)
//
// Ownership between participants and segments forms a DAG, not a cycle:
// segments hold strong references to the participants in their roster,
// while participants only ever carry a dispatcher-issued id and a pair of
// cursor indices, never a pointer back to a segment.
package segbuf
