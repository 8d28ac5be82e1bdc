package adapter

import (
	"fmt"

	"github.com/nussjustin/resp3client"
)

// Tuple is the static aggregate adapter: a fixed, heterogeneous sequence of per-slot destinations
// built once by NewTuple and driven by Into like any other Sink.
//
// It mirrors the depth/count bookkeeping of aedis's static_aggregate_adapter: a depth-0 header
// validates arity (aggregate_size * element_multiplicity against the tuple's length), a depth-1 node
// either advances straight to the next slot (scalar, or an aggregate reported empty) or opens a
// counter for the slot's own declared child count, and every deeper node decrements that counter
// until it reaches zero. As in the original, this counter is not re-expanded for a second level of
// nested aggregates within a slot; slots deeper than one extra level of nesting are not supported.
type Tuple struct {
	slots []Sink

	haveHeader bool
	i          int   // index of the slot currently receiving nodes
	remaining  int64 // pending node count for the open slot's own children; 0 when no slot counter is open
	mismatch   bool  // set once arity validation fails; remaining nodes are discarded
}

// NewTuple returns a Tuple whose slots are built from dsts via Into, in order. Each element of dsts
// must be a valid destination for Into (a pointer to a scalar, pointer, slice, map, node slice, or
// another *Tuple).
func NewTuple(dsts ...any) (*Tuple, error) {
	slots := make([]Sink, len(dsts))
	for i, d := range dsts {
		sink, err := Into(d)
		if err != nil {
			return nil, fmt.Errorf("tuple slot %d: %w", i, err)
		}
		slots[i] = sink
	}
	return &Tuple{slots: slots}, nil
}

func (t *Tuple) Push(node resp3.Node) error {
	if !t.haveHeader {
		t.haveHeader = true
		if !node.Kind.IsAggregate() {
			return ErrExpectsScalar
		}
		if node.Streamed {
			// Arity cannot be validated up front for a streamed aggregate; slots are filled in order
			// until the reader stops feeding nodes once the response closes.
			return nil
		}
		if node.AggregateSize*node.Kind.ElementMultiplicity() != int64(len(t.slots)) {
			t.mismatch = true
		}
		return nil
	}

	if t.mismatch {
		return nil
	}

	if node.Depth == 1 {
		if t.i >= len(t.slots) {
			t.mismatch = true
			return nil
		}
		// The slot's sink expects depth 0 at its own root, not at the tuple's; rebase before
		// forwarding (see the matching comment in containers.go's childTracker.push).
		child := node
		child.Depth = 0
		if err := t.slots[t.i].Push(child); err != nil {
			return err
		}
		if node.Kind.IsAggregate() && !node.Streamed && node.AggregateSize > 0 {
			t.remaining = node.AggregateSize * node.Kind.ElementMultiplicity()
			return nil
		}
		t.i++
		return nil
	}

	// Depth > 1: part of the current slot's aggregate value.
	if t.i >= len(t.slots) {
		t.mismatch = true
		return nil
	}
	child := node
	child.Depth = node.Depth - 1
	if err := t.slots[t.i].Push(child); err != nil {
		return err
	}
	if t.remaining > 0 {
		t.remaining--
		if t.remaining == 0 {
			t.i++
		}
	}
	return nil
}

// Len reports the number of slots in t, i.e. its declared arity.
func (t *Tuple) Len() int { return len(t.slots) }

// Slot returns the Sink for t's i-th slot. It is exported for the client package's pipeline
// dispatch, which drives one top-level response per pipelined command directly into the matching
// tuple slot rather than through Push/Finalize (which instead implement the static aggregate
// adapter's single-nested-aggregate contract described above).
func (t *Tuple) Slot(i int) Sink { return t.slots[i] }

func (t *Tuple) Finalize() error {
	if t.mismatch {
		return ErrIncompatibleSize
	}
	for _, slot := range t.slots {
		if err := slot.Finalize(); err != nil {
			return err
		}
	}
	return nil
}
