package adapter

import (
	"reflect"

	"github.com/nussjustin/resp3client"
)

// childFrame mirrors one level of resp3.Lexer's own aggregate bookkeeping, scoped to the subtree of
// a single container element. It lets sequenceSink and associativeSink know, without ever seeing the
// lexer's internal stack, exactly which node closes a given element: the same push-when-opening,
// bubble-when-closing rule the lexer itself uses (see resp3.Lexer.bubble), just replayed locally.
type childFrame struct {
	remaining int64
}

// childTracker drives one element's worth of nodes into a freshly built Sink and reports when that
// element's subtree is fully consumed.
type childTracker struct {
	sink  Sink
	stack []childFrame
}

func newChildTracker(sink Sink) *childTracker {
	return &childTracker{sink: sink}
}

// push feeds node (already known to belong to this element, i.e. at relative depth >= 1) to the
// wrapped sink and updates the local completion stack. It reports whether the element is now fully
// consumed.
func (c *childTracker) push(node resp3.Node, rel int) (done bool, err error) {
	// node.Depth is relative to the whole document, not to this element's own subtree; the wrapped
	// sink expects the same depth-0-at-my-own-root convention Into's other callers give it, so rebase
	// before forwarding. rel is node's depth relative to the container (1 for the element's own top
	// node), so the child sees rel-1.
	child := node
	child.Depth = rel - 1
	if err := c.sink.Push(child); err != nil {
		return false, err
	}

	if rel == 1 {
		if node.Kind.IsAggregate() && !node.Streamed && node.AggregateSize > 0 {
			c.stack = append(c.stack, childFrame{remaining: node.AggregateSize * node.Kind.ElementMultiplicity()})
			return false, nil
		}
		// Scalar, empty aggregate, or (unsupported for nested tracking) a streamed value: treat as
		// closed in one node, the same way resp3.Lexer.bubble would for a depth-1 leaf.
		return true, nil
	}

	if len(c.stack) == 0 {
		// A deeper node arrived with nothing open locally; this only happens for a streamed nested
		// value, which childTracker does not attempt to bound precisely. Keep forwarding and never
		// report done - the parent container will close this slot once its own count is exhausted.
		return false, nil
	}

	top := &c.stack[len(c.stack)-1]
	if node.Kind.IsAggregate() && !node.Streamed && node.AggregateSize > 0 {
		c.stack = append(c.stack, childFrame{remaining: node.AggregateSize * node.Kind.ElementMultiplicity()})
		return false, nil
	}
	top.remaining--
	for len(c.stack) > 0 && c.stack[len(c.stack)-1].remaining == 0 {
		c.stack = c.stack[:len(c.stack)-1]
	}
	return len(c.stack) == 0, nil
}

// sequenceSink adapts a linear container (*[]E) destination: an ordered sequence or multiset-like
// destination whose elements are each decoded by a fresh E-adapter (see Into).
type sequenceSink struct {
	dst      reflect.Value // addressable slice
	elemType reflect.Type

	haveBase  bool
	baseDepth int

	cur     *childTracker
	curElem reflect.Value
}

func newSequenceSink(elem reflect.Value) (Sink, error) {
	return &sequenceSink{dst: elem, elemType: elem.Type().Elem()}, nil
}

func (s *sequenceSink) Push(node resp3.Node) error {
	if !s.haveBase {
		s.haveBase = true
		s.baseDepth = node.Depth
		if !node.Kind.IsAggregate() {
			return ErrExpectsScalar
		}
		return nil
	}

	rel := node.Depth - s.baseDepth
	if s.cur == nil {
		s.curElem = reflect.New(s.elemType)
		sink, err := Into(s.curElem.Interface())
		if err != nil {
			return err
		}
		s.cur = newChildTracker(sink)
	}

	done, err := s.cur.push(node, rel)
	if err != nil {
		return err
	}
	if done {
		if err := s.cur.sink.Finalize(); err != nil {
			return err
		}
		s.dst.Set(reflect.Append(s.dst, s.curElem.Elem()))
		s.cur = nil
	}
	return nil
}

func (s *sequenceSink) Finalize() error {
	if !s.haveBase {
		return ErrExpectsScalar
	}
	return nil
}

// associativeSink adapts a map destination (*map[K]V): it accepts any aggregate header and decodes the
// aggregate's children alternately as a key (K-adapter) and a value (V-adapter), so each key/value
// pair of a map fills one entry. A child that is itself a 2-element pair (as in a set of pairs) is not
// split into key and value; it is decoded as a whole by the K- or V-adapter whose turn it is.
type associativeSink struct {
	dst      reflect.Value // addressable map
	keyType  reflect.Type
	valType  reflect.Type

	haveBase  bool
	baseDepth int
	pairHalf  bool // true once the key of the current pair has been decoded, awaiting the value

	cur     *childTracker
	curElem reflect.Value
	key     reflect.Value
}

func newAssociativeSink(elem reflect.Value) (Sink, error) {
	t := elem.Type()
	return &associativeSink{dst: elem, keyType: t.Key(), valType: t.Elem()}, nil
}

func (s *associativeSink) Push(node resp3.Node) error {
	if !s.haveBase {
		s.haveBase = true
		s.baseDepth = node.Depth
		if !node.Kind.IsAggregate() {
			return ErrExpectsScalar
		}
		if s.dst.IsNil() {
			s.dst.Set(reflect.MakeMap(s.dst.Type()))
		}
		return nil
	}

	rel := node.Depth - s.baseDepth
	elemType := s.valType
	if !s.pairHalf {
		elemType = s.keyType
	}

	if s.cur == nil {
		s.curElem = reflect.New(elemType)
		sink, err := Into(s.curElem.Interface())
		if err != nil {
			return err
		}
		s.cur = newChildTracker(sink)
	}

	done, err := s.cur.push(node, rel)
	if err != nil {
		return err
	}
	if !done {
		return nil
	}
	if err := s.cur.sink.Finalize(); err != nil {
		return err
	}

	if !s.pairHalf {
		s.key = reflect.New(s.keyType).Elem()
		s.key.Set(s.curElem.Elem())
		s.pairHalf = true
	} else {
		s.dst.SetMapIndex(s.key, s.curElem.Elem())
		s.pairHalf = false
	}
	s.cur = nil
	return nil
}

func (s *associativeSink) Finalize() error {
	if !s.haveBase {
		return ErrExpectsScalar
	}
	if s.pairHalf {
		return ErrIncompatibleSize
	}
	return nil
}
