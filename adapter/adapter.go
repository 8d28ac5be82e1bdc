// Package adapter implements the type-directed response-adapter framework described by the core:
// binding a destination value to a Sink that consumes a stream of resp3.Node values without ever
// materializing an intermediate generic tree, unless the destination explicitly asks for a tree.
//
// Dispatch happens once, at call time, via Into: it inspects the destination's reflect.Type and
// returns the Sink whose shape matches it (scalar, optional, sequence, associative container, node
// tree, or a fixed heterogeneous Tuple). The returned Sink is then driven purely by Push/Finalize
// calls from a resp3.Lexer-fed reader loop. Scalar, node tree and Tuple sinks use no reflection while
// decoding; optional, sequence and associative sinks allocate through reflect and call Into again for
// each value or element they decode.
package adapter

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"

	"github.com/nussjustin/resp3client"
)

var (
	// ErrExpectsScalar is returned when a scalar destination receives an aggregate node.
	ErrExpectsScalar = errors.New("adapter: destination expects a scalar value")

	// ErrIncompatibleSize is returned by the tuple adapter when the response's effective child count
	// (maps counting double) does not equal the tuple's arity.
	ErrIncompatibleSize = errors.New("adapter: response size is incompatible with destination")

	// ErrUnsupportedType is returned by Into when no adapter can be built for the destination type.
	ErrUnsupportedType = errors.New("adapter: unsupported destination type")
)

// Sink is the capability set every adapter implements: it consumes lexer Nodes belonging to exactly
// one top-level response and is told when that response is complete.
type Sink interface {
	// Push consumes one resp3.Node. A non-nil error short-circuits the rest of the response: the
	// caller (the reader task) must still drain any remaining nodes of the response into Ignore.
	Push(node resp3.Node) error

	// Finalize is called once the top-level response has been fully consumed. It reports any error
	// that only becomes visible once the whole shape has been seen (e.g. a still-open tuple slot).
	Finalize() error
}

// ignoreSink discards every node of one top-level response.
type ignoreSink struct {
	depth int
}

func (s *ignoreSink) Push(node resp3.Node) error { return nil }
func (s *ignoreSink) Finalize() error            { return nil }

// Ignore returns a Sink that discards all nodes of one top-level response.
func Ignore() Sink { return &ignoreSink{} }

// Into returns the Sink appropriate for dst, which must be a non-nil pointer. The concrete Sink
// returned depends on dst's pointed-to type, per the table in the core specification:
//
//   - *T for scalar T (int64, float64, bool, string, []byte, big.Int): scalarSink
//   - **T for scalar T: optionalSink, wrapping a null response as a nil *T
//   - *[]E: sequenceSink, recursing into Into for E
//   - *map[K]V: associativeSink, recursing into Into for K and V
//   - *[]resp3.Node: nodeTreeSink, appending every node verbatim
//   - *Tuple: the destination returned by NewTuple, the static aggregate adapter
//
// Into itself is the small factory keyed on the destination type; the optional, sequence and
// associative sinks call it again for every value or element they decode.
func Into(dst any) (Sink, error) {
	if t, ok := dst.(Sink); ok {
		return t, nil
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil, fmt.Errorf("%w: %T is not a non-nil pointer", ErrUnsupportedType, dst)
	}

	switch d := dst.(type) {
	case *string:
		return &scalarSink{assign: func(n resp3.Node) error { *d = string(n.Value); return nil }}, nil
	case *[]byte:
		return &scalarSink{assign: func(n resp3.Node) error { *d = append([]byte(nil), n.Value...); return nil }}, nil
	case *int64:
		return &scalarSink{assign: func(n resp3.Node) error { *d = n.Int; return nil }}, nil
	case *float64:
		return &scalarSink{assign: func(n resp3.Node) error { *d = n.Double; return nil }}, nil
	case *bool:
		return &scalarSink{assign: func(n resp3.Node) error { *d = n.Bool; return nil }}, nil
	case *big.Int:
		return &scalarSink{assign: func(n resp3.Node) error {
			if _, ok := d.SetString(string(n.Value), 10); !ok {
				return fmt.Errorf("%w: invalid big number %q", ErrExpectsScalar, n.Value)
			}
			return nil
		}}, nil
	case *[]resp3.Node:
		return &nodeTreeSink{dst: d}, nil
	case *Tuple:
		return d, nil
	}

	elem := v.Elem()
	switch elem.Kind() {
	case reflect.Ptr:
		return newOptionalSink(elem)
	case reflect.Slice:
		return newSequenceSink(elem)
	case reflect.Map:
		return newAssociativeSink(elem)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, v.Type())
	}
}

// scalarSink accepts exactly one non-aggregate node at depth 0.
type scalarSink struct {
	assign func(resp3.Node) error
	seen   bool
}

func (s *scalarSink) Push(node resp3.Node) error {
	if node.Depth != 0 || node.Kind.IsAggregate() {
		return ErrExpectsScalar
	}
	s.seen = true
	return s.assign(node)
}

func (s *scalarSink) Finalize() error {
	if !s.seen {
		return ErrExpectsScalar
	}
	return nil
}

// optionalSink wraps a sink for a pointer destination, leaving the destination nil on a null
// response instead of allocating and delegating to the wrapped sink.
//
// The wrapped sink is built lazily, on the first non-null node, so that it is constructed against
// the actually-allocated destination storage rather than a throwaway value.
type optionalSink struct {
	elem  reflect.Value // addressable *T field we allocate into on non-null
	inner Sink
}

func newOptionalSink(elem reflect.Value) (Sink, error) {
	return &optionalSink{elem: elem}, nil
}

func (s *optionalSink) Push(node resp3.Node) error {
	if s.inner == nil {
		if node.Depth == 0 && node.Kind == resp3.TypeNull {
			return nil // leave the destination pointer nil
		}
		if s.elem.IsNil() {
			s.elem.Set(reflect.New(s.elem.Type().Elem()))
		}
		inner, err := Into(s.elem.Interface())
		if err != nil {
			return err
		}
		s.inner = inner
	}
	return s.inner.Push(node)
}

func (s *optionalSink) Finalize() error {
	if s.inner == nil {
		return nil
	}
	return s.inner.Finalize()
}

// nodeTreeSink appends every node it sees verbatim, in traversal order - the "generic" destination
// shape for callers who want the raw decoded shape instead of a typed value.
type nodeTreeSink struct {
	dst *[]resp3.Node
}

func (s *nodeTreeSink) Push(node resp3.Node) error {
	value := append([]byte(nil), node.Value...)
	node.Value = value
	*s.dst = append(*s.dst, node)
	return nil
}

func (s *nodeTreeSink) Finalize() error { return nil }
