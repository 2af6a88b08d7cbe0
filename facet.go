package facet

import (
	"unsafe"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/peek"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
	"github.com/wippyai/go-facet/wip"
)

// Of returns the shape of T.
func Of[T any]() *shape.Shape {
	return shape.Of[T]()
}

// Peek returns a read-only view of *v.
func Peek[T any](v *T) peek.Peek {
	return peek.New(v)
}

// Build constructs a T with fill, which receives a Wip positioned at the root frame.
// Everything fill leaves unfinished is released.
func Build[T any](fill func(w *wip.Wip) error) (T, error) {
	var zero T
	w, err := wip.Alloc[T]()
	if err != nil {
		return zero, err
	}
	if err := fill(w); err != nil {
		w.Release()
		return zero, err
	}
	hv, err := w.Build()
	if err != nil {
		w.Release()
		return zero, err
	}
	return wip.Materialize[T](hv)
}

// Clone copies *v with its shape's clone operation.
func Clone[T any](v *T) (T, error) {
	var out T
	s := Of[T]()
	if s.VTable.CloneInto == nil {
		return out, errors.Unsupported(errors.PhaseBuild, s.String(), "no clone")
	}
	s.VTable.CloneInto(ptr.ConstOf(unsafe.Pointer(v)), ptr.UninitOf(unsafe.Pointer(&out)))
	return out, nil
}
