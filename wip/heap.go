package wip

import (
	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/peek"
	"github.com/wippyai/go-facet/poke"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// HeapValue is a fully built value in memory owned by its guard. It is consumed by
// Materialize or Drop and must not be used afterwards.
type HeapValue struct {
	guard *poke.Guard
	shape *shape.Shape
}

func (h *HeapValue) Shape() *shape.Shape { return h.shape }

func (h *HeapValue) data() ptr.Mut { return h.guard.Ptr().AssumeInit() }

// Peek reads the value.
func (h *HeapValue) Peek() peek.Peek {
	return peek.UncheckedNew(h.data().AsConst(), h.shape)
}

// Materialize moves the value out as a T and frees its memory without dropping it.
// A HeapValue of another shape is a wrong_shape error and stays usable.
func Materialize[T any](h *HeapValue) (T, error) {
	var zero T
	if h.guard == nil {
		return zero, errors.InvalidState(errors.PhaseBuild, "heap value already consumed")
	}
	if !shape.IsType[T](h.shape) {
		return zero, errors.WrongShape(errors.PhaseBuild, shape.Of[T]().String(), h.shape.String())
	}
	v, _ := ptr.Take[T](h.data())
	if err := h.guard.Free(); err != nil {
		return v, err
	}
	h.guard = nil
	return v, nil
}

// Drop drops the value and frees its memory. Dropping twice does nothing.
func (h *HeapValue) Drop() {
	if h.guard == nil {
		return
	}
	shape.DropInPlace(h.shape, h.data())
	h.guard.Free()
	h.guard = nil
}

// String renders the value with its Display, or its type name in angle brackets.
func (h *HeapValue) String() string {
	if h.guard == nil {
		return "<dropped " + h.shape.String() + ">"
	}
	if h.shape.VTable.Display == nil {
		return "⟨" + h.shape.String() + "⟩"
	}
	return h.Peek().String()
}

// Eq compares two heap values of the same shape. Different shapes are never equal.
func (h *HeapValue) Eq(other *HeapValue) bool {
	if h.guard == nil || other.guard == nil {
		return false
	}
	return h.Peek().Eq(other.Peek())
}

// PartialCmp orders two heap values of the same shape, when the shape is ordered.
func (h *HeapValue) PartialCmp(other *HeapValue) (int, bool) {
	if h.guard == nil || other.guard == nil {
		return 0, false
	}
	return h.Peek().PartialCmp(other.Peek())
}
