package poke

import (
	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// Guard owns one allocation made for a shape. Free releases the memory without dropping
// the value in it; the owner of the value drops it first.
type Guard struct {
	ptr    ptr.Uninit
	layout shape.Layout
	shape  *shape.Shape
	freed  bool
}

// Alloc allocates memory for one value of s.
func Alloc(s *shape.Shape) (Uninit, *Guard, error) {
	p, err := s.Allocate()
	if err != nil {
		return Uninit{}, nil, err
	}
	return Uninit{data: p, shape: s}, &Guard{ptr: p, layout: s.Layout, shape: s}, nil
}

// AllocType allocates memory for one T.
func AllocType[T any]() (Uninit, *Guard, error) {
	return Alloc(shape.Of[T]())
}

func (g *Guard) Ptr() ptr.Uninit      { return g.ptr }
func (g *Guard) Shape() *shape.Shape  { return g.shape }
func (g *Guard) Layout() shape.Layout { return g.layout }
func (g *Guard) Freed() bool          { return g.freed }

// Free deallocates the memory. Zero-size allocations have nothing to release.
// Calling Free twice is an error.
func (g *Guard) Free() error {
	if g.freed {
		return errors.InvalidState(errors.PhasePoke, "guard for %s already freed", g.shape)
	}
	g.freed = true
	if g.layout.Size == 0 {
		return nil
	}
	return g.shape.DeallocateUninit(g.ptr)
}
