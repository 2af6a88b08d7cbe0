package poke

import (
	"strconv"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// List builds a growable sequence. The list's own constructor makes the memory valid,
// so no per-item tracking is needed.
type List struct {
	data  ptr.Uninit
	shape *shape.Shape
	def   *shape.ListDef
	init  bool
	built bool
}

func (l *List) Shape() *shape.Shape     { return l.shape }
func (l *List) Def() *shape.ListDef     { return l.def }
func (l *List) ItemShape() *shape.Shape { return l.def.T() }
func (l *List) IsInitialized() bool     { return l.init }

// InitWithCapacity turns the memory into an empty list.
func (l *List) InitWithCapacity(n int) error {
	if l.init {
		return errors.InvalidState(errors.PhasePoke, "%s already initialized", l.shape)
	}
	l.def.VTable.InitInPlaceWithCapacity(l.data, n)
	l.init = true
	return nil
}

// Len is the number of items pushed so far.
func (l *List) Len() int {
	if !l.init {
		return 0
	}
	return l.def.VTable.Len(l.data.AssumeInit().AsConst())
}

// PushShape appends the value at src, of shape have, converting it if needed.
func (l *List) PushShape(src ptr.Mut, have *shape.Shape) error {
	if !l.init {
		return errors.NotInitialized(errors.PhasePoke, nil, l.shape.String())
	}
	it, err := stage([]string{strconv.Itoa(l.Len())}, l.def.T(), src, have)
	if err != nil {
		return err
	}
	l.def.VTable.Push(l.data.AssumeInit(), it.val)
	it.commit()
	return nil
}

// Push appends v to l.
func Push[T any](l *List, v T) error {
	return l.PushShape(ptr.MutFrom(&v), shape.Of[T]())
}

func (l *List) BuildInPlace() (ptr.Mut, error) {
	if !l.init {
		return ptr.Mut{}, errors.NotInitialized(errors.PhaseBuild, nil, l.shape.String())
	}
	l.built = true
	return l.data.AssumeInit(), nil
}

// Release drops the list and every item in it.
func (l *List) Release() {
	if l.init && !l.built {
		shape.DropInPlace(l.shape, l.data.AssumeInit())
		l.init = false
	}
}
