package poke

import (
	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// SmartPointer creates a smart pointer around a new pointee.
type SmartPointer struct {
	data  ptr.Uninit
	shape *shape.Shape
	def   *shape.SmartPointerDef
	set   bool
	built bool
}

func (sp *SmartPointer) Shape() *shape.Shape         { return sp.shape }
func (sp *SmartPointer) Def() *shape.SmartPointerDef { return sp.def }
func (sp *SmartPointer) PointeeShape() *shape.Shape  { return sp.def.Pointee() }
func (sp *SmartPointer) IsSet() bool                 { return sp.set }

// NewFromShape moves the value at src, of shape have, into a new pointer.
func (sp *SmartPointer) NewFromShape(src ptr.Mut, have *shape.Shape) error {
	if sp.def.VTable == nil || sp.def.VTable.NewInto == nil {
		return errors.Unsupported(errors.PhasePoke, sp.shape.String(), "cannot be constructed from a pointee")
	}
	v, err := stage(nil, sp.def.Pointee(), src, have)
	if err != nil {
		return err
	}
	sp.drop()
	sp.def.VTable.NewInto(sp.data, v.val)
	v.commit()
	sp.set = true
	return nil
}

// NewFrom moves v into a new pointer.
func NewFrom[T any](sp *SmartPointer, v T) error {
	return sp.NewFromShape(ptr.MutFrom(&v), shape.Of[T]())
}

// TryWrite takes the pointer's write lock. A lock held elsewhere is an unavailable error.
func (sp *SmartPointer) TryWrite() (shape.LockGuard, error) {
	if !sp.set {
		return shape.LockGuard{}, errors.NotInitialized(errors.PhasePoke, nil, sp.shape.String())
	}
	if sp.def.VTable == nil || sp.def.VTable.TryWrite == nil {
		return shape.LockGuard{}, errors.Unsupported(errors.PhasePoke, sp.shape.String(), "no write lock")
	}
	return sp.def.VTable.TryWrite(sp.data.AssumeInit().AsConst())
}

func (sp *SmartPointer) BuildInPlace() (ptr.Mut, error) {
	if !sp.set {
		return ptr.Mut{}, errors.NotInitialized(errors.PhaseBuild, nil, sp.shape.String())
	}
	sp.built = true
	return sp.data.AssumeInit(), nil
}

func (sp *SmartPointer) Release() {
	if !sp.built {
		sp.drop()
	}
}

func (sp *SmartPointer) drop() {
	if sp.set {
		shape.DropInPlace(sp.shape, sp.data.AssumeInit())
		sp.set = false
	}
}
