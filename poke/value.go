package poke

import (
	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// Value writes a whole value at once: scalars, and any shape filled in one step.
type Value struct {
	data  ptr.Uninit
	shape *shape.Shape
	set   bool
	built bool
}

func (v *Value) Shape() *shape.Shape { return v.shape }
func (v *Value) IsSet() bool         { return v.set }

// PutShape moves or converts the value at src, of shape have, into v.
func (v *Value) PutShape(src ptr.Mut, have *shape.Shape) error {
	if v.set {
		return replace(nil, v.data.AssumeInit(), v.shape, src, have)
	}
	if _, err := Place(nil, v.data, v.shape, src, have); err != nil {
		return err
	}
	v.set = true
	return nil
}

// Put moves x into v.
func Put[T any](v *Value, x T) error {
	return v.PutShape(ptr.MutFrom(&x), shape.Of[T]())
}

// Parse fills v from text with the shape's Parse.
func (v *Value) Parse(text string) error {
	if v.shape.VTable.Parse == nil {
		return errors.Unsupported(errors.PhaseParse, v.shape.String(), "no parse")
	}
	v.drop()
	if _, err := v.shape.VTable.Parse(text, v.data); err != nil {
		return err
	}
	v.set = true
	return nil
}

// Default fills v with the shape's default value.
func (v *Value) Default() error {
	if v.shape.VTable.DefaultInPlace == nil {
		return errors.Unsupported(errors.PhasePoke, v.shape.String(), "no default")
	}
	v.drop()
	v.shape.VTable.DefaultInPlace(v.data)
	v.set = true
	return nil
}

// Clone fills v with a deep copy of the value at src, of shape have.
func (v *Value) Clone(src ptr.Const, have *shape.Shape) error {
	if !v.shape.Is(have) {
		return mismatch(nil, v.shape, have)
	}
	if v.shape.VTable.CloneInto == nil {
		return errors.Unsupported(errors.PhasePoke, v.shape.String(), "no clone")
	}
	v.drop()
	v.shape.VTable.CloneInto(src, v.data)
	v.set = true
	return nil
}

// BuildInPlace checks the value's invariants and hands it to the caller.
func (v *Value) BuildInPlace() (ptr.Mut, error) {
	if !v.set {
		return ptr.Mut{}, errors.NotInitialized(errors.PhaseBuild, nil, v.shape.String())
	}
	m := v.data.AssumeInit()
	if err := checkInvariants(v.shape, m.AsConst(), nil); err != nil {
		return ptr.Mut{}, err
	}
	v.built = true
	return m, nil
}

// Release drops the value if one was written and not yet built.
func (v *Value) Release() {
	if !v.built {
		v.drop()
	}
}

func (v *Value) drop() {
	if v.set {
		shape.DropInPlace(v.shape, v.data.AssumeInit())
		v.set = false
	}
}
