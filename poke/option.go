package poke

import (
	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// Option writes either none or some value into an optional slot.
type Option struct {
	data  ptr.Uninit
	shape *shape.Shape
	def   *shape.OptionDef
	set   bool
	built bool
}

func (o *Option) Shape() *shape.Shape      { return o.shape }
func (o *Option) Def() *shape.OptionDef    { return o.def }
func (o *Option) InnerShape() *shape.Shape { return o.def.T() }
func (o *Option) IsSet() bool              { return o.set }

// PutNone makes the option empty.
func (o *Option) PutNone() {
	o.drop()
	o.def.VTable.InitNone(o.data)
	o.set = true
}

// PutSomeShape moves the value at src, of shape have, into the option. have may be the
// inner shape or anything the inner shape converts from.
func (o *Option) PutSomeShape(src ptr.Mut, have *shape.Shape) error {
	v, err := stage(nil, o.def.T(), src, have)
	if err != nil {
		return err
	}
	o.drop()
	o.def.VTable.InitSome(o.data, v.val)
	v.commit()
	o.set = true
	return nil
}

// PutSome moves v into the option.
func PutSome[T any](o *Option, v T) error {
	return o.PutSomeShape(ptr.MutFrom(&v), shape.Of[T]())
}

func (o *Option) BuildInPlace() (ptr.Mut, error) {
	if !o.set {
		return ptr.Mut{}, errors.NotInitialized(errors.PhaseBuild, nil, o.shape.String())
	}
	o.built = true
	return o.data.AssumeInit(), nil
}

func (o *Option) Release() {
	if !o.built {
		o.drop()
	}
}

func (o *Option) drop() {
	if o.set {
		shape.DropInPlace(o.shape, o.data.AssumeInit())
		o.set = false
	}
}
