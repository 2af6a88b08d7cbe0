package poke

import (
	"go.uber.org/zap"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// Enum selects a variant and then fills that variant's fields like a struct.
type Enum struct {
	data     ptr.Uninit
	shape    *shape.Shape
	def      *shape.EnumDef
	selected int
	payload  *Struct
	built    bool
}

func (e *Enum) Shape() *shape.Shape   { return e.shape }
func (e *Enum) Def() *shape.EnumDef   { return e.def }
func (e *Enum) Selected() (int, bool) { return e.selected, e.selected >= 0 }

// SetVariantByIndex writes the discriminant of variant i and returns a struct poke over
// its payload. Selecting again releases the previous variant's fields first.
func (e *Enum) SetVariantByIndex(i int) (*Struct, error) {
	if i < 0 || i >= len(e.def.Variants) {
		return nil, errors.InvalidVariant(errors.PhasePoke, nil, e.shape.String(), i)
	}
	if e.payload != nil {
		e.payload.Release()
	}
	v := &e.def.Variants[i]
	payload := e.def.VTable.SelectVariant(e.data, i)
	e.selected = i
	e.payload = newStruct(payload, e.shape, v.Data, []string{v.Name})
	e.payload.variant = true
	Logger().Debug("selected variant", zap.Stringer("shape", e.shape), zap.String("variant", v.Name))
	return e.payload, nil
}

// SetVariantByName selects a variant by name, serialized name, or case-insensitively.
func (e *Enum) SetVariantByName(name string) (*Struct, error) {
	i, ok := e.def.VariantIndex(name)
	if !ok {
		return nil, errors.InvalidVariant(errors.PhasePoke, nil, e.shape.String(), name)
	}
	return e.SetVariantByIndex(i)
}

// Payload is the struct poke of the selected variant, or nil.
func (e *Enum) Payload() *Struct { return e.payload }

func (e *Enum) BuildInPlace() (ptr.Mut, error) {
	if e.payload == nil {
		return ptr.Mut{}, errors.NotInitialized(errors.PhaseBuild, nil, e.shape.String())
	}
	if _, err := e.payload.BuildInPlace(); err != nil {
		return ptr.Mut{}, err
	}
	m := e.data.AssumeInit()
	if err := checkInvariants(e.shape, m.AsConst(), nil); err != nil {
		return ptr.Mut{}, err
	}
	e.built = true
	return m, nil
}

// Release drops the selected variant's set fields.
func (e *Enum) Release() {
	if e.payload != nil && !e.built {
		e.payload.Release()
	}
}

// BuildEnum finishes e and moves the value out as a T.
func BuildEnum[T any](e *Enum, g *Guard) (T, error) {
	var zero T
	if !shape.IsType[T](e.shape) {
		return zero, errors.WrongShape(errors.PhaseBuild, shape.Of[T]().String(), e.shape.String())
	}
	m, err := e.BuildInPlace()
	if err != nil {
		return zero, err
	}
	return take[T](m, g)
}
