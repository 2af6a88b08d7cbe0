package poke

import (
	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// Poke is a write view over memory being initialized as one value of a shape.
// Release drops whatever the view initialized and leaves the memory uninitialized.
type Poke interface {
	Shape() *shape.Shape
	Release()
}

// Uninit is memory reserved for one value of a shape, with no valid contents.
type Uninit struct {
	data  ptr.Uninit
	shape *shape.Shape
}

// NewUninit pairs raw memory with the shape it is sized for.
func NewUninit(data ptr.Uninit, s *shape.Shape) Uninit {
	return Uninit{data: data, shape: s}
}

func (u Uninit) Data() ptr.Uninit    { return u.data }
func (u Uninit) Shape() *shape.Shape { return u.shape }

// Into returns the poke matching the shape's definition: *Struct, *Enum, *List, *Map,
// *Option, *SmartPointer, or *Value for everything else.
func (u Uninit) Into() Poke {
	switch d := u.shape.Def.(type) {
	case *shape.StructDef:
		return newStruct(u.data, u.shape, d, nil)
	case *shape.EnumDef:
		return &Enum{data: u.data, shape: u.shape, def: d, selected: -1}
	case *shape.ListDef:
		return &List{data: u.data, shape: u.shape, def: d}
	case *shape.MapDef:
		return &Map{data: u.data, shape: u.shape, def: d}
	case *shape.OptionDef:
		return &Option{data: u.data, shape: u.shape, def: d}
	case *shape.SmartPointerDef:
		return &SmartPointer{data: u.data, shape: u.shape, def: d}
	default:
		return &Value{data: u.data, shape: u.shape}
	}
}

func (u Uninit) Struct() (*Struct, error) {
	d, ok := u.shape.Def.(*shape.StructDef)
	if !ok {
		return nil, u.wrongDef(shape.DefStruct)
	}
	return newStruct(u.data, u.shape, d, nil), nil
}

func (u Uninit) Enum() (*Enum, error) {
	d, ok := u.shape.Def.(*shape.EnumDef)
	if !ok {
		return nil, u.wrongDef(shape.DefEnum)
	}
	return &Enum{data: u.data, shape: u.shape, def: d, selected: -1}, nil
}

func (u Uninit) List() (*List, error) {
	d, ok := u.shape.Def.(*shape.ListDef)
	if !ok {
		return nil, u.wrongDef(shape.DefList)
	}
	return &List{data: u.data, shape: u.shape, def: d}, nil
}

func (u Uninit) Map() (*Map, error) {
	d, ok := u.shape.Def.(*shape.MapDef)
	if !ok {
		return nil, u.wrongDef(shape.DefMap)
	}
	return &Map{data: u.data, shape: u.shape, def: d}, nil
}

func (u Uninit) Option() (*Option, error) {
	d, ok := u.shape.Def.(*shape.OptionDef)
	if !ok {
		return nil, u.wrongDef(shape.DefOption)
	}
	return &Option{data: u.data, shape: u.shape, def: d}, nil
}

func (u Uninit) SmartPointer() (*SmartPointer, error) {
	d, ok := u.shape.Def.(*shape.SmartPointerDef)
	if !ok {
		return nil, u.wrongDef(shape.DefSmartPointer)
	}
	return &SmartPointer{data: u.data, shape: u.shape, def: d}, nil
}

// Value returns a whole-value poke regardless of the definition.
func (u Uninit) Value() *Value {
	return &Value{data: u.data, shape: u.shape}
}

func (u Uninit) wrongDef(want shape.DefKind) error {
	return errors.New(errors.PhasePoke, errors.KindWrongShape).
		Shape(u.shape.String()).
		Expected(want.String()).
		Actual(u.shape.Def.DefKind().String()).
		Build()
}

// Place initializes dst, a slot of shape want, from the value at src of shape have.
// A value of the same shape is moved. Any other is converted with want's TryFrom, after
// which the source is dropped. On error dst stays uninitialized and src is untouched.
func Place(path []string, dst ptr.Uninit, want *shape.Shape, src ptr.Mut, have *shape.Shape) (ptr.Mut, error) {
	if want.Is(have) {
		return shape.Move(want, dst, src), nil
	}
	m, err := convert(path, dst, want, src.AsConst(), have)
	if err != nil {
		return ptr.Mut{}, err
	}
	shape.DropInPlace(have, src)
	return m, nil
}

// convert builds a value of shape want at dst from src with want's TryFrom.
// src is left as it was. A source want cannot convert from is a type mismatch.
func convert(path []string, dst ptr.Uninit, want *shape.Shape, src ptr.Const, have *shape.Shape) (ptr.Mut, error) {
	if want.VTable == nil || want.VTable.TryFrom == nil {
		return ptr.Mut{}, mismatch(path, want, have)
	}
	m, err := want.VTable.TryFrom(src, have, dst)
	if err != nil {
		if errors.IsKind(err, errors.KindUnsupportedSource) {
			return ptr.Mut{}, mismatch(path, want, have)
		}
		return ptr.Mut{}, withPath(err, path)
	}
	return m, nil
}

// replace writes a value into a slot that already holds one. The new value is produced
// in scratch memory first so a failed conversion leaves the old value in place.
func replace(path []string, slot ptr.Mut, want *shape.Shape, src ptr.Mut, have *shape.Shape) error {
	if want.Is(have) {
		shape.DropInPlace(want, slot)
		shape.Move(want, slot.AsUninit(), src)
		return nil
	}
	tmp, g, err := Alloc(want)
	if err != nil {
		return err
	}
	defer g.Free()
	m, err := Place(path, tmp.data, want, src, have)
	if err != nil {
		return err
	}
	shape.DropInPlace(want, slot)
	shape.Move(want, slot.AsUninit(), m)
	return nil
}

func mismatch(path []string, want, have *shape.Shape) error {
	return errors.TypeMismatch(errors.PhasePoke, path, want.String(), have.String())
}

func withPath(err error, path []string) error {
	var e *errors.Error
	if len(path) > 0 && errors.As(err, &e) && len(e.Path) == 0 {
		return e.WithPath(path...)
	}
	return err
}

func appendPath(path []string, seg string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = seg
	return out
}

func checkInvariants(s *shape.Shape, p ptr.Const, path []string) error {
	if s.VTable == nil || s.VTable.Invariants == nil {
		return nil
	}
	if err := s.VTable.Invariants(p); err != nil {
		return errors.New(errors.PhaseBuild, errors.KindInvariant).
			Path(path...).
			Shape(s.String()).
			Cause(err).
			Build()
	}
	return nil
}
