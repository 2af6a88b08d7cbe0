package poke

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// Struct fills a struct, or the payload of a selected enum variant, one field at a time.
// The ISet records which fields hold valid values.
type Struct struct {
	data  ptr.Uninit
	shape *shape.Shape
	def   *shape.StructDef
	set   *ISet
	path  []string
	built bool

	// variant is true when def describes an enum payload rather than shape itself.
	variant bool
}

func newStruct(data ptr.Uninit, s *shape.Shape, def *shape.StructDef, path []string) *Struct {
	return &Struct{data: data, shape: s, def: def, set: NewISet(len(def.Fields)), path: path}
}

func (s *Struct) Shape() *shape.Shape     { return s.shape }
func (s *Struct) Def() *shape.StructDef   { return s.def }
func (s *Struct) Data() ptr.Uninit        { return s.data }
func (s *Struct) ISet() *ISet             { return s.set }
func (s *Struct) IsFieldSet(i int) bool   { return s.set.Has(i) }
func (s *Struct) AllSet() bool            { return s.set.AllSet(len(s.def.Fields)) }
func (s *Struct) FieldCount() int         { return len(s.def.Fields) }
func (s *Struct) Field(i int) shape.Field { return s.def.Fields[i] }

// FieldIndex resolves a field by name.
func (s *Struct) FieldIndex(name string) (int, error) {
	i, ok := s.def.FieldIndex(name)
	if !ok {
		return -1, errors.FieldUnknown(errors.PhasePoke, s.path, s.shape.String(), name)
	}
	return i, nil
}

// FieldByIndex returns the memory of field i. A field that already holds a value is
// dropped and marked unset, so the caller must write it and call AssumeFieldInit again.
func (s *Struct) FieldByIndex(i int) (Uninit, error) {
	if i < 0 || i >= len(s.def.Fields) {
		return Uninit{}, errors.OutOfBounds(errors.PhasePoke, s.path, i, len(s.def.Fields))
	}
	f := &s.def.Fields[i]
	slot := s.data.Field(f.Offset)
	if s.set.Has(i) {
		shape.DropInPlace(f.Shape(), slot.AssumeInit())
		s.set.Unset(i)
	}
	return NewUninit(slot, f.Shape()), nil
}

// FieldByName is FieldByIndex with the index resolved from name.
func (s *Struct) FieldByName(name string) (Uninit, int, error) {
	i, err := s.FieldIndex(name)
	if err != nil {
		return Uninit{}, -1, err
	}
	u, err := s.FieldByIndex(i)
	return u, i, err
}

// AssumeFieldInit marks field i initialized. The caller guarantees the field's memory
// holds a valid value; nothing checks it.
func (s *Struct) AssumeFieldInit(i int) {
	s.set.Set(i)
}

// SetShape moves or converts the value at src, of shape have, into field i.
// Refilling a field drops its old value; a failed conversion keeps it.
func (s *Struct) SetShape(i int, src ptr.Mut, have *shape.Shape) error {
	if i < 0 || i >= len(s.def.Fields) {
		return errors.OutOfBounds(errors.PhasePoke, s.path, i, len(s.def.Fields))
	}
	f := &s.def.Fields[i]
	fs := f.Shape()
	path := appendPath(s.path, f.Name)
	slot := s.data.Field(f.Offset)
	if s.set.Has(i) {
		return replace(path, slot.AssumeInit(), fs, src, have)
	}
	if _, err := Place(path, slot, fs, src, have); err != nil {
		return err
	}
	s.set.Set(i)
	return nil
}

// SetShapeByName is SetShape with the index resolved from name.
func (s *Struct) SetShapeByName(name string, src ptr.Mut, have *shape.Shape) error {
	i, err := s.FieldIndex(name)
	if err != nil {
		return err
	}
	return s.SetShape(i, src, have)
}

// Set moves v into field i.
func Set[T any](s *Struct, i int, v T) error {
	return s.SetShape(i, ptr.MutFrom(&v), shape.Of[T]())
}

// SetByName moves v into the named field.
func SetByName[T any](s *Struct, name string, v T) error {
	return s.SetShapeByName(name, ptr.MutFrom(&v), shape.Of[T]())
}

// ParseField fills the named field from text. Strings are assigned directly and an
// empty value sets a bool field to true. Everything else goes through the field
// shape's Parse. A field with no way to parse text is a malformed shape and panics.
func (s *Struct) ParseField(name, text string) error {
	i, err := s.FieldIndex(name)
	if err != nil {
		return err
	}
	fs := s.def.Fields[i].Shape()
	switch {
	case shape.IsType[string](fs):
		return Set(s, i, text)
	case shape.IsType[bool](fs) && text == "":
		return Set(s, i, true)
	case fs.VTable.Parse != nil:
		return s.parseInto(i, fs, text)
	}
	panic(fmt.Sprintf("poke: field %s of %s has no parse path", name, s.shape))
}

func (s *Struct) parseInto(i int, fs *shape.Shape, text string) error {
	tmp, g, err := Alloc(fs)
	if err != nil {
		return err
	}
	defer g.Free()
	m, err := fs.VTable.Parse(text, tmp.data)
	if err != nil {
		return withPath(err, appendPath(s.path, s.def.Fields[i].Name))
	}
	return s.SetShape(i, m, fs)
}

// FillDefaults fills every unset field that has a default or is optional.
func (s *Struct) FillDefaults() error {
	return FillMissing(s.shape, s.def, s.data, s.set, s.path)
}

// BuildInPlace checks that every field is set, runs the shape's invariants, and hands
// the value to the caller. After it succeeds Release no longer drops anything.
func (s *Struct) BuildInPlace() (ptr.Mut, error) {
	if s.built {
		return ptr.Mut{}, errors.InvalidState(errors.PhaseBuild, "%s already built", s.shape)
	}
	if i := firstMissing(s.def, s.set); i >= 0 {
		return ptr.Mut{}, errors.FieldMissing(errors.PhaseBuild, s.path, s.def.Fields[i].Name)
	}
	m := s.data.AssumeInit()
	if !s.variant {
		if err := checkInvariants(s.shape, m.AsConst(), s.path); err != nil {
			return ptr.Mut{}, err
		}
	}
	s.built = true
	return m, nil
}

// Release drops the fields set so far, in declaration order.
func (s *Struct) Release() {
	if s.built {
		return
	}
	n := s.set.Count()
	DropInitialized(s.def, s.data, s.set)
	Logger().Debug("released struct", zap.Stringer("shape", s.shape), zap.Int("dropped", n))
}

// Build finishes s, moves the value out as a T and frees the guard's memory.
// A shape other than T's is a wrong_shape error and leaves s untouched.
func Build[T any](s *Struct, g *Guard) (T, error) {
	var zero T
	if s.variant {
		return zero, errors.InvalidState(errors.PhaseBuild, "variant payload of %s is built through its enum", s.shape)
	}
	if !shape.IsType[T](s.shape) {
		return zero, errors.WrongShape(errors.PhaseBuild, shape.Of[T]().String(), s.shape.String())
	}
	m, err := s.BuildInPlace()
	if err != nil {
		return zero, err
	}
	return take[T](m, g)
}

func take[T any](m ptr.Mut, g *Guard) (T, error) {
	v, _ := ptr.Take[T](m)
	if g != nil {
		if err := g.Free(); err != nil {
			return v, err
		}
	}
	return v, nil
}
