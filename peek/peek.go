// Package peek reads values of statically unknown type through their shapes.
//
// A Peek pairs a pointer with the shape that describes it. Callers branch on the shape's
// Def and recurse into children through the typed views returned by Struct, Enum, List,
// Array, Slice, Map, Option, SmartPointer and Scalar.
package peek

import (
	"hash"
	"io"
	"reflect"
	"strings"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// Peek is a read-only view of one initialized value.
type Peek struct {
	data  ptr.Const
	shape *shape.Shape
}

// UncheckedNew wraps data as a value of s. The caller guarantees data points at a valid,
// initialized value of exactly that shape; nothing here can verify it.
func UncheckedNew(data ptr.Const, s *shape.Shape) Peek {
	return Peek{data: data, shape: s}
}

// New returns a view of *v.
func New[T any](v *T) Peek {
	return Peek{data: ptr.ConstFrom(v), shape: shape.Of[T]()}
}

// Of returns a view of any value. v is copied first when it is not a pointer.
func Of(v any) Peek {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		return Peek{data: ptr.ConstOf(rv.UnsafePointer()), shape: shape.OfType(rv.Type().Elem())}
	}
	cp := reflect.New(rv.Type())
	cp.Elem().Set(rv)
	return Peek{data: ptr.ConstOf(cp.UnsafePointer()), shape: shape.OfType(rv.Type())}
}

func (p Peek) Data() ptr.Const            { return p.data }
func (p Peek) Shape() *shape.Shape        { return p.shape }
func (p Peek) Kind() shape.DefKind        { return p.shape.Def.DefKind() }
func (p Peek) vtable() *shape.ValueVTable { return p.shape.VTable }

// Get returns the value as *T, or a wrong_shape error when p does not hold a T.
func Get[T any](p Peek) (*T, error) {
	if !shape.IsType[T](p.shape) {
		return nil, errors.WrongShape(errors.PhasePeek, shape.Of[T]().String(), p.shape.String())
	}
	return ptr.Get[T](p.data), nil
}

// Eq compares two values of the same shape. It returns false on a shape mismatch or when the
// shape has no equality.
func (p Peek) Eq(other Peek) bool {
	if !p.shape.Is(other.shape) || p.vtable().Eq == nil {
		return false
	}
	return p.vtable().Eq(p.data, other.data)
}

// PartialCmp orders two values of the same shape. ok is false on a shape mismatch, a missing
// ordering, or incomparable values.
func (p Peek) PartialCmp(other Peek) (c int, ok bool) {
	if !p.shape.Is(other.shape) {
		return 0, false
	}
	if po := p.vtable().PartialOrd; po != nil {
		return po(p.data, other.data)
	}
	return 0, false
}

// Cmp totally orders two values of the same shape.
func (p Peek) Cmp(other Peek) (int, bool) {
	if !p.shape.Is(other.shape) || p.vtable().Ord == nil {
		return 0, false
	}
	return p.vtable().Ord(p.data, other.data), true
}

// Hash feeds the value into h and reports whether the shape is hashable.
func (p Peek) Hash(h hash.Hash) bool {
	if p.vtable().Hash == nil {
		return false
	}
	p.vtable().Hash(p.data, h)
	return true
}

// Display writes the display form and reports whether the shape has one.
func (p Peek) Display(w io.Writer) (bool, error) {
	if p.vtable().Display == nil {
		return false, nil
	}
	return true, p.vtable().Display(p.data, w)
}

// Debug writes the debug form and reports whether the shape has one.
func (p Peek) Debug(w io.Writer) (bool, error) {
	if p.vtable().Debug == nil {
		return false, nil
	}
	return true, p.vtable().Debug(p.data, w)
}

// Invariants checks the value's own invariants, if its shape declares any.
func (p Peek) Invariants() error {
	if p.vtable().Invariants == nil {
		return nil
	}
	return p.vtable().Invariants(p.data)
}

// String renders the value with Display, then Debug, then the bare type name.
func (p Peek) String() string {
	var b strings.Builder
	if ok, err := p.Display(&b); ok && err == nil {
		return b.String()
	}
	b.Reset()
	if ok, err := p.Debug(&b); ok && err == nil {
		return b.String()
	}
	return "<" + p.shape.String() + ">"
}

// Innermost follows transparent wrappers down to the value they wrap.
func (p Peek) Innermost() Peek {
	for p.shape.Inner != nil && p.vtable().TryBorrowInner != nil {
		inner, err := p.vtable().TryBorrowInner(p.data)
		if err != nil {
			return p
		}
		p = Peek{data: inner, shape: p.shape.Inner()}
	}
	return p
}

func (p Peek) wrongShape(expected string) error {
	return errors.WrongShape(errors.PhasePeek, expected, p.shape.String())
}

// Struct returns the struct view.
func (p Peek) Struct() (Struct, error) {
	sd, ok := p.shape.Def.(*shape.StructDef)
	if !ok {
		return Struct{}, p.wrongShape("struct")
	}
	return Struct{fields: fields{base: p.data, def: sd}, Peek: p}, nil
}

// Enum returns the enum view.
func (p Peek) Enum() (Enum, error) {
	ed, ok := p.shape.Def.(*shape.EnumDef)
	if !ok {
		return Enum{}, p.wrongShape("enum")
	}
	return Enum{Peek: p, def: ed}, nil
}

// List returns the list view.
func (p Peek) List() (List, error) {
	ld, ok := p.shape.Def.(*shape.ListDef)
	if !ok {
		return List{}, p.wrongShape("list")
	}
	return List{Peek: p, def: ld}, nil
}

// Array returns the array view.
func (p Peek) Array() (Array, error) {
	ad, ok := p.shape.Def.(*shape.ArrayDef)
	if !ok {
		return Array{}, p.wrongShape("array")
	}
	return Array{Peek: p, def: ad}, nil
}

// Slice returns the view of an unsized slice reached through a wide pointer.
func (p Peek) Slice() (Slice, error) {
	sd, ok := p.shape.Def.(*shape.SliceDef)
	if !ok {
		return Slice{}, p.wrongShape("slice")
	}
	return Slice{Peek: p, def: sd}, nil
}

// Map returns the map view.
func (p Peek) Map() (Map, error) {
	md, ok := p.shape.Def.(*shape.MapDef)
	if !ok {
		return Map{}, p.wrongShape("map")
	}
	return Map{Peek: p, def: md}, nil
}

// Option returns the option view.
func (p Peek) Option() (Option, error) {
	od, ok := p.shape.Def.(*shape.OptionDef)
	if !ok {
		return Option{}, p.wrongShape("option")
	}
	return Option{Peek: p, def: od}, nil
}

// SmartPointer returns the smart pointer view.
func (p Peek) SmartPointer() (SmartPointer, error) {
	sd, ok := p.shape.Def.(*shape.SmartPointerDef)
	if !ok {
		return SmartPointer{}, p.wrongShape("smart_pointer")
	}
	return SmartPointer{Peek: p, def: sd}, nil
}

// Scalar returns the scalar view.
func (p Peek) Scalar() (Scalar, error) {
	sd, ok := p.shape.Def.(*shape.ScalarDef)
	if !ok {
		return Scalar{}, p.wrongShape("scalar")
	}
	return Scalar{Peek: p, def: sd}, nil
}
