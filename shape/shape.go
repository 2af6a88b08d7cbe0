package shape

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
)

// ID is the process-wide identity of a shape. Two shapes describe the same type iff their IDs are equal.
type ID struct {
	t reflect.Type
	// unsized marks the [T] view of a []T type.
	unsized bool
}

// IDOf returns the identity of T.
func IDOf[T any]() ID {
	return ID{t: reflect.TypeFor[T]()}
}

// IDFor returns the identity of t.
func IDFor(t reflect.Type) ID {
	return ID{t: t}
}

// Type returns the Go type behind the identity, or nil for hand-built shapes without one.
func (id ID) Type() reflect.Type { return id.t }

func (id ID) IsZero() bool { return id.t == nil }

func (id ID) String() string {
	if id.t == nil {
		return "<anonymous>"
	}
	if id.unsized {
		return "[" + id.t.Elem().String() + "]"
	}
	return id.t.String()
}

// Layout is the size and alignment of a shape, or the unsized marker.
type Layout struct {
	Size    uintptr
	Align   uintptr
	Unsized bool
}

// LayoutOf returns the layout of T.
func LayoutOf[T any]() Layout {
	var zero T
	return Layout{Size: unsafe.Sizeof(zero), Align: unsafe.Alignof(zero)}
}

// LayoutFor returns the layout of t.
func LayoutFor(t reflect.Type) Layout {
	return Layout{Size: t.Size(), Align: uintptr(t.Align())}
}

// UnsizedLayout marks a shape that cannot be allocated by value.
func UnsizedLayout() Layout {
	return Layout{Unsized: true}
}

func (l Layout) String() string {
	if l.Unsized {
		return "unsized"
	}
	return fmt.Sprintf("size=%d align=%d", l.Size, l.Align)
}

// Ty is the structural classification of a shape.
type Ty uint8

const (
	TyPrimitive Ty = iota
	TySequence
	TyUser
	TyPointer
)

var tyNames = [...]string{
	TyPrimitive: "primitive",
	TySequence:  "sequence",
	TyUser:      "user",
	TyPointer:   "pointer",
}

func (t Ty) String() string {
	if int(t) < len(tyNames) {
		return tyNames[t]
	}
	return "unknown"
}

// AttributeKind identifies a type-level attribute.
type AttributeKind uint8

const (
	AttrDenyUnknownFields AttributeKind = iota + 1
	AttrDefault
	AttrTransparent
	AttrRenameAll
	AttrArbitrary
)

// Attribute is a type-level annotation consumed by serializers.
type Attribute struct {
	Kind  AttributeKind
	Value string
}

// TypeParam is a generic parameter of a shape, resolved lazily.
type TypeParam struct {
	Name  string
	Shape func() *Shape
}

// Shape describes one type: its identity, layout, semantic definition and operation table.
type Shape struct {
	ID             ID
	Layout         Layout
	VTable         *ValueVTable
	Ty             Ty
	Def            Def
	TypeParams     []TypeParam
	Doc            []string
	Attributes     []Attribute
	Inner          func() *Shape
	TypeIdentifier string
}

// zeroSized is the address handed out for zero-size allocations.
var zeroSized struct{}

// Is reports whether s and other describe the same type.
func (s *Shape) Is(other *Shape) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.ID == other.ID
}

// IsType reports whether s describes T.
func IsType[T any](s *Shape) bool {
	return s != nil && s.ID == IDOf[T]()
}

// AssertType panics unless s describes T.
func AssertType[T any](s *Shape) {
	if !IsType[T](s) {
		panic(fmt.Sprintf("shape: %s is not %s", s, reflect.TypeFor[T]()))
	}
}

// Allocate returns fresh memory for one value of s.
// The memory comes from the Go allocator with the shape's real type so the collector
// sees its pointers. Zero-size shapes share a sentinel address.
func (s *Shape) Allocate() (ptr.Uninit, error) {
	if s.Layout.Unsized {
		return ptr.Uninit{}, errors.Unsized(errors.PhaseShape, s.String())
	}
	if s.Layout.Size == 0 {
		return ptr.UninitOf(unsafe.Pointer(&zeroSized)), nil
	}
	t := s.ID.Type()
	if t == nil {
		return ptr.Uninit{}, errors.Unsupported(errors.PhaseShape, s.String(), "shape has no Go type to allocate")
	}
	return ptr.UninitOf(reflect.New(t).UnsafePointer()), nil
}

// Deallocate releases memory obtained from Allocate. It does not drop the value.
func (s *Shape) Deallocate(p ptr.Mut) error {
	return s.DeallocateUninit(p.AsUninit())
}

// DeallocateUninit releases memory obtained from Allocate.
// The region is zeroed so nothing it referenced stays reachable.
func (s *Shape) DeallocateUninit(p ptr.Uninit) error {
	if s.Layout.Unsized {
		return errors.Unsized(errors.PhaseShape, s.String())
	}
	if s.Layout.Size == 0 || p.IsNil() {
		return nil
	}
	if t := s.ID.Type(); t != nil {
		reflect.NewAt(t, p.Raw()).Elem().SetZero()
	}
	return nil
}

// String returns the shape's type name.
func (s *Shape) String() string {
	if s == nil {
		return "<nil>"
	}
	var b strings.Builder
	s.WriteTypeName(&b, DefaultTypeNameOpts())
	return b.String()
}

// WriteTypeName writes the type name with the given recursion budget.
func (s *Shape) WriteTypeName(b *strings.Builder, opts TypeNameOpts) {
	if s.VTable != nil && s.VTable.TypeName != nil {
		s.VTable.TypeName(b, opts)
		return
	}
	if s.TypeIdentifier != "" {
		b.WriteString(s.TypeIdentifier)
		return
	}
	b.WriteString(s.ID.String())
}

// HasAttribute reports whether the shape carries an attribute of kind k.
func (s *Shape) HasAttribute(k AttributeKind) bool {
	for _, a := range s.Attributes {
		if a.Kind == k {
			return true
		}
	}
	return false
}

// Attribute returns the value of the first attribute of kind k.
func (s *Shape) Attribute(k AttributeKind) (string, bool) {
	for _, a := range s.Attributes {
		if a.Kind == k {
			return a.Value, true
		}
	}
	return "", false
}

func (s *Shape) IsTransparent() bool     { return s.HasAttribute(AttrTransparent) }
func (s *Shape) DenyUnknownFields() bool { return s.HasAttribute(AttrDenyUnknownFields) }
func (s *Shape) HasDefaultAttr() bool    { return s.HasAttribute(AttrDefault) }
func (s *Shape) RenameAll() RenameRule {
	v, _ := s.Attribute(AttrRenameAll)
	return RenameRule(v)
}

// Struct returns the struct definition when the shape is a struct.
func (s *Shape) Struct() (*StructDef, bool) {
	sd, ok := s.Def.(*StructDef)
	return sd, ok
}

// Enum returns the enum definition when the shape is an enum.
func (s *Shape) Enum() (*EnumDef, bool) {
	ed, ok := s.Def.(*EnumDef)
	return ed, ok
}

// Scalar returns the scalar definition when the shape is a scalar.
func (s *Shape) Scalar() (*ScalarDef, bool) {
	sd, ok := s.Def.(*ScalarDef)
	return sd, ok
}
