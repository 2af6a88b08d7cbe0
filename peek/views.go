package peek

import (
	"iter"
	"reflect"
	"strings"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// fields addresses the fields of a struct or of an enum variant payload.
type fields struct {
	base ptr.Const
	def  *shape.StructDef
}

func (f fields) at(i int) Peek {
	fd := &f.def.Fields[i]
	return Peek{data: f.base.Field(fd.Offset), shape: fd.Shape()}
}

// Len returns the number of listed fields.
func (f fields) Len() int { return len(f.def.Fields) }

// Field returns field i.
func (f fields) Field(i int) (Peek, bool) {
	if i < 0 || i >= len(f.def.Fields) {
		return Peek{}, false
	}
	return f.at(i), true
}

// FieldByName finds a field by Go name or serialized name.
func (f fields) FieldByName(name string) (Peek, bool) {
	i, ok := f.def.FieldIndex(name)
	if !ok {
		return Peek{}, false
	}
	return f.at(i), true
}

// Fields yields every listed field in declaration order.
func (f fields) Fields() iter.Seq2[*shape.Field, Peek] {
	return func(yield func(*shape.Field, Peek) bool) {
		for i := range f.def.Fields {
			if !yield(&f.def.Fields[i], f.at(i)) {
				return
			}
		}
	}
}

// FieldsForSerialize yields the fields a serializer should write, skipping those marked
// skip_serializing or whose skip_serializing_if predicate holds.
func (f fields) FieldsForSerialize() iter.Seq2[*shape.Field, Peek] {
	return func(yield func(*shape.Field, Peek) bool) {
		for i := range f.def.Fields {
			fd := &f.def.Fields[i]
			v := f.at(i)
			if fd.ShouldSkipSerializing(v.data) {
				continue
			}
			if !yield(fd, v) {
				return
			}
		}
	}
}

// Struct is a view of a struct value.
type Struct struct {
	Peek
	fields
}

func (s Struct) Def() *shape.StructDef { return s.def }

// Enum is a view of an enum value.
type Enum struct {
	Peek
	def *shape.EnumDef
}

func (e Enum) Def() *shape.EnumDef { return e.def }

// VariantIndex returns the active variant, or false when the value holds none.
func (e Enum) VariantIndex() (int, bool) {
	return e.def.VTable.VariantIndex(e.data)
}

// Variant returns the active variant.
func (e Enum) Variant() (*shape.Variant, error) {
	i, ok := e.VariantIndex()
	if !ok {
		return nil, errors.InvalidVariant(errors.PhasePeek, nil, e.shape.String(), "<none>")
	}
	return &e.def.Variants[i], nil
}

// VariantName returns the serialized name of the active variant, or "" when there is none.
func (e Enum) VariantName() string {
	v, err := e.Variant()
	if err != nil {
		return ""
	}
	return v.SerializedName()
}

// Payload returns the field view of the active variant.
func (e Enum) Payload() (Struct, error) {
	i, ok := e.VariantIndex()
	if !ok {
		return Struct{}, errors.InvalidVariant(errors.PhasePeek, nil, e.shape.String(), "<none>")
	}
	data := e.def.VTable.Payload(e.data, i)
	return Struct{Peek: e.Peek, fields: fields{base: data, def: e.def.Variants[i].Data}}, nil
}

// List is a view of a growable sequence.
type List struct {
	Peek
	def *shape.ListDef
}

func (l List) Def() *shape.ListDef { return l.def }

// Len returns the number of items.
func (l List) Len() int { return l.def.VTable.Len(l.data) }

// ItemAt returns item i, or false past the end.
func (l List) ItemAt(i int) (Peek, bool) {
	p, ok := l.def.VTable.ItemPtr(l.data, i)
	if !ok {
		return Peek{}, false
	}
	return Peek{data: p, shape: l.def.T()}, true
}

// Items yields the items in order.
func (l List) Items() iter.Seq2[int, Peek] { return items(l.ItemAt) }

// AsSlice returns the list's elements as an unsized slice view.
func (l List) AsSlice() Slice {
	s := shape.SliceOf(l.def.T())
	return Slice{Peek: Peek{data: l.def.VTable.AsSlice(l.data), shape: s}, def: s.Def.(*shape.SliceDef)}
}

// items probes at until it reports the end.
func items(at func(int) (Peek, bool)) iter.Seq2[int, Peek] {
	return func(yield func(int, Peek) bool) {
		for i := 0; ; i++ {
			v, ok := at(i)
			if !ok || !yield(i, v) {
				return
			}
		}
	}
}

// Array is a view of a fixed-size array.
type Array struct {
	Peek
	def *shape.ArrayDef
}

func (a Array) Def() *shape.ArrayDef { return a.def }
func (a Array) Len() int             { return a.def.N }

func (a Array) ItemAt(i int) (Peek, bool) {
	p, ok := a.def.VTable.ItemPtr(a.data, i)
	if !ok {
		return Peek{}, false
	}
	return Peek{data: p, shape: a.def.T()}, true
}

func (a Array) Items() iter.Seq2[int, Peek] { return items(a.ItemAt) }

// Slice is a view of an unsized run of elements.
type Slice struct {
	Peek
	def *shape.SliceDef
}

func (s Slice) Def() *shape.SliceDef { return s.def }
func (s Slice) Len() int             { return s.def.VTable.Len(s.data) }

func (s Slice) ItemAt(i int) (Peek, bool) {
	p, ok := s.def.VTable.ItemPtr(s.data, i)
	if !ok {
		return Peek{}, false
	}
	return Peek{data: p, shape: s.def.T()}, true
}

func (s Slice) Items() iter.Seq2[int, Peek] { return items(s.ItemAt) }

// Map is a view of an associative container.
type Map struct {
	Peek
	def *shape.MapDef
}

func (m Map) Def() *shape.MapDef { return m.def }
func (m Map) Len() int           { return m.def.VTable.Len(m.data) }

// ContainsKey reports whether key is present. A key of the wrong shape is never present.
func (m Map) ContainsKey(key Peek) bool {
	if !key.shape.Is(m.def.K()) {
		return false
	}
	return m.def.VTable.ContainsKey(m.data, key.data)
}

// Get returns a copy of the value stored under key.
func (m Map) Get(key Peek) (Peek, bool) {
	if !key.shape.Is(m.def.K()) {
		return Peek{}, false
	}
	v, ok := m.def.VTable.GetValuePtr(m.data, key.data)
	if !ok {
		return Peek{}, false
	}
	return Peek{data: v, shape: m.def.V()}, true
}

// Entries yields key/value pairs, ordered by key when keys are ordered.
func (m Map) Entries() iter.Seq2[Peek, Peek] {
	return func(yield func(Peek, Peek) bool) {
		ks, vs := m.def.K(), m.def.V()
		for k, v := range m.def.VTable.Iter(m.data) {
			if !yield(Peek{data: k, shape: ks}, Peek{data: v, shape: vs}) {
				return
			}
		}
	}
}

// Option is a view of a value that may be absent.
type Option struct {
	Peek
	def *shape.OptionDef
}

func (o Option) Def() *shape.OptionDef { return o.def }
func (o Option) IsSome() bool          { return o.def.VTable.IsSome(o.data) }
func (o Option) IsNone() bool          { return !o.IsSome() }

// Value returns the contained value.
func (o Option) Value() (Peek, bool) {
	v, ok := o.def.VTable.GetValue(o.data)
	if !ok {
		return Peek{}, false
	}
	return Peek{data: v, shape: o.def.T()}, true
}

// SmartPointer is a view of an owning or sharing handle.
type SmartPointer struct {
	Peek
	def *shape.SmartPointerDef
}

func (s SmartPointer) Def() *shape.SmartPointerDef { return s.def }

// Borrow returns the pointee. It is false for empty or dangling pointers and for pointers that
// only give access under a lock.
func (s SmartPointer) Borrow() (Peek, bool) {
	if s.def.VTable.Borrow == nil {
		return Peek{}, false
	}
	p, ok := s.def.VTable.Borrow(s.data)
	if !ok {
		return Peek{}, false
	}
	return Peek{data: p, shape: s.def.Pointee()}, true
}

// Read returns the pointee under a shared lock when the pointer has one, or borrows it.
// release must be called when the view is no longer used.
func (s SmartPointer) Read() (v Peek, release func(), err error) {
	if s.def.VTable.TryRead != nil {
		g, err := s.def.VTable.TryRead(s.data)
		if err != nil {
			return Peek{}, nil, err
		}
		return Peek{data: g.Data.AsConst(), shape: s.def.Pointee()}, g.Unlock, nil
	}
	if s.def.VTable.Upgrade != nil && s.def.Strong != nil {
		strong := s.def.Strong()
		mem, err := strong.Allocate()
		if err != nil {
			return Peek{}, nil, err
		}
		sp, ok := s.def.VTable.Upgrade(s.data, mem)
		if !ok {
			return Peek{}, nil, errors.Unavailable(errors.PhasePeek, s.shape.String(), "weak pointer is dangling")
		}
		inner, err := UncheckedNew(sp.AsConst(), strong).SmartPointer()
		if err != nil {
			return Peek{}, nil, err
		}
		v, _ := inner.Borrow()
		return v, func() { shape.DropInPlace(strong, sp) }, nil
	}
	v, ok := s.Borrow()
	if !ok {
		return Peek{}, nil, errors.NilPointer(errors.PhasePeek, nil, s.shape.String())
	}
	return v, func() {}, nil
}

// Scalar is a view of a value without reflected structure.
type Scalar struct {
	Peek
	def *shape.ScalarDef
}

func (s Scalar) Def() *shape.ScalarDef    { return s.def }
func (s Scalar) Affinity() shape.Affinity { return s.def.Affinity }
func (s Scalar) Number() shape.NumberInfo { return s.def.Number }
func (s Scalar) IsNumber() bool           { return s.def.Affinity == shape.AffinityNumber }
func (s Scalar) IsString() bool           { return s.def.Affinity == shape.AffinityString }
func (s Scalar) IsBool() bool             { return s.def.Affinity == shape.AffinityBool }
func (s Scalar) IsBytes() bool            { return s.def.Affinity == shape.AffinityBytes }

// Text renders the scalar through Display.
func (s Scalar) Text() (string, error) {
	if s.vtable().Display == nil {
		return "", errors.Unavailable(errors.PhasePeek, s.shape.String(), "display")
	}
	var b strings.Builder
	if err := s.vtable().Display(s.data, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Value returns the scalar as a bool, int64, uint64, float64, string or []byte.
// Times, durations and opaque scalars come back as their display text.
func (s Scalar) Value() (any, error) {
	switch s.def.Affinity {
	case shape.AffinityBool, shape.AffinityNumber, shape.AffinityString, shape.AffinityBytes:
	default:
		return s.Text()
	}
	t := s.shape.ID.Type()
	if t == nil {
		return s.Text()
	}
	v := reflect.NewAt(t, s.data.Raw()).Elem()
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Bytes(), nil
		}
	}
	return s.Text()
}
