package shape

import (
	"strings"

	"github.com/wippyai/go-facet/ptr"
)

// DefKind identifies the variant of a Def.
type DefKind uint8

const (
	DefUndefined DefKind = iota
	DefScalar
	DefStruct
	DefEnum
	DefMap
	DefList
	DefArray
	DefSlice
	DefSmartPointer
	DefOption
)

var defKindNames = [...]string{
	DefUndefined:    "undefined",
	DefScalar:       "scalar",
	DefStruct:       "struct",
	DefEnum:         "enum",
	DefMap:          "map",
	DefList:         "list",
	DefArray:        "array",
	DefSlice:        "slice",
	DefSmartPointer: "smart_pointer",
	DefOption:       "option",
}

func (k DefKind) String() string {
	if int(k) < len(defKindNames) {
		return defKindNames[k]
	}
	return "unknown"
}

// Def describes how to manipulate values of a shape generically.
// The concrete types are *StructDef, *EnumDef, *MapDef, *ListDef, *ArrayDef,
// *SliceDef, *ScalarDef, *SmartPointerDef, *OptionDef and UndefinedDef.
type Def interface {
	DefKind() DefKind
}

// StructKind distinguishes named-field structs from positional and empty ones.
type StructKind uint8

const (
	StructKindStruct StructKind = iota
	StructKindTupleStruct
	StructKindTuple
	StructKindUnit
)

// FieldFlags are per-field switches.
type FieldFlags uint8

const (
	FieldSensitive FieldFlags = 1 << iota
	FieldSkipSerializing
	FieldDefault
	FieldPositional
)

func (f FieldFlags) Has(bit FieldFlags) bool { return f&bit != 0 }

// Field is one member of a struct or of an enum variant.
// Offset must be the true offset within the owning value.
type Field struct {
	Name              string
	Offset            uintptr
	Shape             func() *Shape
	Flags             FieldFlags
	Rename            string
	SkipSerializingIf func(ptr.Const) bool
	Default           func(ptr.Uninit) ptr.Mut
	Attributes        []string
	Doc               []string
}

// SerializedName is the name formats use for the field.
func (f *Field) SerializedName() string {
	if f.Rename != "" {
		return f.Rename
	}
	return f.Name
}

// ShouldSkipSerializing reports whether the field is omitted for the value at p.
func (f *Field) ShouldSkipSerializing(p ptr.Const) bool {
	if f.Flags.Has(FieldSkipSerializing) {
		return true
	}
	return f.SkipSerializingIf != nil && f.SkipSerializingIf(p)
}

// StructDef lists the fields of a struct in declaration order.
type StructDef struct {
	Kind   StructKind
	Fields []Field
}

func (*StructDef) DefKind() DefKind { return DefStruct }

// FieldIndex finds a field by Go name or serialized name.
func (sd *StructDef) FieldIndex(name string) (int, bool) {
	for i := range sd.Fields {
		f := &sd.Fields[i]
		if f.Name == name || f.SerializedName() == name {
			return i, true
		}
	}
	return -1, false
}

// FieldIndexFold is FieldIndex with a case-insensitive fallback.
func (sd *StructDef) FieldIndexFold(name string) (int, bool) {
	if i, ok := sd.FieldIndex(name); ok {
		return i, true
	}
	for i := range sd.Fields {
		f := &sd.Fields[i]
		if strings.EqualFold(f.Name, name) || strings.EqualFold(f.SerializedName(), name) {
			return i, true
		}
	}
	return -1, false
}

// EnumRepr is the in-memory representation of an enum's discriminant.
type EnumRepr uint8

const (
	ReprI8 EnumRepr = iota
	ReprI16
	ReprI32
	ReprI64
	ReprU8
	ReprU16
	ReprU32
	ReprU64
	// ReprOneOf is a struct of pointer slots, one per variant, with exactly one set.
	ReprOneOf
)

var enumReprNames = [...]string{
	ReprI8:    "i8",
	ReprI16:   "i16",
	ReprI32:   "i32",
	ReprI64:   "i64",
	ReprU8:    "u8",
	ReprU16:   "u16",
	ReprU32:   "u32",
	ReprU64:   "u64",
	ReprOneOf: "oneof",
}

func (r EnumRepr) String() string {
	if int(r) < len(enumReprNames) {
		return enumReprNames[r]
	}
	return "unknown"
}

// Variant is one case of an enum. Data field offsets are relative to the variant payload.
type Variant struct {
	Name         string
	Rename       string
	Discriminant int64
	Data         *StructDef
	Attributes   []string
	Doc          []string
}

func (v *Variant) SerializedName() string {
	if v.Rename != "" {
		return v.Rename
	}
	return v.Name
}

// EnumVTable selects and inspects variants.
type EnumVTable struct {
	// VariantIndex returns the active variant, or false if the value holds none.
	VariantIndex func(ptr.Const) (int, bool)

	// SelectVariant writes the discriminant of variant i into dst and returns the
	// uninitialized payload the variant's fields live in.
	SelectVariant func(dst ptr.Uninit, i int) ptr.Uninit

	// Payload returns the payload of the active variant i.
	Payload func(p ptr.Const, i int) ptr.Const
}

// EnumDef lists the variants of an enum.
type EnumDef struct {
	Repr     EnumRepr
	Variants []Variant
	VTable   *EnumVTable
}

func (*EnumDef) DefKind() DefKind { return DefEnum }

// VariantIndex finds a variant by name, serialized name, or case-insensitively.
func (ed *EnumDef) VariantIndex(name string) (int, bool) {
	for i := range ed.Variants {
		if ed.Variants[i].Name == name || ed.Variants[i].SerializedName() == name {
			return i, true
		}
	}
	for i := range ed.Variants {
		if strings.EqualFold(ed.Variants[i].Name, name) || strings.EqualFold(ed.Variants[i].SerializedName(), name) {
			return i, true
		}
	}
	return -1, false
}

// Affinity is what a scalar means, as opposed to how it is stored.
type Affinity uint8

const (
	AffinityOpaque Affinity = iota
	AffinityBool
	AffinityNumber
	AffinityString
	AffinityBytes
	AffinityTime
	AffinityDuration
)

var affinityNames = [...]string{
	AffinityOpaque:   "opaque",
	AffinityBool:     "bool",
	AffinityNumber:   "number",
	AffinityString:   "string",
	AffinityBytes:    "bytes",
	AffinityTime:     "time",
	AffinityDuration: "duration",
}

func (a Affinity) String() string {
	if int(a) < len(affinityNames) {
		return affinityNames[a]
	}
	return "unknown"
}

// NumberInfo describes the storage of a numeric scalar.
type NumberInfo struct {
	Bits   int
	Signed bool
	Float  bool
}

// ScalarDef is a value with no reflected structure.
type ScalarDef struct {
	Affinity Affinity
	Number   NumberInfo
}

func (*ScalarDef) DefKind() DefKind { return DefScalar }

// OptionVTable creates and inspects optional values.
type OptionVTable struct {
	IsSome   func(ptr.Const) bool
	GetValue func(ptr.Const) (ptr.Const, bool)

	// InitSome moves value into a new option at dst. value must be treated as uninitialized afterwards.
	InitSome func(dst ptr.Uninit, value ptr.Mut) ptr.Mut
	InitNone func(dst ptr.Uninit) ptr.Mut
}

// OptionDef is a value that may be absent.
type OptionDef struct {
	T      func() *Shape
	VTable *OptionVTable
}

func (*OptionDef) DefKind() DefKind { return DefOption }

// UndefinedDef marks types the model does not cover.
type UndefinedDef struct{}

func (UndefinedDef) DefKind() DefKind { return DefUndefined }
