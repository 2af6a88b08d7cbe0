package shape

import "github.com/wippyai/go-facet/ptr"

// StructDefBuilder assembles a StructDef.
type StructDefBuilder struct {
	def StructDef
}

func NewStructDef(kind StructKind) *StructDefBuilder {
	return &StructDefBuilder{def: StructDef{Kind: kind}}
}

func (b *StructDefBuilder) Field(f Field) *StructDefBuilder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}

func (b *StructDefBuilder) Fields(fs ...Field) *StructDefBuilder {
	b.def.Fields = append(b.def.Fields, fs...)
	return b
}

// Build panics on duplicate field names.
func (b *StructDefBuilder) Build() *StructDef {
	seen := make(map[string]struct{}, len(b.def.Fields))
	for i := range b.def.Fields {
		name := b.def.Fields[i].SerializedName()
		if _, dup := seen[name]; dup {
			panic("struct def builder: duplicate field " + name)
		}
		seen[name] = struct{}{}
		if b.def.Fields[i].Shape == nil {
			panic("struct def builder: field " + name + " has no shape")
		}
	}
	d := b.def
	return &d
}

// FieldBuilder assembles a Field.
type FieldBuilder struct {
	f Field
}

func NewField(name string, offset uintptr, s func() *Shape) *FieldBuilder {
	return &FieldBuilder{f: Field{Name: name, Offset: offset, Shape: s}}
}

func (b *FieldBuilder) Flags(flags FieldFlags) *FieldBuilder {
	b.f.Flags |= flags
	return b
}

func (b *FieldBuilder) Rename(name string) *FieldBuilder {
	b.f.Rename = name
	return b
}

func (b *FieldBuilder) SkipSerializingIf(fn func(ptr.Const) bool) *FieldBuilder {
	b.f.SkipSerializingIf = fn
	return b
}

func (b *FieldBuilder) Default(fn func(ptr.Uninit) ptr.Mut) *FieldBuilder {
	b.f.Default = fn
	b.f.Flags |= FieldDefault
	return b
}

func (b *FieldBuilder) Attributes(attrs ...string) *FieldBuilder {
	b.f.Attributes = append(b.f.Attributes, attrs...)
	return b
}

func (b *FieldBuilder) Doc(lines ...string) *FieldBuilder {
	b.f.Doc = lines
	return b
}

func (b *FieldBuilder) Build() Field {
	return b.f
}

// VariantBuilder assembles a Variant.
type VariantBuilder struct {
	v Variant
}

func NewVariant(name string, discriminant int64) *VariantBuilder {
	return &VariantBuilder{v: Variant{Name: name, Discriminant: discriminant}}
}

func (b *VariantBuilder) Rename(name string) *VariantBuilder {
	b.v.Rename = name
	return b
}

func (b *VariantBuilder) Data(sd *StructDef) *VariantBuilder {
	b.v.Data = sd
	return b
}

func (b *VariantBuilder) Doc(lines ...string) *VariantBuilder {
	b.v.Doc = lines
	return b
}

// Build gives unit variants an empty struct definition.
func (b *VariantBuilder) Build() Variant {
	if b.v.Data == nil {
		b.v.Data = &StructDef{Kind: StructKindUnit}
	}
	return b.v
}

// EnumDefBuilder assembles an EnumDef.
type EnumDefBuilder struct {
	def EnumDef
}

func NewEnumDef(repr EnumRepr) *EnumDefBuilder {
	return &EnumDefBuilder{def: EnumDef{Repr: repr}}
}

func (b *EnumDefBuilder) Variant(v Variant) *EnumDefBuilder {
	b.def.Variants = append(b.def.Variants, v)
	return b
}

func (b *EnumDefBuilder) VTable(vt *EnumVTable) *EnumDefBuilder {
	b.def.VTable = vt
	return b
}

func (b *EnumDefBuilder) Build() *EnumDef {
	if b.def.VTable == nil {
		panic("enum def builder: vtable is required")
	}
	if len(b.def.Variants) == 0 {
		panic("enum def builder: at least one variant is required")
	}
	d := b.def
	return &d
}

// MapDefBuilder assembles a MapDef.
type MapDefBuilder struct {
	def MapDef
}

func NewMapDef() *MapDefBuilder {
	return &MapDefBuilder{}
}

func (b *MapDefBuilder) Key(k func() *Shape) *MapDefBuilder {
	b.def.K = k
	return b
}

func (b *MapDefBuilder) Value(v func() *Shape) *MapDefBuilder {
	b.def.V = v
	return b
}

func (b *MapDefBuilder) VTable(vt *MapVTable) *MapDefBuilder {
	b.def.VTable = vt
	return b
}

func (b *MapDefBuilder) Build() *MapDef {
	switch {
	case b.def.K == nil:
		panic("map def builder: key shape is required")
	case b.def.V == nil:
		panic("map def builder: value shape is required")
	case b.def.VTable == nil:
		panic("map def builder: vtable is required")
	}
	d := b.def
	return &d
}

// ListDefBuilder assembles a ListDef.
type ListDefBuilder struct {
	def ListDef
}

func NewListDef() *ListDefBuilder {
	return &ListDefBuilder{}
}

func (b *ListDefBuilder) Item(t func() *Shape) *ListDefBuilder {
	b.def.T = t
	return b
}

func (b *ListDefBuilder) VTable(vt *ListVTable) *ListDefBuilder {
	b.def.VTable = vt
	return b
}

func (b *ListDefBuilder) Build() *ListDef {
	if b.def.T == nil {
		panic("list def builder: item shape is required")
	}
	if b.def.VTable == nil {
		panic("list def builder: vtable is required")
	}
	d := b.def
	return &d
}
