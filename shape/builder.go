package shape

import "reflect"

// Builder assembles a Shape. ID, Layout, VTable and Def are mandatory.
type Builder struct {
	shape     Shape
	hasID     bool
	hasLayout bool
}

// NewBuilder returns an empty shape builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// BuilderForSized returns a builder with the identity and layout of T already set.
func BuilderForSized[T any]() *Builder {
	t := reflect.TypeFor[T]()
	return NewBuilder().
		ID(IDOf[T]()).
		Layout(LayoutOf[T]()).
		TypeIdentifier(t.String())
}

// BuilderForUnsized returns a builder with the identity of T and an unsized layout.
func BuilderForUnsized[T any]() *Builder {
	t := reflect.TypeFor[T]()
	return NewBuilder().
		ID(IDOf[T]()).
		Layout(UnsizedLayout()).
		TypeIdentifier(t.String())
}

func (b *Builder) ID(id ID) *Builder {
	b.shape.ID = id
	b.hasID = true
	return b
}

func (b *Builder) Layout(l Layout) *Builder {
	b.shape.Layout = l
	b.hasLayout = true
	return b
}

func (b *Builder) VTable(vt *ValueVTable) *Builder {
	b.shape.VTable = vt
	return b
}

func (b *Builder) Def(d Def) *Builder {
	b.shape.Def = d
	return b
}

func (b *Builder) Ty(t Ty) *Builder {
	b.shape.Ty = t
	return b
}

func (b *Builder) TypeParams(params ...TypeParam) *Builder {
	b.shape.TypeParams = params
	return b
}

func (b *Builder) Doc(lines ...string) *Builder {
	b.shape.Doc = lines
	return b
}

func (b *Builder) Attributes(attrs ...Attribute) *Builder {
	b.shape.Attributes = append(b.shape.Attributes, attrs...)
	return b
}

func (b *Builder) Inner(inner func() *Shape) *Builder {
	b.shape.Inner = inner
	return b
}

func (b *Builder) TypeIdentifier(name string) *Builder {
	b.shape.TypeIdentifier = name
	return b
}

// Build returns the shape. A missing mandatory field is a bug in the caller and panics.
func (b *Builder) Build() *Shape {
	switch {
	case !b.hasID:
		panic("shape builder: id is required")
	case !b.hasLayout:
		panic("shape builder: layout is required")
	case b.shape.VTable == nil:
		panic("shape builder: vtable is required")
	case b.shape.Def == nil:
		panic("shape builder: def is required")
	}
	s := b.shape
	return &s
}
