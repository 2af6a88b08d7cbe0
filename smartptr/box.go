package smartptr

import (
	"hash"
	"io"

	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// Box exclusively owns one heap-allocated T. The zero Box is empty.
type Box[T any] struct {
	p *T
}

// NewBox moves v into a new box.
func NewBox[T any](v T) Box[T] {
	return Box[T]{p: &v}
}

// Get returns the boxed value, or nil for an empty box.
func (b Box[T]) Get() *T { return b.p }

func (b Box[T]) IsEmpty() bool { return b.p == nil }

// FacetShape describes Box[T] as an owning smart pointer to T.
func (*Box[T]) FacetShape() *shape.Shape {
	inner := shape.Of[T]()
	pointee := func() *shape.Shape { return inner }

	vb := shape.VTableFor[Box[T]]().
		TypeName(typeName("Box", pointee)).
		Debug(func(b *Box[T], w io.Writer) error { return debugPointee(w, "Box", inner, ptr.ConstFrom(b.p)) }).
		Display(func(b *Box[T], w io.Writer) error { return displayPointee(w, inner, ptr.ConstFrom(b.p)) }).
		Default(func() Box[T] { return Box[T]{p: newPointee[T](inner)} })
	if inner.VTable.CloneInto != nil {
		vb.Clone(func(b *Box[T]) Box[T] { return Box[T]{p: clonePointee(inner, b.p)} })
	}
	if inner.VTable.Eq != nil {
		vb.Eq(func(a, b *Box[T]) bool { return eqPointee(inner, a.p, b.p) })
	}
	if inner.VTable.Hash != nil {
		vb.Hash(func(b *Box[T], h hash.Hash) {
			if b.p != nil {
				inner.VTable.Hash(ptr.ConstFrom(b.p), h)
			}
		})
	}
	if inner.VTable.PartialOrd != nil {
		vb.PartialOrd(func(a, b *Box[T]) (int, bool) {
			if a.p == nil || b.p == nil {
				return 0, a.p == b.p
			}
			return inner.VTable.PartialOrd(ptr.ConstFrom(a.p), ptr.ConstFrom(b.p))
		})
	}
	vb.TryFrom(func(src ptr.Const, ss *shape.Shape) (Box[T], error) {
		v := new(T)
		if ss.Is(inner) {
			if inner.VTable.CloneInto == nil {
				*v = ptr.Read[T](src)
			} else {
				inner.VTable.CloneInto(src, ptr.UninitOf(ptr.MutFrom(v).Raw()))
			}
			return Box[T]{p: v}, nil
		}
		if inner.VTable.TryFrom == nil {
			return Box[T]{}, unsupported(ss, inner)
		}
		if _, err := inner.VTable.TryFrom(src, ss, ptr.UninitOf(ptr.MutFrom(v).Raw())); err != nil {
			return Box[T]{}, err
		}
		return Box[T]{p: v}, nil
	})

	return shape.BuilderForSized[Box[T]]().
		Ty(shape.TyPointer).
		TypeParams(shape.TypeParam{Name: "T", Shape: pointee}).
		VTable(vb.Build()).
		Def(&shape.SmartPointerDef{
			Pointee: pointee,
			Known:   shape.KnownBox,
			VTable: &shape.SmartPointerVTable{
				Borrow: func(p ptr.Const) (ptr.Const, bool) {
					b := ptr.Get[Box[T]](p)
					return ptr.ConstFrom(b.p), b.p != nil
				},
				NewInto: func(dst ptr.Uninit, value ptr.Mut) ptr.Mut {
					v, _ := ptr.Take[T](value)
					return ptr.Put(dst, NewBox(v))
				},
			},
		}).
		Build()
}
