package smartptr

import (
	"hash"
	"io"
	"sync/atomic"
	"weak"

	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

type sharedCell[T any] struct {
	value  T
	strong atomic.Int64
}

// Shared is a reference-counted handle to one T. Copies made with Clone share the value;
// the value is dropped when the last handle is dropped. The zero Shared is empty.
type Shared[T any] struct {
	c *sharedCell[T]
}

// NewShared moves v into a new shared cell with one strong reference.
func NewShared[T any](v T) Shared[T] {
	c := &sharedCell[T]{value: v}
	c.strong.Store(1)
	return Shared[T]{c: c}
}

// Get returns the shared value, or nil for an empty or released handle.
func (s Shared[T]) Get() *T {
	if s.c == nil || s.c.strong.Load() == 0 {
		return nil
	}
	return &s.c.value
}

// Clone returns another strong handle to the same value.
func (s Shared[T]) Clone() Shared[T] {
	if s.c != nil {
		s.c.strong.Add(1)
	}
	return s
}

// StrongCount returns the number of live strong handles.
func (s Shared[T]) StrongCount() int64 {
	if s.c == nil {
		return 0
	}
	return s.c.strong.Load()
}

// Downgrade returns a weak handle to the same value.
func (s Shared[T]) Downgrade() Weak[T] {
	if s.c == nil {
		return Weak[T]{}
	}
	return Weak[T]{p: weak.Make(s.c)}
}

// Drop releases this handle. The value is dropped when the last strong handle goes.
func (s *Shared[T]) Drop() {
	c := s.c
	s.c = nil
	if c == nil {
		return
	}
	if c.strong.Add(-1) == 0 {
		shape.DropInPlace(shape.Of[T](), ptr.MutFrom(&c.value))
		var zero T
		c.value = zero
	}
}

// Weak observes a Shared value without keeping it alive.
type Weak[T any] struct {
	p weak.Pointer[sharedCell[T]]
}

// Upgrade returns a strong handle if the value is still alive.
func (w Weak[T]) Upgrade() (Shared[T], bool) {
	c := w.p.Value()
	if c == nil {
		return Shared[T]{}, false
	}
	for {
		n := c.strong.Load()
		if n == 0 {
			return Shared[T]{}, false
		}
		if c.strong.CompareAndSwap(n, n+1) {
			return Shared[T]{c: c}, true
		}
	}
}

// FacetShape describes Shared[T] as an atomically counted smart pointer to T.
func (*Shared[T]) FacetShape() *shape.Shape {
	inner := shape.Of[T]()
	pointee := func() *shape.Shape { return inner }

	vb := shape.VTableFor[Shared[T]]().
		TypeName(typeName("Shared", pointee)).
		Drop(func(s *Shared[T]) { s.Drop() }).
		Debug(func(s *Shared[T], w io.Writer) error { return debugPointee(w, "Shared", inner, ptr.ConstFrom(s.Get())) }).
		Display(func(s *Shared[T], w io.Writer) error { return displayPointee(w, inner, ptr.ConstFrom(s.Get())) }).
		Clone(func(s *Shared[T]) Shared[T] { return s.Clone() }).
		Default(func() Shared[T] { return NewShared(*newPointee[T](inner)) })
	if inner.VTable.Eq != nil {
		vb.Eq(func(a, b *Shared[T]) bool { return eqPointee(inner, a.Get(), b.Get()) })
	}
	if inner.VTable.Hash != nil {
		vb.Hash(func(s *Shared[T], h hash.Hash) {
			if v := s.Get(); v != nil {
				inner.VTable.Hash(ptr.ConstFrom(v), h)
			}
		})
	}

	return shape.BuilderForSized[Shared[T]]().
		Ty(shape.TyPointer).
		TypeParams(shape.TypeParam{Name: "T", Shape: pointee}).
		VTable(vb.Build()).
		Def(&shape.SmartPointerDef{
			Pointee: pointee,
			Flags:   shape.SmartPointerAtomic,
			Known:   shape.KnownShared,
			Weak:    shape.Of[Weak[T]],
			VTable: &shape.SmartPointerVTable{
				Borrow: func(p ptr.Const) (ptr.Const, bool) {
					v := ptr.Get[Shared[T]](p).Get()
					return ptr.ConstFrom(v), v != nil
				},
				NewInto: func(dst ptr.Uninit, value ptr.Mut) ptr.Mut {
					v, _ := ptr.Take[T](value)
					return ptr.Put(dst, NewShared(v))
				},
				Downgrade: func(strong ptr.Const, dst ptr.Uninit) ptr.Mut {
					return ptr.Put(dst, ptr.Get[Shared[T]](strong).Downgrade())
				},
			},
		}).
		Build()
}

// FacetShape describes Weak[T] as a weak smart pointer whose strong form is Shared[T].
func (*Weak[T]) FacetShape() *shape.Shape {
	pointee := shape.Of[T]
	vt := shape.VTableFor[Weak[T]]().
		TypeName(typeName("Weak", pointee)).
		Debug(func(w *Weak[T], out io.Writer) error {
			if s, ok := w.Upgrade(); ok {
				defer s.Drop()
				return debugPointee(out, "Weak", pointee(), ptr.ConstFrom(s.Get()))
			}
			_, err := io.WriteString(out, "Weak(<dangling>)")
			return err
		}).
		Clone(func(w *Weak[T]) Weak[T] { return *w }).
		Default(func() Weak[T] { return Weak[T]{} }).
		Build()

	return shape.BuilderForSized[Weak[T]]().
		Ty(shape.TyPointer).
		TypeParams(shape.TypeParam{Name: "T", Shape: pointee}).
		VTable(vt).
		Def(&shape.SmartPointerDef{
			Pointee: pointee,
			Flags:   shape.SmartPointerWeak | shape.SmartPointerAtomic,
			Known:   shape.KnownWeak,
			Strong:  shape.Of[Shared[T]],
			VTable: &shape.SmartPointerVTable{
				Upgrade: func(p ptr.Const, dst ptr.Uninit) (ptr.Mut, bool) {
					s, ok := ptr.Get[Weak[T]](p).Upgrade()
					if !ok {
						return ptr.Mut{}, false
					}
					return ptr.Put(dst, s), true
				},
			},
		}).
		Build()
}
