package shape

import (
	"hash"
	"io"
	"reflect"
	"strings"
	"unsafe"

	"github.com/wippyai/go-facet/ptr"
)

// ValueVTableBuilder builds a ValueVTable from closures typed on T.
// Build erases them to pointer-based closures; the erased closures assume every pointer they get
// addresses a T.
type ValueVTableBuilder[T any] struct {
	vt ValueVTable
}

// VTableFor starts a vtable for T. The type name and the drop glue are derived from T.
func VTableFor[T any]() *ValueVTableBuilder[T] {
	t := reflect.TypeFor[T]()
	b := &ValueVTableBuilder[T]{}
	b.vt.TypeName = typeNameFunc(t, nil)
	b.vt.DropInPlace = dropGlue(t)
	return b
}

func (b *ValueVTableBuilder[T]) TypeName(fn func(*strings.Builder, TypeNameOpts)) *ValueVTableBuilder[T] {
	b.vt.TypeName = fn
	return b
}

// Drop replaces the derived drop glue. The memory is zeroed after fn returns.
func (b *ValueVTableBuilder[T]) Drop(fn func(*T)) *ValueVTableBuilder[T] {
	b.vt.DropInPlace = func(p ptr.Mut) ptr.Uninit {
		v := ptr.GetMut[T](p)
		fn(v)
		var zero T
		*v = zero
		return p.AsUninit()
	}
	return b
}

func (b *ValueVTableBuilder[T]) Invariants(fn func(*T) error) *ValueVTableBuilder[T] {
	b.vt.Invariants = func(p ptr.Const) error { return fn(ptr.Get[T](p)) }
	return b
}

func (b *ValueVTableBuilder[T]) Display(fn func(*T, io.Writer) error) *ValueVTableBuilder[T] {
	b.vt.Display = func(p ptr.Const, w io.Writer) error { return fn(ptr.Get[T](p), w) }
	return b
}

func (b *ValueVTableBuilder[T]) Debug(fn func(*T, io.Writer) error) *ValueVTableBuilder[T] {
	b.vt.Debug = func(p ptr.Const, w io.Writer) error { return fn(ptr.Get[T](p), w) }
	return b
}

func (b *ValueVTableBuilder[T]) Default(fn func() T) *ValueVTableBuilder[T] {
	b.vt.DefaultInPlace = func(dst ptr.Uninit) ptr.Mut { return ptr.Put(dst, fn()) }
	return b
}

func (b *ValueVTableBuilder[T]) Clone(fn func(*T) T) *ValueVTableBuilder[T] {
	b.vt.CloneInto = func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
		return ptr.Put(dst, fn(ptr.Get[T](src)))
	}
	return b
}

func (b *ValueVTableBuilder[T]) Eq(fn func(x, y *T) bool) *ValueVTableBuilder[T] {
	b.vt.Eq = func(x, y ptr.Const) bool { return fn(ptr.Get[T](x), ptr.Get[T](y)) }
	return b
}

func (b *ValueVTableBuilder[T]) PartialOrd(fn func(x, y *T) (int, bool)) *ValueVTableBuilder[T] {
	b.vt.PartialOrd = func(x, y ptr.Const) (int, bool) { return fn(ptr.Get[T](x), ptr.Get[T](y)) }
	return b
}

// Ord sets the total order. PartialOrd is filled from it when unset.
func (b *ValueVTableBuilder[T]) Ord(fn func(x, y *T) int) *ValueVTableBuilder[T] {
	b.vt.Ord = func(x, y ptr.Const) int { return fn(ptr.Get[T](x), ptr.Get[T](y)) }
	b.vt.Marker |= MarkerTotalOrd
	if b.vt.PartialOrd == nil {
		b.vt.PartialOrd = func(x, y ptr.Const) (int, bool) { return fn(ptr.Get[T](x), ptr.Get[T](y)), true }
	}
	return b
}

func (b *ValueVTableBuilder[T]) Hash(fn func(*T, hash.Hash)) *ValueVTableBuilder[T] {
	b.vt.Hash = func(p ptr.Const, h hash.Hash) { fn(ptr.Get[T](p), h) }
	return b
}

func (b *ValueVTableBuilder[T]) Parse(fn func(string) (T, error)) *ValueVTableBuilder[T] {
	b.vt.Parse = func(s string, dst ptr.Uninit) (ptr.Mut, error) {
		v, err := fn(s)
		if err != nil {
			return ptr.Mut{}, err
		}
		return ptr.Put(dst, v), nil
	}
	return b
}

func (b *ValueVTableBuilder[T]) TryFrom(fn func(src ptr.Const, srcShape *Shape) (T, error)) *ValueVTableBuilder[T] {
	b.vt.TryFrom = func(src ptr.Const, srcShape *Shape, dst ptr.Uninit) (ptr.Mut, error) {
		v, err := fn(src, srcShape)
		if err != nil {
			return ptr.Mut{}, err
		}
		return ptr.Put(dst, v), nil
	}
	return b
}

func (b *ValueVTableBuilder[T]) TryIntoInner(fn func(src ptr.Mut, dst ptr.Uninit) (ptr.Mut, error)) *ValueVTableBuilder[T] {
	b.vt.TryIntoInner = fn
	return b
}

func (b *ValueVTableBuilder[T]) TryBorrowInner(fn func(*T) (ptr.Const, error)) *ValueVTableBuilder[T] {
	b.vt.TryBorrowInner = func(p ptr.Const) (ptr.Const, error) { return fn(ptr.Get[T](p)) }
	return b
}

func (b *ValueVTableBuilder[T]) Marker(m MarkerTraits) *ValueVTableBuilder[T] {
	b.vt.Marker |= m
	return b
}

// Build erases the typed closures into a ValueVTable.
func (b *ValueVTableBuilder[T]) Build() *ValueVTable {
	vt := b.vt
	return &vt
}

// VTableView calls a shape's erased operations with typed arguments.
// The second result of each method is false when the operation is absent.
type VTableView[T any] struct {
	vt *ValueVTable
}

// ViewOf returns the typed view of T's vtable.
func ViewOf[T any]() VTableView[T] {
	return VTableView[T]{vt: Of[T]().VTable}
}

func (v VTableView[T]) TypeName(opts TypeNameOpts) string {
	var b strings.Builder
	if v.vt.TypeName != nil {
		v.vt.TypeName(&b, opts)
	}
	return b.String()
}

func (v VTableView[T]) Eq(x, y *T) (bool, bool) {
	if v.vt.Eq == nil {
		return false, false
	}
	return v.vt.Eq(ptr.ConstFrom(x), ptr.ConstFrom(y)), true
}

func (v VTableView[T]) PartialOrd(x, y *T) (int, bool) {
	if v.vt.PartialOrd == nil {
		return 0, false
	}
	return v.vt.PartialOrd(ptr.ConstFrom(x), ptr.ConstFrom(y))
}

func (v VTableView[T]) Ord(x, y *T) (int, bool) {
	if v.vt.Ord == nil {
		return 0, false
	}
	return v.vt.Ord(ptr.ConstFrom(x), ptr.ConstFrom(y)), true
}

func (v VTableView[T]) Hash(x *T, h hash.Hash) bool {
	if v.vt.Hash == nil {
		return false
	}
	v.vt.Hash(ptr.ConstFrom(x), h)
	return true
}

func (v VTableView[T]) Display(x *T, w io.Writer) (bool, error) {
	if v.vt.Display == nil {
		return false, nil
	}
	return true, v.vt.Display(ptr.ConstFrom(x), w)
}

func (v VTableView[T]) Debug(x *T, w io.Writer) (bool, error) {
	if v.vt.Debug == nil {
		return false, nil
	}
	return true, v.vt.Debug(ptr.ConstFrom(x), w)
}

func (v VTableView[T]) Parse(s string) (T, bool, error) {
	var out T
	if v.vt.Parse == nil {
		return out, false, nil
	}
	_, err := v.vt.Parse(s, ptr.UninitOf(unsafe.Pointer(&out)))
	return out, true, err
}

func (v VTableView[T]) Default() (T, bool) {
	var out T
	if v.vt.DefaultInPlace == nil {
		return out, false
	}
	v.vt.DefaultInPlace(ptr.UninitOf(unsafe.Pointer(&out)))
	return out, true
}

func (v VTableView[T]) Clone(x *T) (T, bool) {
	var out T
	if v.vt.CloneInto == nil {
		return out, false
	}
	v.vt.CloneInto(ptr.ConstFrom(x), ptr.UninitOf(unsafe.Pointer(&out)))
	return out, true
}

func (v VTableView[T]) Invariants(x *T) (bool, error) {
	if v.vt.Invariants == nil {
		return false, nil
	}
	return true, v.vt.Invariants(ptr.ConstFrom(x))
}

// Drop runs the drop glue on x. It reports false when T has none; x is left untouched then.
func (v VTableView[T]) Drop(x *T) bool {
	if v.vt.DropInPlace == nil {
		return false
	}
	v.vt.DropInPlace(ptr.MutFrom(x))
	return true
}
