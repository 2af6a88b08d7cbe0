package smartptr

import (
	"io"
	"sync"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

type lockedCell[T any] struct {
	mu    sync.RWMutex
	value T
}

// Locked owns one T behind a read-write lock. Dropping a Locked drops the value.
// The zero Locked is empty.
type Locked[T any] struct {
	c *lockedCell[T]
}

// NewLocked moves v behind a new lock.
func NewLocked[T any](v T) Locked[T] {
	return Locked[T]{c: &lockedCell[T]{value: v}}
}

func (l Locked[T]) IsEmpty() bool { return l.c == nil }

// Lock blocks until the value is exclusively held.
func (l Locked[T]) Lock() (*T, func()) {
	l.c.mu.Lock()
	return &l.c.value, l.c.mu.Unlock
}

// TryLock acquires the exclusive lock without blocking.
func (l Locked[T]) TryLock() (*T, func(), bool) {
	if l.c == nil || !l.c.mu.TryLock() {
		return nil, nil, false
	}
	return &l.c.value, l.c.mu.Unlock, true
}

// TryRead acquires a shared read lock without blocking.
func (l Locked[T]) TryRead() (*T, func(), bool) {
	if l.c == nil || !l.c.mu.TryRLock() {
		return nil, nil, false
	}
	return &l.c.value, l.c.mu.RUnlock, true
}

func guard[T any](name, op string, v *T, unlock func(), ok bool) (shape.LockGuard, error) {
	if !ok {
		return shape.LockGuard{}, errors.Unavailable(errors.PhasePoke, name, op+": lock is held")
	}
	return shape.LockGuard{Data: ptr.MutFrom(v), Unlock: unlock}, nil
}

// FacetShape describes Locked[T] as a lock-guarded smart pointer to T.
func (*Locked[T]) FacetShape() *shape.Shape {
	inner := shape.Of[T]()
	pointee := func() *shape.Shape { return inner }
	name := func() string { return "Locked[" + inner.String() + "]" }

	vt := shape.VTableFor[Locked[T]]().
		TypeName(typeName("Locked", pointee)).
		Debug(func(l *Locked[T], w io.Writer) error {
			v, unlock, ok := l.TryRead()
			if !ok {
				_, err := io.WriteString(w, "Locked(<locked>)")
				return err
			}
			defer unlock()
			return debugPointee(w, "Locked", inner, ptr.ConstFrom(v))
		}).
		Default(func() Locked[T] { return Locked[T]{c: &lockedCell[T]{value: *newPointee[T](inner)}} }).
		Build()

	tryLock := func(p ptr.Const) (shape.LockGuard, error) {
		v, unlock, ok := ptr.Get[Locked[T]](p).TryLock()
		return guard(name(), "try_lock", v, unlock, ok)
	}
	tryRead := func(p ptr.Const) (shape.LockGuard, error) {
		v, unlock, ok := ptr.Get[Locked[T]](p).TryRead()
		return guard(name(), "try_read", v, unlock, ok)
	}

	return shape.BuilderForSized[Locked[T]]().
		Ty(shape.TyPointer).
		TypeParams(shape.TypeParam{Name: "T", Shape: pointee}).
		VTable(vt).
		Def(&shape.SmartPointerDef{
			Pointee: pointee,
			Flags:   shape.SmartPointerLock,
			Known:   shape.KnownLocked,
			VTable: &shape.SmartPointerVTable{
				NewInto: func(dst ptr.Uninit, value ptr.Mut) ptr.Mut {
					v, _ := ptr.Take[T](value)
					return ptr.Put(dst, NewLocked(v))
				},
				TryLock:  tryLock,
				TryRead:  tryRead,
				TryWrite: tryLock,
			},
		}).
		Build()
}
