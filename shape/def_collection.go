package shape

import (
	"iter"

	"github.com/wippyai/go-facet/ptr"
)

// ListVTable operates on growable sequences.
type ListVTable struct {
	// InitInPlaceWithCapacity turns uninitialized memory into an empty list.
	InitInPlaceWithCapacity func(dst ptr.Uninit, capacity int) ptr.Mut

	// Push moves item onto the end of the list. item must be treated as uninitialized afterwards.
	Push func(list ptr.Mut, item ptr.Mut)

	Len     func(ptr.Const) int
	ItemPtr func(list ptr.Const, i int) (ptr.Const, bool)

	// AsSlice returns a wide pointer to the list's elements.
	AsSlice func(ptr.Const) ptr.Const
}

// ListDef is a growable sequence of T.
type ListDef struct {
	T      func() *Shape
	VTable *ListVTable
}

func (*ListDef) DefKind() DefKind { return DefList }

// ArrayVTable addresses elements of a fixed-size array.
type ArrayVTable struct {
	ItemPtr func(arr ptr.Const, i int) (ptr.Const, bool)
}

// ArrayDef is N values of T stored inline, Stride bytes apart.
type ArrayDef struct {
	T      func() *Shape
	N      int
	Stride uintptr
	VTable *ArrayVTable
}

func (*ArrayDef) DefKind() DefKind { return DefArray }

// SliceVTable addresses elements through a wide pointer.
type SliceVTable struct {
	Len     func(ptr.Const) int
	ItemPtr func(s ptr.Const, i int) (ptr.Const, bool)
}

// SliceDef is an unsized run of T. Values are only reachable through wide pointers.
type SliceDef struct {
	T      func() *Shape
	VTable *SliceVTable
}

func (*SliceDef) DefKind() DefKind { return DefSlice }

// MapVTable operates on associative containers.
type MapVTable struct {
	InitInPlaceWithCapacity func(dst ptr.Uninit, capacity int) ptr.Mut

	// Insert moves key and value into the map. Replacing an existing entry drops its
	// value and the duplicate key.
	Insert func(m ptr.Mut, key, value ptr.Mut)

	Len         func(ptr.Const) int
	ContainsKey func(m ptr.Const, key ptr.Const) bool

	// GetValuePtr returns a read-only copy of the value stored under key.
	GetValuePtr func(m ptr.Const, key ptr.Const) (ptr.Const, bool)

	// Iter yields entries, in key order when keys are ordered.
	Iter func(m ptr.Const) iter.Seq2[ptr.Const, ptr.Const]
}

// MapDef maps K to V.
type MapDef struct {
	K      func() *Shape
	V      func() *Shape
	VTable *MapVTable
}

func (*MapDef) DefKind() DefKind { return DefMap }

// SmartPointerFlags describe how a smart pointer shares its pointee.
type SmartPointerFlags uint8

const (
	SmartPointerWeak SmartPointerFlags = 1 << iota
	SmartPointerAtomic
	SmartPointerLock
)

func (f SmartPointerFlags) Has(bit SmartPointerFlags) bool { return f&bit != 0 }

// KnownSmartPointer names the smart pointers this module ships.
type KnownSmartPointer uint8

const (
	KnownUnknown KnownSmartPointer = iota
	KnownBox
	KnownShared
	KnownWeak
	KnownLocked
)

var knownSmartPointerNames = [...]string{
	KnownUnknown: "unknown",
	KnownBox:     "box",
	KnownShared:  "shared",
	KnownWeak:    "weak",
	KnownLocked:  "locked",
}

func (k KnownSmartPointer) String() string {
	if int(k) < len(knownSmartPointerNames) {
		return knownSmartPointerNames[k]
	}
	return "unknown"
}

// SmartPointerVTable exposes the pointee and the wrapped type's own synchronization.
type SmartPointerVTable struct {
	// Borrow returns the pointee, or false for an empty or dangling pointer.
	Borrow func(ptr.Const) (ptr.Const, bool)

	// NewInto moves value into a new smart pointer at dst.
	NewInto func(dst ptr.Uninit, value ptr.Mut) ptr.Mut

	// Upgrade turns a weak pointer into a strong one at dst.
	Upgrade func(weak ptr.Const, dst ptr.Uninit) (ptr.Mut, bool)

	// Downgrade creates a weak pointer at dst.
	Downgrade func(strong ptr.Const, dst ptr.Uninit) ptr.Mut

	TryLock  func(ptr.Const) (LockGuard, error)
	TryRead  func(ptr.Const) (LockGuard, error)
	TryWrite func(ptr.Const) (LockGuard, error)
}

// SmartPointerDef is an owning or sharing handle to a pointee.
type SmartPointerDef struct {
	Pointee func() *Shape
	Flags   SmartPointerFlags
	Known   KnownSmartPointer
	Weak    func() *Shape
	Strong  func() *Shape
	VTable  *SmartPointerVTable
}

func (*SmartPointerDef) DefKind() DefKind { return DefSmartPointer }
