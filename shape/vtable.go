package shape

import (
	"hash"
	"io"
	"strings"

	"github.com/wippyai/go-facet/ptr"
)

// TypeNameOpts bounds how deep type parameters are rendered.
// A negative RecurseTTL is unbounded; zero renders parameters as "…".
type TypeNameOpts struct {
	RecurseTTL int
}

func DefaultTypeNameOpts() TypeNameOpts  { return TypeNameOpts{RecurseTTL: -1} }
func OneLevelTypeNameOpts() TypeNameOpts { return TypeNameOpts{RecurseTTL: 1} }

// ForChildren returns the options to use for type parameters, or false when the budget is spent.
func (o TypeNameOpts) ForChildren() (TypeNameOpts, bool) {
	switch {
	case o.RecurseTTL < 0:
		return o, true
	case o.RecurseTTL == 0:
		return o, false
	default:
		return TypeNameOpts{RecurseTTL: o.RecurseTTL - 1}, true
	}
}

// MarkerTraits are static properties of a type.
type MarkerTraits uint8

const (
	MarkerComparable MarkerTraits = 1 << iota
	MarkerCopy
	MarkerTotalOrd
)

func (m MarkerTraits) Has(bit MarkerTraits) bool { return m&bit != 0 }

// LockGuard is a held lock on a smart pointer's pointee.
type LockGuard struct {
	Data   ptr.Mut
	Unlock func()
}

// ValueVTable holds the erased operations of one type. A nil entry means the type does not support it.
type ValueVTable struct {
	TypeName func(b *strings.Builder, opts TypeNameOpts)

	// DropInPlace releases what the value owns and leaves the memory uninitialized.
	// It is nil when nothing reachable from the type needs dropping.
	DropInPlace func(ptr.Mut) ptr.Uninit

	Invariants     func(ptr.Const) error
	Display        func(ptr.Const, io.Writer) error
	Debug          func(ptr.Const, io.Writer) error
	DefaultInPlace func(ptr.Uninit) ptr.Mut
	CloneInto      func(src ptr.Const, dst ptr.Uninit) ptr.Mut
	Eq             func(a, b ptr.Const) bool
	PartialOrd     func(a, b ptr.Const) (int, bool)
	Ord            func(a, b ptr.Const) int
	Hash           func(ptr.Const, hash.Hash)

	// Parse leaves dst uninitialized on error.
	Parse func(s string, dst ptr.Uninit) (ptr.Mut, error)

	// TryFrom converts a value of another shape. src stays owned by the caller.
	TryFrom func(src ptr.Const, srcShape *Shape, dst ptr.Uninit) (ptr.Mut, error)

	// TryIntoInner moves the wrapped value of a transparent type into dst.
	TryIntoInner func(src ptr.Mut, dst ptr.Uninit) (ptr.Mut, error)

	// TryBorrowInner returns the wrapped value of a transparent type without moving it.
	TryBorrowInner func(src ptr.Const) (ptr.Const, error)

	Marker MarkerTraits
}

// clone returns a shallow copy that can be amended without touching the original.
func (vt *ValueVTable) clone() *ValueVTable {
	c := *vt
	return &c
}
