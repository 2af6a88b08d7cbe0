// Package ptr provides the opaque pointer types used to cross the type erasure boundary.
//
// Uninit, Const and Mut all wrap an unsafe.Pointer. They carry no type information;
// they only record what the holder may assume about the pointee: nothing (Uninit),
// a valid value it may read (Const), or a valid value it may read and write (Mut).
// None of this is checked. Callers that convert between them take on the obligation.
package ptr

import "unsafe"

// Uninit points at memory sized and aligned for some shape whose contents are not valid.
type Uninit struct {
	p unsafe.Pointer
}

// Const points at an initialized value that may only be read.
// Meta carries a length for wide pointers to unsized regions.
type Const struct {
	p    unsafe.Pointer
	meta uintptr
}

// Mut points at an initialized value that may be read and written.
type Mut struct {
	p unsafe.Pointer
}

// UninitOf wraps a raw pointer as uninitialized memory.
func UninitOf(p unsafe.Pointer) Uninit { return Uninit{p: p} }

// ConstOf wraps a raw pointer as an initialized read-only value.
func ConstOf(p unsafe.Pointer) Const { return Const{p: p} }

// MutOf wraps a raw pointer as an initialized writable value.
func MutOf(p unsafe.Pointer) Mut { return Mut{p: p} }

// Wide wraps a pointer to the first element of an unsized region together with its length.
func Wide(p unsafe.Pointer, n uintptr) Const { return Const{p: p, meta: n} }

// ConstFrom returns a read-only view of v.
func ConstFrom[T any](v *T) Const { return Const{p: unsafe.Pointer(v)} }

// MutFrom returns a writable view of v.
func MutFrom[T any](v *T) Mut { return Mut{p: unsafe.Pointer(v)} }

func (u Uninit) Raw() unsafe.Pointer { return u.p }
func (u Uninit) IsNil() bool         { return u.p == nil }

// Field returns the uninitialized memory at offset bytes from u.
func (u Uninit) Field(offset uintptr) Uninit {
	return Uninit{p: unsafe.Add(u.p, offset)}
}

// AssumeInit asserts the memory now holds a valid value.
func (u Uninit) AssumeInit() Mut { return Mut{p: u.p} }

func (c Const) Raw() unsafe.Pointer { return c.p }
func (c Const) IsNil() bool         { return c.p == nil }
func (c Const) Meta() uintptr       { return c.meta }

// Field returns the value at offset bytes from c.
func (c Const) Field(offset uintptr) Const {
	return Const{p: unsafe.Add(c.p, offset)}
}

func (m Mut) Raw() unsafe.Pointer { return m.p }
func (m Mut) IsNil() bool         { return m.p == nil }
func (m Mut) AsConst() Const      { return Const{p: m.p} }

// AsUninit gives up validity of the value, typically after it has been dropped or moved out.
func (m Mut) AsUninit() Uninit { return Uninit{p: m.p} }

// Field returns the value at offset bytes from m.
func (m Mut) Field(offset uintptr) Mut {
	return Mut{p: unsafe.Add(m.p, offset)}
}

// Put writes v into u and returns the now valid value.
func Put[T any](u Uninit, v T) Mut {
	*(*T)(u.p) = v
	return Mut{p: u.p}
}

// Get reinterprets c as *T.
func Get[T any](c Const) *T {
	return (*T)(c.p)
}

// GetMut reinterprets m as *T.
func GetMut[T any](m Mut) *T {
	return (*T)(m.p)
}

// Read copies the T stored at c.
func Read[T any](c Const) T {
	return *(*T)(c.p)
}

// Take moves the T out of m. The source is zeroed and must be treated as uninitialized.
func Take[T any](m Mut) (T, Uninit) {
	p := (*T)(m.p)
	v := *p
	var zero T
	*p = zero
	return v, Uninit{p: m.p}
}
