package shape

import (
	"reflect"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
)

var builtinKinds = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeFor[bool](),
	reflect.Int:     reflect.TypeFor[int](),
	reflect.Int8:    reflect.TypeFor[int8](),
	reflect.Int16:   reflect.TypeFor[int16](),
	reflect.Int32:   reflect.TypeFor[int32](),
	reflect.Int64:   reflect.TypeFor[int64](),
	reflect.Uint:    reflect.TypeFor[uint](),
	reflect.Uint8:   reflect.TypeFor[uint8](),
	reflect.Uint16:  reflect.TypeFor[uint16](),
	reflect.Uint32:  reflect.TypeFor[uint32](),
	reflect.Uint64:  reflect.TypeFor[uint64](),
	reflect.Uintptr: reflect.TypeFor[uintptr](),
	reflect.Float32: reflect.TypeFor[float32](),
	reflect.Float64: reflect.TypeFor[float64](),
	reflect.String:  reflect.TypeFor[string](),
}

// underlyingScalar returns the builtin type a named scalar is declared over.
func underlyingScalar(t reflect.Type) (reflect.Type, bool) {
	if t.Name() == "" || t.PkgPath() == "" {
		return nil, false
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return bytesType, true
	}
	base, ok := builtinKinds[t.Kind()]
	return base, ok
}

// deriveNamedScalar gives a declared scalar type such as `type UserID uint64` its own
// identity over the builtin's operations. The builtin becomes its inner shape.
func deriveNamedScalar(t reflect.Type) *Shape {
	bt, ok := underlyingScalar(t)
	if !ok {
		return nil
	}
	base := OfType(bt)
	vt := base.VTable.clone()
	vt.TypeName = typeNameFunc(t, nil)
	vt.DropInPlace = dropGlue(t)
	applyHooks(t, vt)

	vt.TryFrom = func(src ptr.Const, ss *Shape, dst ptr.Uninit) (ptr.Mut, error) {
		if ss.Is(base) {
			typedCopy(bt, dst.Raw(), src.Raw())
			return dst.AssumeInit(), nil
		}
		if ss.Inner != nil && ss.Inner().Is(base) {
			typedCopy(bt, dst.Raw(), src.Raw())
			return dst.AssumeInit(), nil
		}
		if base.VTable.TryFrom != nil {
			return base.VTable.TryFrom(src, ss, dst)
		}
		return ptr.Mut{}, errors.UnsupportedSource(ss.String(), base.String())
	}
	vt.TryIntoInner = func(src ptr.Mut, dst ptr.Uninit) (ptr.Mut, error) {
		moveValue(bt, dst.Raw(), src.Raw())
		return dst.AssumeInit(), nil
	}
	vt.TryBorrowInner = func(src ptr.Const) (ptr.Const, error) { return src, nil }

	return NewBuilder().
		ID(IDFor(t)).
		Layout(LayoutFor(t)).
		TypeIdentifier(t.String()).
		Ty(TyUser).
		VTable(vt).
		Def(base.Def).
		Inner(func() *Shape { return base }).
		Build()
}

// deriveOpaque treats a struct with text marshaling as a scalar whose text form round-trips.
func deriveOpaque(t reflect.Type) *Shape {
	vt := &ValueVTable{
		TypeName:       typeNameFunc(t, nil),
		DropInPlace:    dropGlue(t),
		Debug:          reflectDebug(t),
		DefaultInPlace: zeroDefault(t),
	}
	if supports(t, capClone) {
		vt.CloneInto = cloneGlue(t)
	}
	if t.Comparable() {
		vt.Eq = func(a, b ptr.Const) bool {
			return reflect.NewAt(t, a.Raw()).Elem().Equal(reflect.NewAt(t, b.Raw()).Elem())
		}
		vt.Marker |= MarkerComparable
	}
	applyHooks(t, vt)
	vt.Display = textDisplay(t)

	return NewBuilder().
		ID(IDFor(t)).
		Layout(LayoutFor(t)).
		TypeIdentifier(t.String()).
		Ty(TyUser).
		VTable(vt).
		Def(&ScalarDef{Affinity: AffinityOpaque}).
		Build()
}
