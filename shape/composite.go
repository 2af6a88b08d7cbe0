package shape

import (
	"encoding"
	"fmt"
	"hash"
	"io"
	"reflect"
	"unsafe"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
)

// typedCopy copies one t from src to dst through reflect so the collector sees the writes.
func typedCopy(t reflect.Type, dst, src unsafe.Pointer) {
	reflect.NewAt(t, dst).Elem().Set(reflect.NewAt(t, src).Elem())
}

// moveValue copies src to dst and zeroes src.
func moveValue(t reflect.Type, dst, src unsafe.Pointer) {
	typedCopy(t, dst, src)
	reflect.NewAt(t, src).Elem().SetZero()
}

// Move transfers the value of shape s from src to dst. src is left uninitialized.
func Move(s *Shape, dst ptr.Uninit, src ptr.Mut) ptr.Mut {
	if s.Layout.Size == 0 {
		return dst.AssumeInit()
	}
	moveValue(s.ID.Type(), dst.Raw(), src.Raw())
	return dst.AssumeInit()
}

func zeroDefault(t reflect.Type) func(ptr.Uninit) ptr.Mut {
	return func(dst ptr.Uninit) ptr.Mut {
		reflect.NewAt(t, dst.Raw()).Elem().SetZero()
		return dst.AssumeInit()
	}
}

func reflectDebug(t reflect.Type) func(ptr.Const, io.Writer) error {
	return func(p ptr.Const, w io.Writer) error {
		_, err := fmt.Fprintf(w, "%+v", reflect.NewAt(t, p.Raw()).Elem().Interface())
		return err
	}
}

func stringerDisplay(t reflect.Type) func(ptr.Const, io.Writer) error {
	return func(p ptr.Const, w io.Writer) error {
		return writeString(w, reflect.NewAt(t, p.Raw()).Interface().(fmt.Stringer).String())
	}
}

func textDisplay(t reflect.Type) func(ptr.Const, io.Writer) error {
	return func(p ptr.Const, w io.Writer) error {
		b, err := reflect.NewAt(t, p.Raw()).Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
}

func textParse(t reflect.Type) func(string, ptr.Uninit) (ptr.Mut, error) {
	return func(s string, dst ptr.Uninit) (ptr.Mut, error) {
		v := reflect.NewAt(t, dst.Raw())
		v.Elem().SetZero()
		if err := v.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			v.Elem().SetZero()
			return ptr.Mut{}, errors.ParseFailed(t.String(), s, err)
		}
		return dst.AssumeInit(), nil
	}
}

func validatorInvariants(t reflect.Type) func(ptr.Const) error {
	return func(p ptr.Const) error {
		return reflect.NewAt(t, p.Raw()).Interface().(Validator).Validate()
	}
}

// isPlainData reports whether a t can be duplicated by copying its bytes.
func isPlainData(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128, reflect.String:
		return true
	case reflect.Array:
		return isPlainData(t.Elem())
	case reflect.Struct:
		if isProvider(t) {
			return false
		}
		for i := 0; i < t.NumField(); i++ {
			if !isPlainData(t.Field(i).Type) {
				return false
			}
		}
		return true
	}
	return false
}

type capability uint8

const (
	capEq capability = iota
	capHash
	capClone
)

// supports reports whether derived code can implement c for every value reachable from t.
func supports(t reflect.Type, c capability) bool {
	return supportsRec(t, c, make(map[reflect.Type]bool))
}

func supportsRec(t reflect.Type, c capability, visiting map[reflect.Type]bool) bool {
	if visiting[t] || isProvider(t) {
		return true
	}
	visiting[t] = true
	defer delete(visiting, t)

	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return false
	case reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return c != capHash
	case reflect.Map:
		if c == capHash {
			return false
		}
		return supportsRec(t.Key(), c, visiting) && supportsRec(t.Elem(), c, visiting)
	case reflect.Slice, reflect.Array, reflect.Pointer:
		return supportsRec(t.Elem(), c, visiting)
	case reflect.Struct:
		fields := visibleFields(t)
		if c == capClone {
			// cloning copies every field, listed or not
			fields = allFields(t)
		}
		for _, f := range fields {
			if !supportsRec(f.Type, c, visiting) {
				return false
			}
		}
	}
	return true
}

func allFields(t reflect.Type) []reflect.StructField {
	out := make([]reflect.StructField, t.NumField())
	for i := range out {
		out[i] = t.Field(i)
	}
	return out
}

// cloneGlue returns a deep clone for t. Slices, maps and pointers get fresh storage.
func cloneGlue(t reflect.Type) func(ptr.Const, ptr.Uninit) ptr.Mut {
	return func(src ptr.Const, dst ptr.Uninit) ptr.Mut {
		cloneStructural(t, dst.Raw(), src.Raw())
		return dst.AssumeInit()
	}
}

func cloneAt(t reflect.Type, dst, src unsafe.Pointer) {
	if isProvider(t) {
		if vt := OfType(t).VTable; vt.CloneInto != nil {
			vt.CloneInto(ptr.ConstOf(src), ptr.UninitOf(dst))
			return
		}
		typedCopy(t, dst, src)
		return
	}
	cloneStructural(t, dst, src)
}

func cloneStructural(t reflect.Type, dst, src unsafe.Pointer) {
	if isPlainData(t) {
		typedCopy(t, dst, src)
		return
	}

	switch t.Kind() {
	case reflect.Slice:
		sv := reflect.NewAt(t, src).Elem()
		dv := reflect.NewAt(t, dst).Elem()
		if sv.IsNil() {
			dv.SetZero()
			return
		}
		n := sv.Len()
		ns := reflect.MakeSlice(t, n, n)
		elem := t.Elem()
		if isPlainData(elem) {
			reflect.Copy(ns, sv)
		} else {
			for i := 0; i < n; i++ {
				cloneAt(elem, ns.Index(i).Addr().UnsafePointer(), sv.Index(i).Addr().UnsafePointer())
			}
		}
		dv.Set(ns)

	case reflect.Map:
		sv := reflect.NewAt(t, src).Elem()
		dv := reflect.NewAt(t, dst).Elem()
		if sv.IsNil() {
			dv.SetZero()
			return
		}
		kt, vt := t.Key(), t.Elem()
		nm := reflect.MakeMapWithSize(t, sv.Len())
		it := sv.MapRange()
		for it.Next() {
			tk, tv := reflect.New(kt), reflect.New(vt)
			tk.Elem().Set(it.Key())
			tv.Elem().Set(it.Value())
			nk, nv := reflect.New(kt), reflect.New(vt)
			cloneAt(kt, nk.UnsafePointer(), tk.UnsafePointer())
			cloneAt(vt, nv.UnsafePointer(), tv.UnsafePointer())
			nm.SetMapIndex(nk.Elem(), nv.Elem())
		}
		dv.Set(nm)

	case reflect.Pointer:
		q := *(*unsafe.Pointer)(src)
		dv := reflect.NewAt(t, dst).Elem()
		if q == nil {
			dv.SetZero()
			return
		}
		np := reflect.New(t.Elem())
		cloneAt(t.Elem(), np.UnsafePointer(), q)
		dv.Set(np)

	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			cloneAt(f.Type, unsafe.Add(dst, f.Offset), unsafe.Add(src, f.Offset))
		}

	case reflect.Array:
		elem := t.Elem()
		for i := 0; i < t.Len(); i++ {
			off := uintptr(i) * elem.Size()
			cloneAt(elem, unsafe.Add(dst, off), unsafe.Add(src, off))
		}

	default:
		typedCopy(t, dst, src)
	}
}

// fieldsEq compares the listed fields of two values laid out by sd.
func fieldsEq(sd *StructDef, a, b ptr.Const) bool {
	for i := range sd.Fields {
		f := &sd.Fields[i]
		fs := f.Shape()
		if fs.VTable.Eq == nil || !fs.VTable.Eq(a.Field(f.Offset), b.Field(f.Offset)) {
			return false
		}
	}
	return true
}

func fieldsHash(sd *StructDef, p ptr.Const, h hash.Hash) {
	for i := range sd.Fields {
		f := &sd.Fields[i]
		if fs := f.Shape(); fs.VTable.Hash != nil {
			fs.VTable.Hash(p.Field(f.Offset), h)
		}
	}
}

func structEq(sd *StructDef) func(a, b ptr.Const) bool {
	return func(a, b ptr.Const) bool { return fieldsEq(sd, a, b) }
}

func structHash(sd *StructDef) func(ptr.Const, hash.Hash) {
	return func(p ptr.Const, h hash.Hash) { fieldsHash(sd, p, h) }
}

func enumEq(ed *EnumDef) func(a, b ptr.Const) bool {
	return func(a, b ptr.Const) bool {
		ia, oka := ed.VTable.VariantIndex(a)
		ib, okb := ed.VTable.VariantIndex(b)
		if oka != okb || ia != ib {
			return false
		}
		if !oka {
			return true
		}
		return fieldsEq(ed.Variants[ia].Data, ed.VTable.Payload(a, ia), ed.VTable.Payload(b, ib))
	}
}

func enumHash(ed *EnumDef) func(ptr.Const, hash.Hash) {
	return func(p ptr.Const, h hash.Hash) {
		i, ok := ed.VTable.VariantIndex(p)
		if !ok {
			hashUint64(h, ^uint64(0))
			return
		}
		hashUint64(h, uint64(ed.Variants[i].Discriminant))
		fieldsHash(ed.Variants[i].Data, ed.VTable.Payload(p, i), h)
	}
}

func lazyShape(t reflect.Type) func() *Shape {
	var s *Shape
	return func() *Shape {
		if s == nil {
			s = OfType(t)
		}
		return s
	}
}
