package shape

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/wippyai/go-facet/ptr"
)

// Dropper is implemented by types that must release something when a value is torn down.
// Drop runs once per value, before the value's own fields are dropped.
type Dropper interface {
	Drop()
}

var (
	dropperType    = reflect.TypeFor[Dropper]()
	needsDropCache sync.Map // reflect.Type -> bool
)

// NeedsDrop reports whether any value reachable from t implements Dropper.
func NeedsDrop(t reflect.Type) bool {
	if v, ok := needsDropCache.Load(t); ok {
		return v.(bool)
	}
	// Only the top-level answer is cached: results inside a cycle may be incomplete.
	r := needsDrop(t, make(map[reflect.Type]bool))
	needsDropCache.Store(t, r)
	return r
}

func needsDrop(t reflect.Type, visiting map[reflect.Type]bool) bool {
	if visiting[t] {
		return false
	}
	if reflect.PointerTo(t).Implements(dropperType) {
		return true
	}
	visiting[t] = true
	defer delete(visiting, t)

	switch t.Kind() {
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if needsDrop(t.Field(i).Type, visiting) {
				return true
			}
		}
	case reflect.Array:
		return t.Len() > 0 && needsDrop(t.Elem(), visiting)
	case reflect.Slice, reflect.Pointer:
		return needsDrop(t.Elem(), visiting)
	case reflect.Map:
		return needsDrop(t.Key(), visiting) || needsDrop(t.Elem(), visiting)
	}
	return false
}

// dropGlue returns the drop closure for t, or nil when t needs none.
func dropGlue(t reflect.Type) func(ptr.Mut) ptr.Uninit {
	if !NeedsDrop(t) {
		return nil
	}
	return func(p ptr.Mut) ptr.Uninit {
		dropStructural(t, p.Raw())
		reflect.NewAt(t, p.Raw()).Elem().SetZero()
		return p.AsUninit()
	}
}

// dropAt drops a nested value, deferring to a provider's own glue.
func dropAt(t reflect.Type, p unsafe.Pointer) {
	if isProvider(t) {
		if vt := OfType(t).VTable; vt.DropInPlace != nil {
			vt.DropInPlace(ptr.MutOf(p))
		}
		return
	}
	dropStructural(t, p)
}

func dropStructural(t reflect.Type, p unsafe.Pointer) {
	if reflect.PointerTo(t).Implements(dropperType) {
		reflect.NewAt(t, p).Interface().(Dropper).Drop()
	}

	switch t.Kind() {
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if NeedsDrop(f.Type) {
				dropAt(f.Type, unsafe.Add(p, f.Offset))
			}
		}

	case reflect.Array:
		elem := t.Elem()
		if !NeedsDrop(elem) {
			return
		}
		for i := 0; i < t.Len(); i++ {
			dropAt(elem, unsafe.Add(p, uintptr(i)*elem.Size()))
		}

	case reflect.Pointer:
		elem := t.Elem()
		if q := *(*unsafe.Pointer)(p); q != nil && NeedsDrop(elem) {
			dropAt(elem, q)
		}

	case reflect.Slice:
		elem := t.Elem()
		if !NeedsDrop(elem) {
			return
		}
		v := reflect.NewAt(t, p).Elem()
		for i := 0; i < v.Len(); i++ {
			dropAt(elem, v.Index(i).Addr().UnsafePointer())
		}

	case reflect.Map:
		kt, vt := t.Key(), t.Elem()
		dropKeys, dropVals := NeedsDrop(kt), NeedsDrop(vt)
		if !dropKeys && !dropVals {
			return
		}
		m := reflect.NewAt(t, p).Elem()
		if m.IsNil() {
			return
		}
		it := m.MapRange()
		for it.Next() {
			// map entries are not addressable; drop a copy
			if dropKeys {
				tmp := reflect.New(kt)
				tmp.Elem().Set(it.Key())
				dropAt(kt, tmp.UnsafePointer())
			}
			if dropVals {
				tmp := reflect.New(vt)
				tmp.Elem().Set(it.Value())
				dropAt(vt, tmp.UnsafePointer())
			}
		}
	}
}

// DropInPlace runs s's drop glue on p if it has any and reports whether it did.
func DropInPlace(s *Shape, p ptr.Mut) bool {
	if s.VTable == nil || s.VTable.DropInPlace == nil {
		return false
	}
	s.VTable.DropInPlace(p)
	return true
}
