package shape

import (
	"cmp"
	"hash"
	"io"
	"iter"
	"reflect"
	"slices"
	"strings"
	"sync"
	"unsafe"

	"github.com/wippyai/go-facet/ptr"
)

func collectionVTable(t reflect.Type, params []TypeParam) *ValueVTable {
	vt := &ValueVTable{
		TypeName:       typeNameFunc(t, params),
		DropInPlace:    dropGlue(t),
		Debug:          reflectDebug(t),
		DefaultInPlace: zeroDefault(t),
	}
	if supports(t, capClone) {
		vt.CloneInto = cloneGlue(t)
	}
	return vt
}

func deriveList(t reflect.Type) *Shape {
	elem := t.Elem()
	item := lazyShape(elem)
	value := func(p unsafe.Pointer) reflect.Value { return reflect.NewAt(t, p).Elem() }

	lvt := &ListVTable{
		InitInPlaceWithCapacity: func(dst ptr.Uninit, capacity int) ptr.Mut {
			value(dst.Raw()).Set(reflect.MakeSlice(t, 0, capacity))
			return dst.AssumeInit()
		},
		Push: func(list ptr.Mut, it ptr.Mut) {
			v := value(list.Raw())
			iv := reflect.NewAt(elem, it.Raw()).Elem()
			v.Set(reflect.Append(v, iv))
			iv.SetZero()
		},
		Len: func(p ptr.Const) int { return value(p.Raw()).Len() },
		ItemPtr: func(p ptr.Const, i int) (ptr.Const, bool) {
			v := value(p.Raw())
			if i < 0 || i >= v.Len() {
				return ptr.Const{}, false
			}
			return ptr.ConstOf(v.Index(i).Addr().UnsafePointer()), true
		},
		AsSlice: func(p ptr.Const) ptr.Const {
			v := value(p.Raw())
			if v.Len() == 0 {
				return ptr.Wide(unsafe.Pointer(&zeroSized), 0)
			}
			return ptr.Wide(v.Index(0).Addr().UnsafePointer(), uintptr(v.Len()))
		},
	}
	params := []TypeParam{{Name: "T", Shape: item}}
	vt := collectionVTable(t, params)
	if supports(t, capEq) {
		vt.Eq = seqEq(lvt.Len, lvt.ItemPtr, item)
	}
	if supports(t, capHash) {
		vt.Hash = seqHash(lvt.Len, lvt.ItemPtr, item)
	}
	applyHooks(t, vt)

	return NewBuilder().
		ID(IDFor(t)).
		Layout(LayoutFor(t)).
		TypeIdentifier(t.String()).
		Ty(TySequence).
		TypeParams(params...).
		VTable(vt).
		Def(NewListDef().Item(item).VTable(lvt).Build()).
		Build()
}

func deriveArray(t reflect.Type) *Shape {
	elem := t.Elem()
	item := lazyShape(elem)
	n, stride := t.Len(), elem.Size()
	avt := &ArrayVTable{
		ItemPtr: func(p ptr.Const, i int) (ptr.Const, bool) {
			if i < 0 || i >= n {
				return ptr.Const{}, false
			}
			return p.Field(uintptr(i) * stride), true
		},
	}
	length := func(ptr.Const) int { return n }
	params := []TypeParam{{Name: "T", Shape: item}}
	vt := collectionVTable(t, params)
	if supports(t, capEq) {
		vt.Eq = seqEq(length, avt.ItemPtr, item)
	}
	if supports(t, capHash) {
		vt.Hash = seqHash(length, avt.ItemPtr, item)
	}
	if isPlainData(t) {
		vt.Marker |= MarkerCopy
	}
	applyHooks(t, vt)

	return NewBuilder().
		ID(IDFor(t)).
		Layout(LayoutFor(t)).
		TypeIdentifier(t.String()).
		Ty(TySequence).
		TypeParams(params...).
		VTable(vt).
		Def(&ArrayDef{T: item, N: n, Stride: stride, VTable: avt}).
		Build()
}

var sliceShapes sync.Map // element reflect.Type -> *Shape

// SliceOf returns the unsized [T] view shape for elements of shape elem.
// Values are addressed through wide pointers built with ptr.Wide.
func SliceOf(elem *Shape) *Shape {
	et := elem.ID.Type()
	if s, ok := sliceShapes.Load(et); ok {
		return s.(*Shape)
	}
	stride := elem.Layout.Size
	svt := &SliceVTable{
		Len: func(p ptr.Const) int { return int(p.Meta()) },
		ItemPtr: func(p ptr.Const, i int) (ptr.Const, bool) {
			if i < 0 || i >= int(p.Meta()) {
				return ptr.Const{}, false
			}
			return p.Field(uintptr(i) * stride), true
		},
	}
	item := func() *Shape { return elem }
	vt := &ValueVTable{
		TypeName: func(b *strings.Builder, opts TypeNameOpts) {
			b.WriteByte('[')
			if child, ok := opts.ForChildren(); ok {
				elem.WriteTypeName(b, child)
			} else {
				b.WriteString("…")
			}
			b.WriteByte(']')
		},
		Debug: func(p ptr.Const, w io.Writer) error {
			if err := writeString(w, "["); err != nil {
				return err
			}
			for i := 0; i < svt.Len(p); i++ {
				if i > 0 {
					if err := writeString(w, " "); err != nil {
						return err
					}
				}
				ip, _ := svt.ItemPtr(p, i)
				if elem.VTable.Debug != nil {
					if err := elem.VTable.Debug(ip, w); err != nil {
						return err
					}
				}
			}
			return writeString(w, "]")
		},
	}
	if elem.VTable.Eq != nil {
		vt.Eq = seqEq(svt.Len, svt.ItemPtr, item)
	}
	if elem.VTable.Hash != nil {
		vt.Hash = seqHash(svt.Len, svt.ItemPtr, item)
	}
	var id ID
	if et != nil {
		id = ID{t: reflect.SliceOf(et), unsized: true}
	}
	s := NewBuilder().
		ID(id).
		Layout(UnsizedLayout()).
		Ty(TySequence).
		TypeParams(TypeParam{Name: "T", Shape: item}).
		VTable(vt).
		Def(&SliceDef{T: item, VTable: svt}).
		Build()
	if et == nil {
		return s
	}
	actual, _ := sliceShapes.LoadOrStore(et, s)
	return actual.(*Shape)
}

func seqEq(n func(ptr.Const) int, at func(ptr.Const, int) (ptr.Const, bool), item func() *Shape) func(a, b ptr.Const) bool {
	return func(a, b ptr.Const) bool {
		la := n(a)
		if la != n(b) {
			return false
		}
		eq := item().VTable.Eq
		if eq == nil {
			return la == 0
		}
		for i := 0; i < la; i++ {
			x, _ := at(a, i)
			y, _ := at(b, i)
			if !eq(x, y) {
				return false
			}
		}
		return true
	}
}

func seqHash(n func(ptr.Const) int, at func(ptr.Const, int) (ptr.Const, bool), item func() *Shape) func(ptr.Const, hash.Hash) {
	return func(p ptr.Const, h hash.Hash) {
		l := n(p)
		hashUint64(h, uint64(l))
		hs := item().VTable.Hash
		if hs == nil {
			return
		}
		for i := 0; i < l; i++ {
			x, _ := at(p, i)
			hs(x, h)
		}
	}
}

func deriveMap(t reflect.Type) *Shape {
	kt, et := t.Key(), t.Elem()
	key, val := lazyShape(kt), lazyShape(et)
	value := func(p unsafe.Pointer) reflect.Value { return reflect.NewAt(t, p).Elem() }
	keyOf := func(p ptr.Const) reflect.Value { return reflect.NewAt(kt, p.Raw()).Elem() }

	mvt := &MapVTable{
		InitInPlaceWithCapacity: func(dst ptr.Uninit, capacity int) ptr.Mut {
			value(dst.Raw()).Set(reflect.MakeMapWithSize(t, capacity))
			return dst.AssumeInit()
		},
		Insert: func(m ptr.Mut, k, v ptr.Mut) {
			mv := value(m.Raw())
			if mv.IsNil() {
				mv.Set(reflect.MakeMap(t))
			}
			kv := reflect.NewAt(kt, k.Raw()).Elem()
			vv := reflect.NewAt(et, v.Raw()).Elem()
			// an existing entry loses its value, and one of the two equal keys
			replaced := mv.MapIndex(kv)
			if replaced.IsValid() && NeedsDrop(et) {
				old := reflect.New(et)
				old.Elem().Set(replaced)
				dropAt(et, old.UnsafePointer())
			}
			mv.SetMapIndex(kv, vv)
			if replaced.IsValid() && NeedsDrop(kt) {
				dropAt(kt, k.Raw())
			}
			kv.SetZero()
			vv.SetZero()
		},
		Len: func(p ptr.Const) int { return value(p.Raw()).Len() },
		ContainsKey: func(m ptr.Const, k ptr.Const) bool {
			return value(m.Raw()).MapIndex(keyOf(k)).IsValid()
		},
		GetValuePtr: func(m ptr.Const, k ptr.Const) (ptr.Const, bool) {
			v := value(m.Raw()).MapIndex(keyOf(k))
			if !v.IsValid() {
				return ptr.Const{}, false
			}
			cp := reflect.New(et)
			cp.Elem().Set(v)
			return ptr.ConstOf(cp.UnsafePointer()), true
		},
		Iter: func(m ptr.Const) iter.Seq2[ptr.Const, ptr.Const] {
			return func(yield func(ptr.Const, ptr.Const) bool) {
				mv := value(m.Raw())
				keys := mv.MapKeys()
				sortKeys(keys)
				for _, k := range keys {
					kp, vp := reflect.New(kt), reflect.New(et)
					kp.Elem().Set(k)
					vp.Elem().Set(mv.MapIndex(k))
					if !yield(ptr.ConstOf(kp.UnsafePointer()), ptr.ConstOf(vp.UnsafePointer())) {
						return
					}
				}
			}
		},
	}

	params := []TypeParam{{Name: "K", Shape: key}, {Name: "V", Shape: val}}
	vt := collectionVTable(t, params)
	if supports(t, capEq) {
		vt.Eq = func(a, b ptr.Const) bool {
			if mvt.Len(a) != mvt.Len(b) {
				return false
			}
			eq := val().VTable.Eq
			for k, va := range mvt.Iter(a) {
				vb, ok := mvt.GetValuePtr(b, k)
				if !ok || eq == nil || !eq(va, vb) {
					return false
				}
			}
			return true
		}
	}
	applyHooks(t, vt)

	return NewBuilder().
		ID(IDFor(t)).
		Layout(LayoutFor(t)).
		TypeIdentifier(t.String()).
		Ty(TyUser).
		TypeParams(params...).
		VTable(vt).
		Def(NewMapDef().Key(key).Value(val).VTable(mvt).Build()).
		Build()
}

// sortKeys orders keys of ordered kinds. Other kinds keep map order.
func sortKeys(keys []reflect.Value) {
	if len(keys) < 2 {
		return
	}
	switch keys[0].Kind() {
	case reflect.String:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) })
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) })
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) })
	case reflect.Float32, reflect.Float64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) })
	case reflect.Bool:
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			switch {
			case a.Bool() == b.Bool():
				return 0
			case !a.Bool():
				return -1
			}
			return 1
		})
	}
}

func deriveOption(t reflect.Type) *Shape {
	elem := t.Elem()
	inner := lazyShape(elem)
	slot := func(p unsafe.Pointer) *unsafe.Pointer { return (*unsafe.Pointer)(p) }

	ovt := &OptionVTable{
		IsSome: func(p ptr.Const) bool { return *slot(p.Raw()) != nil },
		GetValue: func(p ptr.Const) (ptr.Const, bool) {
			q := *slot(p.Raw())
			if q == nil {
				return ptr.Const{}, false
			}
			return ptr.ConstOf(q), true
		},
		InitSome: func(dst ptr.Uninit, v ptr.Mut) ptr.Mut {
			np := reflect.New(elem)
			moveValue(elem, np.UnsafePointer(), v.Raw())
			reflect.NewAt(t, dst.Raw()).Elem().Set(np)
			return dst.AssumeInit()
		},
		InitNone: func(dst ptr.Uninit) ptr.Mut {
			reflect.NewAt(t, dst.Raw()).Elem().SetZero()
			return dst.AssumeInit()
		},
	}

	params := []TypeParam{{Name: "T", Shape: inner}}
	vt := collectionVTable(t, params)
	vt.Debug = func(p ptr.Const, w io.Writer) error {
		v, ok := ovt.GetValue(p)
		if !ok {
			return writeString(w, "None")
		}
		if err := writeString(w, "Some("); err != nil {
			return err
		}
		if d := inner().VTable.Debug; d != nil {
			if err := d(v, w); err != nil {
				return err
			}
		}
		return writeString(w, ")")
	}
	if supports(t, capEq) {
		vt.Eq = func(a, b ptr.Const) bool {
			va, oka := ovt.GetValue(a)
			vb, okb := ovt.GetValue(b)
			if !oka || !okb {
				return oka == okb
			}
			eq := inner().VTable.Eq
			return eq != nil && eq(va, vb)
		}
		vt.PartialOrd = func(a, b ptr.Const) (int, bool) {
			va, oka := ovt.GetValue(a)
			vb, okb := ovt.GetValue(b)
			switch {
			case !oka && !okb:
				return 0, true
			case !oka:
				return -1, true
			case !okb:
				return 1, true
			}
			if po := inner().VTable.PartialOrd; po != nil {
				return po(va, vb)
			}
			return 0, false
		}
	}
	if supports(t, capHash) {
		vt.Hash = func(p ptr.Const, h hash.Hash) {
			v, ok := ovt.GetValue(p)
			if !ok {
				hashUint64(h, 0)
				return
			}
			hashUint64(h, 1)
			if hs := inner().VTable.Hash; hs != nil {
				hs(v, h)
			}
		}
	}
	applyHooks(t, vt)

	return NewBuilder().
		ID(IDFor(t)).
		Layout(LayoutFor(t)).
		TypeIdentifier(t.String()).
		Ty(TyPointer).
		TypeParams(params...).
		VTable(vt).
		Def(&OptionDef{T: inner, VTable: ovt}).
		Build()
}
