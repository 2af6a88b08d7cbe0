package shape

import (
	"fmt"
	"io"
	"reflect"
	"unsafe"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
)

func deriveStruct(t reflect.Type) *Shape {
	tt := parseTypeTag(t)
	if tt.oneof {
		return deriveOneOf(t, tt)
	}

	sd := structDefFor(t, tt.renameAll)
	vt := &ValueVTable{
		TypeName:       typeNameFunc(t, nil),
		DropInPlace:    dropGlue(t),
		Debug:          reflectDebug(t),
		DefaultInPlace: zeroDefault(t),
	}
	if supports(t, capClone) {
		vt.CloneInto = cloneGlue(t)
	}
	if supports(t, capEq) {
		vt.Eq = structEq(sd)
		if t.Comparable() {
			vt.Marker |= MarkerComparable
		}
	}
	if supports(t, capHash) {
		vt.Hash = structHash(sd)
	}
	if isPlainData(t) {
		vt.Marker |= MarkerCopy
	}
	applyHooks(t, vt)

	b := NewBuilder().
		ID(IDFor(t)).
		Layout(LayoutFor(t)).
		TypeIdentifier(t.String()).
		Ty(TyUser).
		Def(sd).
		Attributes(tt.attributes()...)

	if tt.transparent {
		if len(sd.Fields) != 1 {
			panic(fmt.Sprintf("shape: transparent struct %s must list exactly one field, has %d", t, len(sd.Fields)))
		}
		f := sd.Fields[0]
		b.Inner(f.Shape)
		wireTransparent(t, f, vt)
	}
	return b.VTable(vt).Build()
}

func structDefFor(t reflect.Type, renameAll RenameRule) *StructDef {
	fields := visibleFields(t)
	kind := StructKindStruct
	if len(fields) == 0 {
		kind = StructKindUnit
	}
	b := NewStructDef(kind)
	for _, sf := range fields {
		b.Field(fieldFor(sf, renameAll))
	}
	return b.Build()
}

func fieldFor(sf reflect.StructField, renameAll RenameRule) Field {
	tag := parseFieldTag(sf.Tag.Get(tagKey))
	fb := NewField(sf.Name, sf.Offset, lazyShape(sf.Type))

	name := tag.name
	if name == "" {
		name = renameAll.Apply(sf.Name)
	}
	if name != sf.Name {
		fb.Rename(name)
	}

	var flags FieldFlags
	if tag.sensitive {
		flags |= FieldSensitive
	}
	if tag.skipSer {
		flags |= FieldSkipSerializing
	}
	if tag.positional {
		flags |= FieldPositional
	}
	if tag.def {
		flags |= FieldDefault
	}
	fb.Flags(flags)

	if tag.skipIf != "" {
		fb.SkipSerializingIf(skipPredicate(sf.Type, tag.skipIf))
	}
	if doc, ok := sf.Tag.Lookup("doc"); ok {
		fb.Doc(doc)
	}
	return fb.Attributes(tag.extra...).Build()
}

func skipPredicate(t reflect.Type, kind string) func(ptr.Const) bool {
	switch kind {
	case "zero":
		return func(p ptr.Const) bool { return reflect.NewAt(t, p.Raw()).Elem().IsZero() }
	case "empty":
		return func(p ptr.Const) bool {
			v := reflect.NewAt(t, p.Raw()).Elem()
			switch t.Kind() {
			case reflect.Slice, reflect.Map, reflect.String, reflect.Array:
				return v.Len() == 0
			}
			return v.IsZero()
		}
	case "nil":
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
			return func(p ptr.Const) bool { return reflect.NewAt(t, p.Raw()).Elem().IsNil() }
		}
		return func(ptr.Const) bool { return false }
	}
	panic(fmt.Sprintf("shape: unknown skip_serializing_if predicate %q", kind))
}

// wireTransparent lets a single-field wrapper convert to and from its field.
func wireTransparent(t reflect.Type, f Field, vt *ValueVTable) {
	off := f.Offset
	vt.TryFrom = func(src ptr.Const, ss *Shape, dst ptr.Uninit) (ptr.Mut, error) {
		inner := f.Shape()
		reflect.NewAt(t, dst.Raw()).Elem().SetZero()
		fd := dst.Field(off)
		switch {
		case ss.Is(inner) && inner.VTable.CloneInto != nil:
			inner.VTable.CloneInto(src, fd)
		case ss.Is(inner):
			typedCopy(inner.ID.Type(), fd.Raw(), src.Raw())
		case inner.VTable.TryFrom != nil:
			if _, err := inner.VTable.TryFrom(src, ss, fd); err != nil {
				return ptr.Mut{}, err
			}
		default:
			return ptr.Mut{}, errors.UnsupportedSource(ss.String(), inner.String())
		}
		return dst.AssumeInit(), nil
	}
	vt.TryIntoInner = func(src ptr.Mut, dst ptr.Uninit) (ptr.Mut, error) {
		inner := f.Shape()
		moveValue(inner.ID.Type(), dst.Raw(), src.Field(off).Raw())
		return dst.AssumeInit(), nil
	}
	vt.TryBorrowInner = func(src ptr.Const) (ptr.Const, error) {
		return src.Field(off), nil
	}
	if vt.Display == nil {
		vt.Display = func(p ptr.Const, w io.Writer) error {
			inner := f.Shape()
			if inner.VTable.Display == nil {
				return errors.Unavailable(errors.PhasePeek, inner.String(), "display")
			}
			return inner.VTable.Display(p.Field(off), w)
		}
	}
	if vt.Parse == nil {
		vt.Parse = func(s string, dst ptr.Uninit) (ptr.Mut, error) {
			inner := f.Shape()
			if inner.VTable.Parse == nil {
				return ptr.Mut{}, errors.Unavailable(errors.PhaseParse, inner.String(), "parse")
			}
			reflect.NewAt(t, dst.Raw()).Elem().SetZero()
			if _, err := inner.VTable.Parse(s, dst.Field(off)); err != nil {
				return ptr.Mut{}, err
			}
			return dst.AssumeInit(), nil
		}
	}
}

type oneofSlot struct {
	offset  uintptr
	payload reflect.Type
}

// deriveOneOf builds an enum from a struct whose listed fields are pointers, one per variant.
func deriveOneOf(t reflect.Type, tt typeTag) *Shape {
	fields := visibleFields(t)
	if len(fields) == 0 {
		panic(fmt.Sprintf("shape: oneof %s has no variants", t))
	}
	slots := make([]oneofSlot, len(fields))
	eb := NewEnumDef(ReprOneOf)
	for i, sf := range fields {
		if sf.Type.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("shape: oneof %s: variant %s must be a pointer, is %s", t, sf.Name, sf.Type))
		}
		pt := sf.Type.Elem()
		slots[i] = oneofSlot{offset: sf.Offset, payload: pt}

		tag := parseFieldTag(sf.Tag.Get(tagKey))
		vb := NewVariant(sf.Name, int64(i)).Data(variantData(pt))
		name := tag.name
		if name == "" {
			name = tt.renameAll.Apply(sf.Name)
		}
		if name != sf.Name {
			vb.Rename(name)
		}
		if doc, ok := sf.Tag.Lookup("doc"); ok {
			vb.Doc(doc)
		}
		eb.Variant(vb.Build())
	}

	slotPtr := func(p unsafe.Pointer, i int) *unsafe.Pointer {
		return (*unsafe.Pointer)(unsafe.Add(p, slots[i].offset))
	}
	eb.VTable(&EnumVTable{
		VariantIndex: func(p ptr.Const) (int, bool) {
			for i := range slots {
				if *slotPtr(p.Raw(), i) != nil {
					return i, true
				}
			}
			return -1, false
		},
		SelectVariant: func(dst ptr.Uninit, i int) ptr.Uninit {
			reflect.NewAt(t, dst.Raw()).Elem().SetZero()
			payload := reflect.New(slots[i].payload)
			reflect.NewAt(reflect.PointerTo(slots[i].payload), unsafe.Pointer(slotPtr(dst.Raw(), i))).Elem().Set(payload)
			return ptr.UninitOf(payload.UnsafePointer())
		},
		Payload: func(p ptr.Const, i int) ptr.Const {
			return ptr.ConstOf(*slotPtr(p.Raw(), i))
		},
	})
	ed := eb.Build()

	vt := &ValueVTable{
		TypeName:    typeNameFunc(t, nil),
		DropInPlace: dropGlue(t),
		Debug:       oneofDebug(t, ed),
	}
	if supports(t, capClone) {
		vt.CloneInto = cloneGlue(t)
	}
	if supports(t, capEq) {
		vt.Eq = enumEq(ed)
	}
	if supports(t, capHash) {
		vt.Hash = enumHash(ed)
	}
	applyHooks(t, vt)

	return NewBuilder().
		ID(IDFor(t)).
		Layout(LayoutFor(t)).
		TypeIdentifier(t.String()).
		Ty(TyUser).
		Def(ed).
		VTable(vt).
		Attributes(tt.attributes()...).
		Build()
}

// variantData describes a oneof payload. Struct payloads list their fields, anything else is
// a single positional field.
func variantData(pt reflect.Type) *StructDef {
	if pt.Kind() == reflect.Struct && !isProvider(pt) {
		if !isTextScalar(pt) {
			return structDefFor(pt, parseTypeTag(pt).renameAll)
		}
	}
	return NewStructDef(StructKindTupleStruct).
		Field(NewField("0", 0, lazyShape(pt)).Build()).
		Build()
}

func isTextScalar(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return pt.Implements(textMarshalerType) && pt.Implements(textUnmarshalerType)
}

func oneofDebug(t reflect.Type, ed *EnumDef) func(ptr.Const, io.Writer) error {
	return func(p ptr.Const, w io.Writer) error {
		i, ok := ed.VTable.VariantIndex(p)
		if !ok {
			return writeString(w, t.Name()+"(<none>)")
		}
		f, _ := t.FieldByName(ed.Variants[i].Name)
		payload := reflect.NewAt(f.Type.Elem(), ed.VTable.Payload(p, i).Raw()).Elem()
		_, err := fmt.Fprintf(w, "%s(%+v)", ed.Variants[i].Name, payload.Interface())
		return err
	}
}
