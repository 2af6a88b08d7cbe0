package poke

import (
	"go.uber.org/zap"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// FillMissing initializes every field of def not yet in set and marks it set.
// A field is filled from its own Default, from its shape's DefaultInPlace when the field
// or the owning shape carries the default attribute, or as none when it is an option.
// The first field that qualifies for none of these is reported as missing; fields filled
// before it stay filled.
func FillMissing(owner *shape.Shape, def *shape.StructDef, data ptr.Uninit, set *ISet, path []string) error {
	for i := range def.Fields {
		if set.Has(i) {
			continue
		}
		f := &def.Fields[i]
		slot := data.Field(f.Offset)
		if f.Default != nil {
			f.Default(slot)
			set.Set(i)
			continue
		}
		fs := f.Shape()
		if f.Flags.Has(shape.FieldDefault) || owner.HasDefaultAttr() {
			if fs.VTable.DefaultInPlace == nil {
				return errors.Unsupported(errors.PhaseBuild, fs.String(), "field "+f.Name+" has no default")
			}
			fs.VTable.DefaultInPlace(slot)
			set.Set(i)
			continue
		}
		if od, ok := fs.Def.(*shape.OptionDef); ok {
			od.VTable.InitNone(slot)
			set.Set(i)
			continue
		}
		return errors.FieldMissing(errors.PhaseBuild, path, f.Name)
	}
	return nil
}

// DropInitialized drops the fields of def recorded in set, in declaration order, and
// clears set. Fields never initialized are not touched.
func DropInitialized(def *shape.StructDef, data ptr.Uninit, set *ISet) {
	for _, i := range set.Indices() {
		if i >= len(def.Fields) {
			break
		}
		f := &def.Fields[i]
		if shape.DropInPlace(f.Shape(), data.Field(f.Offset).AssumeInit()) {
			Logger().Debug("dropped field", zap.String("field", f.Name))
		}
	}
	set.Clear()
}

func firstMissing(def *shape.StructDef, set *ISet) int {
	for i := range def.Fields {
		if !set.Has(i) {
			return i
		}
	}
	return -1
}
