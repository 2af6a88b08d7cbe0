package shape

import (
	"fmt"
	"reflect"
	"strings"
)

const tagKey = "facet"

type fieldTag struct {
	skip       bool
	name       string
	sensitive  bool
	def        bool
	skipSer    bool
	skipIf     string
	positional bool
	extra      []string
}

func parseFieldTag(tag string) fieldTag {
	var ft fieldTag
	if tag == "-" {
		ft.skip = true
		return ft
	}
	parts := strings.Split(tag, ",")
	ft.name = strings.TrimSpace(parts[0])
	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		key, val, _ := strings.Cut(opt, "=")
		switch key {
		case "":
		case "skip", "-":
			ft.skip = true
		case "rename":
			ft.name = val
		case "sensitive":
			ft.sensitive = true
		case "default":
			ft.def = true
		case "skip_serializing":
			ft.skipSer = true
		case "skip_serializing_if", "omitempty":
			if val == "" {
				val = "empty"
			}
			ft.skipIf = val
		case "positional":
			ft.positional = true
		default:
			ft.extra = append(ft.extra, opt)
		}
	}
	return ft
}

type typeTag struct {
	transparent bool
	denyUnknown bool
	def         bool
	oneof       bool
	renameAll   RenameRule
	extra       []string
}

// parseTypeTag reads type-level options from the tag on a blank field.
func parseTypeTag(t reflect.Type) typeTag {
	var tt typeTag
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Name != "_" {
			continue
		}
		tag, ok := f.Tag.Lookup(tagKey)
		if !ok {
			continue
		}
		for _, opt := range strings.Split(tag, ",") {
			opt = strings.TrimSpace(opt)
			key, val, _ := strings.Cut(opt, "=")
			switch key {
			case "":
			case "transparent":
				tt.transparent = true
			case "deny_unknown_fields":
				tt.denyUnknown = true
			case "default":
				tt.def = true
			case "oneof":
				tt.oneof = true
			case "rename_all":
				r := RenameRule(val)
				if !r.Valid() {
					panic(fmt.Sprintf("shape: %s: unknown rename_all rule %q", t, val))
				}
				tt.renameAll = r
			default:
				tt.extra = append(tt.extra, opt)
			}
		}
	}
	return tt
}

func (tt typeTag) attributes() []Attribute {
	var attrs []Attribute
	if tt.denyUnknown {
		attrs = append(attrs, Attribute{Kind: AttrDenyUnknownFields})
	}
	if tt.def {
		attrs = append(attrs, Attribute{Kind: AttrDefault})
	}
	if tt.transparent {
		attrs = append(attrs, Attribute{Kind: AttrTransparent})
	}
	if tt.renameAll != RenameNone {
		attrs = append(attrs, Attribute{Kind: AttrRenameAll, Value: string(tt.renameAll)})
	}
	for _, e := range tt.extra {
		attrs = append(attrs, Attribute{Kind: AttrArbitrary, Value: e})
	}
	return attrs
}

// visibleFields returns the exported fields a struct lists, in declaration order.
func visibleFields(t reflect.Type) []reflect.StructField {
	var out []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Name == "_" {
			continue
		}
		if parseFieldTag(f.Tag.Get(tagKey)).skip {
			continue
		}
		out = append(out, f)
	}
	return out
}
