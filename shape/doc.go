// Package shape describes Go types at runtime.
//
// A Shape pairs a type's identity and layout with a Def (what kind of value it is:
// struct, enum, list, map, option, smart pointer, scalar) and a ValueVTable of
// type-erased operations. Shapes are derived from reflection on first use with Of or
// OfType and cached for the life of the process. Types can take over their own shape
// by implementing Provider, or extend the derived one through Dropper, Validator,
// fmt.Stringer and encoding.TextUnmarshaler.
//
// Struct fields are listed when exported. The `facet` tag renames, skips and annotates
// them. Type-level options go on a blank field:
//
//	type Config struct {
//		_       struct{} `facet:",rename_all=snake_case,deny_unknown_fields"`
//		Listen  string
//		Timeout time.Duration `facet:",default"`
//		Token   string        `facet:",sensitive"`
//	}
//
// A struct tagged `oneof` whose fields are pointers is an enum with one variant per field.
// Integer enums are declared with RegisterEnum.
package shape
