package witabi

import (
	"sync"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/shape"
)

var typeCache sync.Map // *shape.Shape -> wit.Type

// TypeOf returns the component model type a value of shape s lowers to.
//
//	bool, integers, floats      bool, u8..u64, s8..s64, f32, f64
//	string, time.Time           string
//	time.Duration               s64 nanoseconds
//	[]byte, slices              list
//	map[K]V                     list<tuple<K, V>>
//	struct                      record with kebab-case field names
//	tuple structs               tuple
//	enums                       enum when no variant has fields, variant otherwise
//	pointers                    option
//	transparent wrappers, boxes the inner type
//
// Recursive shapes have no canonical layout and are rejected.
func TypeOf(s *shape.Shape) (wit.Type, error) {
	if t, ok := typeCache.Load(s); ok {
		return t.(wit.Type), nil
	}
	t, err := (&mapper{visiting: map[*shape.Shape]bool{}}).typeOf(s)
	if err != nil {
		return nil, err
	}
	typeCache.Store(s, t)
	return t, nil
}

type mapper struct {
	visiting map[*shape.Shape]bool
}

func (m *mapper) typeOf(s *shape.Shape) (wit.Type, error) {
	if m.visiting[s] {
		return nil, errors.Unsupported(errors.PhaseLower, s.String(), "recursive shape has no canonical layout")
	}
	m.visiting[s] = true
	defer delete(m.visiting, s)

	switch def := s.Def.(type) {
	case *shape.ScalarDef:
		return scalarType(s, def)

	case *shape.StructDef:
		if s.IsTransparent() {
			return m.typeOf(def.Fields[0].Shape())
		}
		return m.structType(def)

	case *shape.EnumDef:
		return m.enumType(def)

	case *shape.ListDef:
		elem, err := m.typeOf(def.T())
		if err != nil {
			return nil, err
		}
		return listOf(elem), nil

	case *shape.SliceDef:
		elem, err := m.typeOf(def.T())
		if err != nil {
			return nil, err
		}
		return listOf(elem), nil

	case *shape.MapDef:
		k, err := m.typeOf(def.K())
		if err != nil {
			return nil, err
		}
		v, err := m.typeOf(def.V())
		if err != nil {
			return nil, err
		}
		return listOf(&wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{k, v}}}), nil

	case *shape.OptionDef:
		inner, err := m.typeOf(def.T())
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.Option{Type: inner}}, nil

	case *shape.SmartPointerDef:
		if def.Pointee == nil {
			break
		}
		return m.typeOf(def.Pointee())
	}
	return nil, errors.Unsupported(errors.PhaseLower, s.String(), "no component model type")
}

func scalarType(s *shape.Shape, def *shape.ScalarDef) (wit.Type, error) {
	switch def.Affinity {
	case shape.AffinityBool:
		return wit.Bool{}, nil
	case shape.AffinityString, shape.AffinityTime:
		return wit.String{}, nil
	case shape.AffinityBytes:
		return listOf(wit.U8{}), nil
	case shape.AffinityDuration:
		return wit.S64{}, nil
	case shape.AffinityNumber:
		n := def.Number
		switch {
		case n.Float && n.Bits == 32:
			return wit.F32{}, nil
		case n.Float:
			return wit.F64{}, nil
		case n.Signed:
			switch n.Bits {
			case 8:
				return wit.S8{}, nil
			case 16:
				return wit.S16{}, nil
			case 32:
				return wit.S32{}, nil
			}
			return wit.S64{}, nil
		}
		switch n.Bits {
		case 8:
			return wit.U8{}, nil
		case 16:
			return wit.U16{}, nil
		case 32:
			return wit.U32{}, nil
		}
		return wit.U64{}, nil
	}
	return nil, errors.Unsupported(errors.PhaseLower, s.String(), "opaque scalar has no component model type")
}

func (m *mapper) structType(def *shape.StructDef) (wit.Type, error) {
	switch def.Kind {
	case shape.StructKindTuple, shape.StructKindTupleStruct, shape.StructKindUnit:
		types := make([]wit.Type, len(def.Fields))
		for i := range def.Fields {
			t, err := m.typeOf(def.Fields[i].Shape())
			if err != nil {
				return nil, err
			}
			types[i] = t
		}
		return &wit.TypeDef{Kind: &wit.Tuple{Types: types}}, nil
	}
	fields := make([]wit.Field, len(def.Fields))
	for i := range def.Fields {
		f := &def.Fields[i]
		t, err := m.typeOf(f.Shape())
		if err != nil {
			return nil, err
		}
		fields[i] = wit.Field{Name: witName(f.Name), Type: t}
	}
	return &wit.TypeDef{Kind: &wit.Record{Fields: fields}}, nil
}

func (m *mapper) enumType(def *shape.EnumDef) (wit.Type, error) {
	unit := true
	for i := range def.Variants {
		if len(def.Variants[i].Data.Fields) > 0 {
			unit = false
			break
		}
	}
	if unit {
		cases := make([]wit.EnumCase, len(def.Variants))
		for i := range def.Variants {
			cases[i] = wit.EnumCase{Name: witName(def.Variants[i].Name)}
		}
		return &wit.TypeDef{Kind: &wit.Enum{Cases: cases}}, nil
	}

	cases := make([]wit.Case, len(def.Variants))
	for i := range def.Variants {
		v := &def.Variants[i]
		cases[i] = wit.Case{Name: witName(v.Name)}
		switch {
		case len(v.Data.Fields) == 0:
		case singleField(v.Data):
			t, err := m.typeOf(v.Data.Fields[0].Shape())
			if err != nil {
				return nil, err
			}
			cases[i].Type = t
		default:
			t, err := m.structType(v.Data)
			if err != nil {
				return nil, err
			}
			cases[i].Type = t
		}
	}
	return &wit.TypeDef{Kind: &wit.Variant{Cases: cases}}, nil
}

// singleField reports a payload carried as its only positional field.
func singleField(sd *shape.StructDef) bool {
	return sd.Kind == shape.StructKindTupleStruct && len(sd.Fields) == 1
}

func listOf(elem wit.Type) wit.Type {
	return &wit.TypeDef{Kind: &wit.List{Type: elem}}
}

func witName(goName string) string {
	return shape.RenameKebabCase.Apply(goName)
}
