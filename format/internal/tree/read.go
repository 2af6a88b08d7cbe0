package tree

import (
	"iter"
	"strconv"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/peek"
	"github.com/wippyai/go-facet/shape"
)

// FromPeek converts the value behind p into a Node.
//
// Structs become maps of their serialized fields, tuples become sequences, and
// transparent wrappers become their inner value. An enum variant without fields is
// its name; any other variant is a single-entry map from its name to its payload.
func FromPeek(p peek.Peek) (*Node, error) {
	return fromPeek(p, nil)
}

func fromPeek(p peek.Peek, path []string) (*Node, error) {
	s := p.Shape()
	switch s.Def.(type) {
	case *shape.ScalarDef:
		return scalar(p, path)

	case *shape.StructDef:
		st, _ := p.Struct()
		if s.IsTransparent() {
			f, _ := st.Field(0)
			return fromPeek(f, path)
		}
		return structNode(st, path)

	case *shape.EnumDef:
		e, _ := p.Enum()
		v, err := e.Variant()
		if err != nil {
			return nil, withPath(err, path)
		}
		payload, _ := e.Payload()
		if len(v.Data.Fields) == 0 {
			return StringNode(v.SerializedName()), nil
		}
		var inner *Node
		if v.Data.Kind == shape.StructKindTupleStruct && len(v.Data.Fields) == 1 {
			f, _ := payload.Field(0)
			inner, err = fromPeek(f, append(path, v.Name))
		} else {
			inner, err = structNode(payload, append(path, v.Name))
		}
		if err != nil {
			return nil, err
		}
		out := MapNode()
		out.Set(v.SerializedName(), inner)
		return out, nil

	case *shape.ListDef:
		l, _ := p.List()
		return seq(l.Items(), path)
	case *shape.ArrayDef:
		a, _ := p.Array()
		return seq(a.Items(), path)
	case *shape.SliceDef:
		sl, _ := p.Slice()
		return seq(sl.Items(), path)

	case *shape.MapDef:
		m, _ := p.Map()
		out := MapNode()
		for k, v := range m.Entries() {
			kn, err := fromPeek(k, path)
			if err != nil {
				return nil, err
			}
			vn, err := fromPeek(v, append(path, kn.KeyText()))
			if err != nil {
				return nil, err
			}
			out.Entries = append(out.Entries, Entry{Key: kn, Value: vn})
		}
		return out, nil

	case *shape.OptionDef:
		o, _ := p.Option()
		v, ok := o.Value()
		if !ok {
			return NullNode(), nil
		}
		return fromPeek(v, path)

	case *shape.SmartPointerDef:
		sp, _ := p.SmartPointer()
		v, release, err := sp.Read()
		if err != nil {
			return nil, withPath(err, path)
		}
		defer release()
		return fromPeek(v, path)
	}
	return nil, errors.New(errors.PhaseSerialize, errors.KindUnsupported).
		Path(path...).
		Shape(s.String()).
		Detail("no serialized form").
		Build()
}

func structNode(st peek.Struct, path []string) (*Node, error) {
	def := st.Def()
	switch def.Kind {
	case shape.StructKindTuple, shape.StructKindTupleStruct:
		out := SeqNode()
		for f, v := range st.Fields() {
			n, err := fromPeek(v, append(path, f.Name))
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, n)
		}
		return out, nil
	}
	out := MapNode()
	for f, v := range st.FieldsForSerialize() {
		n, err := fromPeek(v, append(path, f.Name))
		if err != nil {
			return nil, err
		}
		out.Set(f.SerializedName(), n)
	}
	return out, nil
}

func seq(items iter.Seq2[int, peek.Peek], path []string) (*Node, error) {
	out := SeqNode()
	for i, v := range items {
		n, err := fromPeek(v, append(path, "["+strconv.Itoa(i)+"]"))
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, n)
	}
	return out, nil
}

func scalar(p peek.Peek, path []string) (*Node, error) {
	sc, _ := p.Scalar()
	v, err := sc.Value()
	if err != nil {
		return nil, withPath(err, path)
	}
	switch x := v.(type) {
	case bool:
		return BoolNode(x), nil
	case int64:
		return IntNode(x), nil
	case uint64:
		return UintNode(x), nil
	case float64:
		return FloatNode(x), nil
	case []byte:
		return BytesNode(x), nil
	case string:
		return StringNode(x), nil
	}
	return nil, errors.Unsupported(errors.PhaseSerialize, p.Shape().String(), "scalar value")
}

func withPath(err error, path []string) error {
	var e *errors.Error
	if errors.As(err, &e) && len(e.Path) == 0 && len(path) > 0 {
		return e.WithPath(path...)
	}
	return err
}
