package tree

import (
	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/shape"
	"github.com/wippyai/go-facet/wip"
)

// WriteOptions tune how nodes are written into values.
type WriteOptions struct {
	// DenyUnknownFields rejects map keys that name no field. Shapes with the
	// deny_unknown_fields attribute reject them regardless.
	DenyUnknownFields bool

	// BytesFromString decodes a string node written into a bytes slot, for formats
	// that have no bytes type.
	BytesFromString func(string) ([]byte, error)
}

// Decode builds a value of shape s from n.
func Decode(s *shape.Shape, n *Node, opts WriteOptions) (*wip.HeapValue, error) {
	w, err := wip.AllocShape(s)
	if err != nil {
		return nil, err
	}
	if err := Into(w, n, opts); err != nil {
		w.Release()
		return nil, err
	}
	hv, err := w.Build()
	if err != nil {
		w.Release()
		return nil, err
	}
	return hv, nil
}

// Into fills the current frame of w from n. It leaves the frame open.
func Into(w *wip.Wip, n *Node, opts WriteOptions) error {
	s := w.Shape()
	switch def := s.Def.(type) {
	case *shape.OptionDef:
		if n.Kind == Null {
			return w.PutNone()
		}
		return nested(w, w.PushSome, n, opts)

	case *shape.SmartPointerDef:
		return nested(w, w.PushPointee, n, opts)

	case *shape.StructDef:
		if s.IsTransparent() {
			return nested(w, func() error { return w.Field(0) }, n, opts)
		}
		return intoStruct(w, s, def, n, opts)

	case *shape.EnumDef:
		return intoEnum(w, s, n, opts)

	case *shape.ListDef:
		if n.Kind == Null {
			return w.PutDefault()
		}
		if n.Kind != Seq {
			return mismatch(w, "sequence", n)
		}
		if err := w.BeginPushback(); err != nil {
			return err
		}
		for _, item := range n.Items {
			if err := nested(w, w.Push, item, opts); err != nil {
				return err
			}
		}
		return nil

	case *shape.MapDef:
		if n.Kind == Null {
			return w.PutDefault()
		}
		if n.Kind != Map {
			return mismatch(w, "map", n)
		}
		if err := w.BeginMap(); err != nil {
			return err
		}
		for _, e := range n.Entries {
			if err := nested(w, w.PushMapKey, e.Key, opts); err != nil {
				return err
			}
			if err := nested(w, w.PushMapValue, e.Value, opts); err != nil {
				return err
			}
		}
		return nil

	case *shape.ScalarDef:
		return intoScalar(w, def, n, opts)
	}
	return errors.New(errors.PhaseDeserialize, errors.KindUnsupported).
		Path(w.Path()).
		Shape(s.String()).
		Detail("cannot be deserialized").
		Build()
}

// nested opens a frame with open, fills it from n and pops it.
func nested(w *wip.Wip, open func() error, n *Node, opts WriteOptions) error {
	if err := open(); err != nil {
		return err
	}
	if err := Into(w, n, opts); err != nil {
		return err
	}
	return w.Pop()
}

func intoStruct(w *wip.Wip, s *shape.Shape, def *shape.StructDef, n *Node, opts WriteOptions) error {
	switch def.Kind {
	case shape.StructKindUnit:
		return nil
	case shape.StructKindTuple, shape.StructKindTupleStruct:
		if n.Kind != Seq {
			return mismatch(w, "sequence", n)
		}
		if len(n.Items) > len(def.Fields) {
			return errors.OutOfBounds(errors.PhaseDeserialize, []string{w.Path()}, len(n.Items)-1, len(def.Fields))
		}
		for i, item := range n.Items {
			if err := nested(w, func() error { return w.Field(i) }, item, opts); err != nil {
				return err
			}
		}
		return nil
	}
	if n.Kind != Map {
		return mismatch(w, "map", n)
	}
	deny := opts.DenyUnknownFields || s.DenyUnknownFields()
	for _, e := range n.Entries {
		name := e.Key.KeyText()
		i, ok := w.FieldIndex(name)
		if !ok {
			if deny {
				return errors.FieldUnknown(errors.PhaseDeserialize, []string{w.Path()}, s.String(), name)
			}
			continue
		}
		if err := nested(w, func() error { return w.Field(i) }, e.Value, opts); err != nil {
			return err
		}
	}
	return nil
}

func intoEnum(w *wip.Wip, s *shape.Shape, n *Node, opts WriteOptions) error {
	switch n.Kind {
	case String:
		return w.VariantNamed(n.Str)
	case Int:
		return wip.Put(w, n.Int)
	case Uint:
		return wip.Put(w, n.Uint)
	case Map:
		if len(n.Entries) != 1 {
			return errors.InvalidData(errors.PhaseDeserialize, []string{w.Path()}, "enum must be a single-entry map")
		}
		e := n.Entries[0]
		if err := w.VariantNamed(e.Key.KeyText()); err != nil {
			return err
		}
		ed := s.Def.(*shape.EnumDef)
		i, _ := w.SelectedVariant()
		data := ed.Variants[i].Data
		if data.Kind == shape.StructKindTupleStruct && len(data.Fields) == 1 {
			return nested(w, func() error { return w.Field(0) }, e.Value, opts)
		}
		return intoStruct(w, s, data, e.Value, opts)
	}
	return mismatch(w, "string or map", n)
}

func intoScalar(w *wip.Wip, def *shape.ScalarDef, n *Node, opts WriteOptions) error {
	switch n.Kind {
	case Null:
		if def.Affinity == shape.AffinityBytes {
			return w.PutDefault()
		}
	case Bool:
		return wip.Put(w, n.Bool)
	case Int:
		return wip.Put(w, n.Int)
	case Uint:
		return wip.Put(w, n.Uint)
	case Float:
		return wip.Put(w, n.Float)
	case Bytes:
		return wip.Put(w, n.Bytes)
	case String:
		switch def.Affinity {
		case shape.AffinityString:
			return wip.Put(w, n.Str)
		case shape.AffinityBytes:
			if opts.BytesFromString != nil {
				b, err := opts.BytesFromString(n.Str)
				if err != nil {
					return errors.Wrap(errors.PhaseDeserialize, errors.KindInvalidData, err, w.Path())
				}
				return wip.Put(w, b)
			}
		}
		return w.Parse(n.Str)
	}
	return mismatch(w, def.Affinity.String(), n)
}

func mismatch(w *wip.Wip, want string, n *Node) error {
	return errors.New(errors.PhaseDeserialize, errors.KindTypeMismatch).
		Path(w.Path()).
		Shape(w.Shape().String()).
		Expected(want).
		Actual(n.Kind.String()).
		Build()
}
