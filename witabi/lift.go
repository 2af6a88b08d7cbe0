package witabi

import (
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/shape"
	"github.com/wippyai/go-facet/wip"
)

// Lifter reads canonical ABI values out of guest memory into new values.
type Lifter struct {
	mem  Memory
	opts Options
	calc *Calculator
}

func NewLifter(mem Memory, opts Options) *Lifter {
	return &Lifter{mem: mem, opts: opts.withDefaults(), calc: NewCalculator()}
}

// LiftShape builds a value of shape s from the canonical layout at addr.
func (l *Lifter) LiftShape(s *shape.Shape, addr uint32) (*wip.HeapValue, error) {
	t, err := TypeOf(s)
	if err != nil {
		return nil, err
	}
	w, err := wip.AllocShape(s)
	if err != nil {
		return nil, err
	}
	if err := l.Lift(w, t, addr); err != nil {
		w.Release()
		return nil, err
	}
	hv, err := w.Build()
	if err != nil {
		w.Release()
		return nil, err
	}
	Logger().Debug("lifted value", zap.Stringer("shape", s), zap.Uint32("addr", addr))
	return hv, nil
}

// LiftValue lifts a T from addr.
func LiftValue[T any](l *Lifter, addr uint32) (T, error) {
	hv, err := l.LiftShape(shape.Of[T](), addr)
	if err != nil {
		var zero T
		return zero, err
	}
	return wip.Materialize[T](hv)
}

// Lift fills the current frame of w from the value of type t at addr. It leaves the frame open.
func (l *Lifter) Lift(w *wip.Wip, t wit.Type, addr uint32) error {
	s := w.Shape()
	switch def := s.Def.(type) {
	case *shape.ScalarDef:
		return l.scalar(w, def, t, addr)

	case *shape.StructDef:
		if s.IsTransparent() {
			return l.nested(w, func() error { return w.Field(0) }, t, addr)
		}
		return l.members(w, t, addr)

	case *shape.EnumDef:
		return l.enum(w, def, t, addr)

	case *shape.ListDef:
		return l.list(w, t, addr)

	case *shape.MapDef:
		return l.entries(w, t, addr)

	case *shape.OptionDef:
		disc, err := l.mem.ReadU8(addr)
		if err != nil {
			return l.memErr(w, err)
		}
		switch disc {
		case 0:
			return w.PutNone()
		case 1:
			at := addr + l.calc.Calculate(t).PayloadOffset
			return l.nested(w, w.PushSome, optionType(t), at)
		}
		return errors.InvalidData(errors.PhaseLift, []string{w.Path()}, "option discriminant "+strconv.Itoa(int(disc)))

	case *shape.SmartPointerDef:
		return l.nested(w, w.PushPointee, t, addr)
	}
	return errors.New(errors.PhaseLift, errors.KindUnsupported).
		Path(w.Path()).
		Shape(s.String()).
		Detail("cannot be lifted").
		Build()
}

// nested opens a frame with open, lifts into it and pops it.
func (l *Lifter) nested(w *wip.Wip, open func() error, t wit.Type, addr uint32) error {
	if err := open(); err != nil {
		return err
	}
	if err := l.Lift(w, t, addr); err != nil {
		return err
	}
	return w.Pop()
}

func (l *Lifter) members(w *wip.Wip, t wit.Type, addr uint32) error {
	types := memberTypes(t)
	lay := l.calc.Calculate(t)
	for i, mt := range types {
		if err := l.nested(w, func() error { return w.Field(i) }, mt, addr+lay.Offsets[i]); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lifter) enum(w *wip.Wip, def *shape.EnumDef, t wit.Type, addr uint32) error {
	td, _ := t.(*wit.TypeDef)
	if td == nil {
		return l.layoutMismatch(w, t)
	}
	var cases int
	switch k := td.Kind.(type) {
	case *wit.Enum:
		cases = len(k.Cases)
	case *wit.Variant:
		cases = len(k.Cases)
	default:
		return l.layoutMismatch(w, t)
	}
	disc, err := readDisc(l.mem, addr, cases)
	if err != nil {
		return l.memErr(w, err)
	}
	if int(disc) >= cases || int(disc) >= len(def.Variants) {
		return errors.InvalidVariant(errors.PhaseLift, []string{w.Path()}, w.Shape().String(), int(disc))
	}
	if err := w.Variant(int(disc)); err != nil {
		return err
	}
	k, ok := td.Kind.(*wit.Variant)
	if !ok || k.Cases[disc].Type == nil {
		return nil
	}
	ct := k.Cases[disc].Type
	at := addr + l.calc.Calculate(t).PayloadOffset
	if singleField(def.Variants[disc].Data) {
		return l.nested(w, func() error { return w.Field(0) }, ct, at)
	}
	return l.members(w, ct, at)
}

func (l *Lifter) list(w *wip.Wip, t wit.Type, addr uint32) error {
	elem := listType(t)
	data, n, err := l.listHeader(w, addr)
	if err != nil {
		return err
	}
	if err := w.BeginPushback(); err != nil {
		return err
	}
	size := l.calc.Calculate(elem).Size
	for i := range n {
		if err := l.nested(w, w.Push, elem, data+i*size); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lifter) entries(w *wip.Wip, t wit.Type, addr uint32) error {
	pair := listType(t)
	data, n, err := l.listHeader(w, addr)
	if err != nil {
		return err
	}
	if err := w.BeginMap(); err != nil {
		return err
	}
	types := memberTypes(pair)
	lay := l.calc.Calculate(pair)
	for i := range n {
		at := data + i*lay.Size
		if err := l.nested(w, w.PushMapKey, types[0], at+lay.Offsets[0]); err != nil {
			return err
		}
		if err := l.nested(w, w.PushMapValue, types[1], at+lay.Offsets[1]); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lifter) listHeader(w *wip.Wip, addr uint32) (uint32, uint32, error) {
	data, err := l.mem.ReadU32(addr)
	if err != nil {
		return 0, 0, l.memErr(w, err)
	}
	n, err := l.mem.ReadU32(addr + 4)
	if err != nil {
		return 0, 0, l.memErr(w, err)
	}
	if n > l.opts.MaxListLength {
		return 0, 0, errors.New(errors.PhaseLift, errors.KindOverflow).
			Path(w.Path()).
			Detail("list length %d exceeds maximum %d", n, l.opts.MaxListLength).
			Build()
	}
	return data, n, nil
}

func (l *Lifter) scalar(w *wip.Wip, def *shape.ScalarDef, t wit.Type, addr uint32) error {
	switch t.(type) {
	case wit.String:
		s, err := l.str(w, addr)
		if err != nil {
			return err
		}
		if def.Affinity == shape.AffinityString {
			return wip.Put(w, s)
		}
		return w.Parse(s)

	case *wit.TypeDef:
		data, n, err := l.listHeader(w, addr)
		if err != nil {
			return err
		}
		b, err := l.mem.Read(data, n)
		if err != nil {
			return l.memErr(w, err)
		}
		return wip.Put(w, append([]byte(nil), b...))

	case wit.Bool:
		v, err := l.mem.ReadU8(addr)
		if err != nil {
			return l.memErr(w, err)
		}
		if v > 1 {
			return errors.InvalidData(errors.PhaseLift, []string{w.Path()}, "bool byte "+strconv.Itoa(int(v)))
		}
		return wip.Put(w, v == 1)

	case wit.U8:
		v, err := l.mem.ReadU8(addr)
		if err != nil {
			return l.memErr(w, err)
		}
		return wip.Put(w, v)
	case wit.S8:
		v, err := l.mem.ReadU8(addr)
		if err != nil {
			return l.memErr(w, err)
		}
		return wip.Put(w, int8(v))
	case wit.U16:
		v, err := l.mem.ReadU16(addr)
		if err != nil {
			return l.memErr(w, err)
		}
		return wip.Put(w, v)
	case wit.S16:
		v, err := l.mem.ReadU16(addr)
		if err != nil {
			return l.memErr(w, err)
		}
		return wip.Put(w, int16(v))
	case wit.U32:
		v, err := l.mem.ReadU32(addr)
		if err != nil {
			return l.memErr(w, err)
		}
		return wip.Put(w, v)
	case wit.S32:
		v, err := l.mem.ReadU32(addr)
		if err != nil {
			return l.memErr(w, err)
		}
		return wip.Put(w, int32(v))
	case wit.U64:
		v, err := l.mem.ReadU64(addr)
		if err != nil {
			return l.memErr(w, err)
		}
		return wip.Put(w, v)
	case wit.S64:
		v, err := l.mem.ReadU64(addr)
		if err != nil {
			return l.memErr(w, err)
		}
		if def.Affinity == shape.AffinityDuration {
			return wip.Put(w, time.Duration(v))
		}
		return wip.Put(w, int64(v))
	case wit.F32:
		v, err := l.mem.ReadU32(addr)
		if err != nil {
			return l.memErr(w, err)
		}
		return wip.Put(w, math.Float32frombits(v))
	case wit.F64:
		v, err := l.mem.ReadU64(addr)
		if err != nil {
			return l.memErr(w, err)
		}
		return wip.Put(w, math.Float64frombits(v))
	}
	return l.layoutMismatch(w, t)
}

func (l *Lifter) str(w *wip.Wip, addr uint32) (string, error) {
	data, err := l.mem.ReadU32(addr)
	if err != nil {
		return "", l.memErr(w, err)
	}
	n, err := l.mem.ReadU32(addr + 4)
	if err != nil {
		return "", l.memErr(w, err)
	}
	if n > l.opts.MaxStringSize {
		return "", errors.New(errors.PhaseLift, errors.KindOverflow).
			Path(w.Path()).
			Detail("string size %d exceeds maximum %d", n, l.opts.MaxStringSize).
			Build()
	}
	if n == 0 {
		return "", nil
	}
	b, err := l.mem.Read(data, n)
	if err != nil {
		return "", l.memErr(w, err)
	}
	if !utf8.Valid(b) {
		return "", errors.InvalidUTF8(errors.PhaseLift, []string{w.Path()}, b)
	}
	return string(b), nil
}

func (l *Lifter) memErr(w *wip.Wip, err error) error {
	return errors.New(errors.PhaseLift, errors.KindOutOfBounds).Path(w.Path()).Cause(err).Build()
}

func (l *Lifter) layoutMismatch(w *wip.Wip, t wit.Type) error {
	return errors.New(errors.PhaseLift, errors.KindTypeMismatch).
		Path(w.Path()).
		Shape(w.Shape().String()).
		Detail("cannot be lifted from %s", typeString(t)).
		Build()
}

func readDisc(mem Memory, addr uint32, cases int) (uint32, error) {
	switch discriminantSize(cases) {
	case 1:
		v, err := mem.ReadU8(addr)
		return uint32(v), err
	case 2:
		v, err := mem.ReadU16(addr)
		return uint32(v), err
	}
	return mem.ReadU32(addr)
}
