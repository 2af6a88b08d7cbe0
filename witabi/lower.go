package witabi

import (
	"fmt"
	"iter"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/peek"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

const (
	canonicalNaN32 = 0x7fc00000
	canonicalNaN64 = 0x7ff8000000000000
)

// Lowerer writes reflected values into guest memory in canonical ABI layout.
// Strings and list contents are placed in blocks from the allocator; Free returns them.
type Lowerer struct {
	mem    Memory
	alloc  Allocator
	opts   Options
	calc   *Calculator
	allocs []allocation
}

func NewLowerer(mem Memory, alloc Allocator, opts Options) *Lowerer {
	return &Lowerer{mem: mem, alloc: alloc, opts: opts.withDefaults(), calc: NewCalculator()}
}

// Lower allocates room for the value behind p, writes it there and returns the address.
func (l *Lowerer) Lower(p peek.Peek) (uint32, error) {
	t, err := TypeOf(p.Shape())
	if err != nil {
		return 0, err
	}
	lay := l.calc.Calculate(t)
	addr, err := l.allocate(lay.Size, lay.Align, nil)
	if err != nil {
		return 0, err
	}
	if err := l.lower(p, t, addr, nil); err != nil {
		return 0, err
	}
	Logger().Debug("lowered value",
		zap.Stringer("shape", p.Shape()),
		zap.Uint32("addr", addr),
		zap.Uint32("size", lay.Size),
		zap.Int("blocks", len(l.allocs)))
	return addr, nil
}

// LowerValue lowers *v.
func LowerValue[T any](l *Lowerer, v *T) (uint32, error) {
	return l.Lower(peek.New(v))
}

// LowerAt writes the value behind p as type t at addr, which the caller has sized.
func (l *Lowerer) LowerAt(p peek.Peek, t wit.Type, addr uint32) error {
	return l.lower(p, t, addr, nil)
}

// Free hands every block allocated so far back to the allocator, newest first.
func (l *Lowerer) Free() {
	for i := len(l.allocs) - 1; i >= 0; i-- {
		a := l.allocs[i]
		l.alloc.Free(a.ptr, a.size, a.align)
	}
	l.allocs = l.allocs[:0]
}

// Blocks reports how many allocations are outstanding.
func (l *Lowerer) Blocks() int { return len(l.allocs) }

func (l *Lowerer) lower(p peek.Peek, t wit.Type, addr uint32, path []string) error {
	s := p.Shape()
	switch s.Def.(type) {
	case *shape.ScalarDef:
		sc, _ := p.Scalar()
		return l.scalar(sc, t, addr, path)

	case *shape.StructDef:
		st, _ := p.Struct()
		if s.IsTransparent() {
			f, _ := st.Field(0)
			return l.lower(f, t, addr, path)
		}
		return l.members(st, t, addr, path)

	case *shape.EnumDef:
		e, _ := p.Enum()
		return l.enum(e, t, addr, path)

	case *shape.ListDef:
		li, _ := p.List()
		return l.list(li.Len(), li.Items(), t, addr, path)

	case *shape.SliceDef:
		sl, _ := p.Slice()
		return l.list(sl.Len(), sl.Items(), t, addr, path)

	case *shape.MapDef:
		m, _ := p.Map()
		return l.entries(m, t, addr, path)

	case *shape.OptionDef:
		o, _ := p.Option()
		lay := l.calc.Calculate(t)
		v, ok := o.Value()
		if !ok {
			return l.memErr(l.mem.WriteU8(addr, 0), path)
		}
		if err := l.memErr(l.mem.WriteU8(addr, 1), path); err != nil {
			return err
		}
		return l.lower(v, optionType(t), addr+lay.PayloadOffset, path)

	case *shape.SmartPointerDef:
		sp, _ := p.SmartPointer()
		v, release, err := sp.Read()
		if err != nil {
			return err
		}
		defer release()
		return l.lower(v, t, addr, path)
	}
	return errors.New(errors.PhaseLower, errors.KindUnsupported).
		Path(path...).
		Shape(s.String()).
		Detail("cannot be lowered").
		Build()
}

func (l *Lowerer) members(st peek.Struct, t wit.Type, addr uint32, path []string) error {
	types := memberTypes(t)
	lay := l.calc.Calculate(t)
	i := 0
	for f, v := range st.Fields() {
		if i >= len(types) {
			return l.layoutMismatch(st.Shape(), t, path)
		}
		if err := l.lower(v, types[i], addr+lay.Offsets[i], extend(path, f.Name)); err != nil {
			return err
		}
		i++
	}
	return nil
}

func (l *Lowerer) enum(e peek.Enum, t wit.Type, addr uint32, path []string) error {
	i, ok := e.VariantIndex()
	if !ok {
		return errors.InvalidData(errors.PhaseLower, path, "enum has no variant selected")
	}
	td, _ := t.(*wit.TypeDef)
	if td == nil {
		return l.layoutMismatch(e.Shape(), t, path)
	}
	switch k := td.Kind.(type) {
	case *wit.Enum:
		return l.memErr(writeDisc(l.mem, addr, len(k.Cases), uint32(i)), path)

	case *wit.Variant:
		if err := l.memErr(writeDisc(l.mem, addr, len(k.Cases), uint32(i)), path); err != nil {
			return err
		}
		cs := k.Cases[i]
		if cs.Type == nil {
			return nil
		}
		v := &e.Def().Variants[i]
		payload, err := e.Payload()
		if err != nil {
			return err
		}
		at := addr + l.calc.Calculate(t).PayloadOffset
		if singleField(v.Data) {
			f, _ := payload.Field(0)
			return l.lower(f, cs.Type, at, extend(path, v.Name))
		}
		return l.members(payload, cs.Type, at, extend(path, v.Name))
	}
	return l.layoutMismatch(e.Shape(), t, path)
}

func (l *Lowerer) list(n int, items iter.Seq2[int, peek.Peek], t wit.Type, addr uint32, path []string) error {
	elem := listType(t)
	data, err := l.listBlock(n, elem, addr, path)
	if err != nil || n == 0 {
		return err
	}
	size := l.calc.Calculate(elem).Size
	for i, v := range items {
		if err := l.lower(v, elem, data+uint32(i)*size, extend(path, "["+strconv.Itoa(i)+"]")); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lowerer) entries(m peek.Map, t wit.Type, addr uint32, path []string) error {
	pair := listType(t)
	n := m.Len()
	data, err := l.listBlock(n, pair, addr, path)
	if err != nil || n == 0 {
		return err
	}
	types := memberTypes(pair)
	lay := l.calc.Calculate(pair)
	at := data
	for k, v := range m.Entries() {
		if err := l.lower(k, types[0], at+lay.Offsets[0], path); err != nil {
			return err
		}
		if err := l.lower(v, types[1], at+lay.Offsets[1], extend(path, k.String())); err != nil {
			return err
		}
		at += lay.Size
	}
	return nil
}

// listBlock allocates the backing block for n elements and writes the list header at addr.
func (l *Lowerer) listBlock(n int, elem wit.Type, addr uint32, path []string) (uint32, error) {
	if uint64(n) > uint64(l.opts.MaxListLength) {
		return 0, errors.New(errors.PhaseLower, errors.KindOverflow).
			Path(path...).
			Detail("list length %d exceeds maximum %d", n, l.opts.MaxListLength).
			Build()
	}
	if n == 0 {
		return 0, l.header(addr, 0, 0, path)
	}
	el := l.calc.Calculate(elem)
	size := uint64(n) * uint64(el.Size)
	if size > MaxAlloc {
		return 0, errors.New(errors.PhaseLower, errors.KindOverflow).
			Path(path...).
			Detail("list data size overflow: %d * %d", n, el.Size).
			Build()
	}
	data, err := l.allocate(uint32(size), el.Align, path)
	if err != nil {
		return 0, err
	}
	return data, l.header(addr, data, uint32(n), path)
}

func (l *Lowerer) scalar(sc peek.Scalar, t wit.Type, addr uint32, path []string) error {
	switch t.(type) {
	case wit.String:
		s, err := sc.Text()
		if sc.IsString() {
			var v any
			v, err = sc.Value()
			s, _ = v.(string)
		}
		if err != nil {
			return err
		}
		return l.str(s, addr, path)
	case *wit.TypeDef:
		v, err := sc.Value()
		if err != nil {
			return err
		}
		b, _ := v.([]byte)
		if uint64(len(b)) > uint64(l.opts.MaxListLength) {
			return errors.New(errors.PhaseLower, errors.KindOverflow).
				Path(path...).
				Detail("list length %d exceeds maximum %d", len(b), l.opts.MaxListLength).
				Build()
		}
		return l.bytes(b, addr, path)
	}

	if sc.Affinity() == shape.AffinityDuration {
		d := ptr.Read[time.Duration](sc.Data())
		return l.memErr(l.mem.WriteU64(addr, uint64(d)), path)
	}
	v, err := sc.Value()
	if err != nil {
		return err
	}
	var werr error
	switch t.(type) {
	case wit.Bool:
		werr = l.mem.WriteU8(addr, uint8(bitsOf(v)))
	case wit.U8, wit.S8:
		werr = l.mem.WriteU8(addr, uint8(bitsOf(v)))
	case wit.U16, wit.S16:
		werr = l.mem.WriteU16(addr, uint16(bitsOf(v)))
	case wit.U32, wit.S32:
		werr = l.mem.WriteU32(addr, uint32(bitsOf(v)))
	case wit.U64, wit.S64:
		werr = l.mem.WriteU64(addr, bitsOf(v))
	case wit.F32:
		f, _ := v.(float64)
		bits := math.Float32bits(float32(f))
		if f != f {
			bits = canonicalNaN32
		}
		werr = l.mem.WriteU32(addr, bits)
	case wit.F64:
		f, _ := v.(float64)
		bits := math.Float64bits(f)
		if f != f {
			bits = canonicalNaN64
		}
		werr = l.mem.WriteU64(addr, bits)
	default:
		return l.layoutMismatch(sc.Shape(), t, path)
	}
	return l.memErr(werr, path)
}

func (l *Lowerer) str(s string, addr uint32, path []string) error {
	if !utf8.ValidString(s) {
		return errors.InvalidUTF8(errors.PhaseLower, path, []byte(s))
	}
	if uint64(len(s)) > uint64(l.opts.MaxStringSize) {
		return errors.New(errors.PhaseLower, errors.KindOverflow).
			Path(path...).
			Detail("string size %d exceeds maximum %d", len(s), l.opts.MaxStringSize).
			Build()
	}
	return l.bytes([]byte(s), addr, path)
}

func (l *Lowerer) bytes(b []byte, addr uint32, path []string) error {
	if len(b) == 0 {
		return l.header(addr, 0, 0, path)
	}
	data, err := l.allocate(uint32(len(b)), 1, path)
	if err != nil {
		return err
	}
	if err := l.memErr(l.mem.Write(data, b), path); err != nil {
		return err
	}
	return l.header(addr, data, uint32(len(b)), path)
}

func (l *Lowerer) header(addr, data, n uint32, path []string) error {
	if err := l.mem.WriteU32(addr, data); err != nil {
		return l.memErr(err, path)
	}
	return l.memErr(l.mem.WriteU32(addr+4, n), path)
}

func (l *Lowerer) allocate(size, align uint32, path []string) (uint32, error) {
	if l.alloc == nil {
		return 0, errors.New(errors.PhaseLower, errors.KindUnavailable).
			Path(path...).
			Detail("no allocator for %d bytes", size).
			Build()
	}
	p, err := l.alloc.Alloc(size, align)
	if err != nil {
		return 0, errors.New(errors.PhaseLower, errors.KindAllocation).
			Path(path...).
			Cause(err).
			Detail("failed to allocate %d bytes (align %d)", size, align).
			Build()
	}
	l.allocs = append(l.allocs, allocation{ptr: p, size: size, align: align})
	return p, nil
}

func (l *Lowerer) memErr(err error, path []string) error {
	if err == nil {
		return nil
	}
	return errors.New(errors.PhaseLower, errors.KindOutOfBounds).Path(path...).Cause(err).Build()
}

func (l *Lowerer) layoutMismatch(s *shape.Shape, t wit.Type, path []string) error {
	return errors.New(errors.PhaseLower, errors.KindTypeMismatch).
		Path(path...).
		Shape(s.String()).
		Detail("does not lower to %s", typeString(t)).
		Build()
}

// bitsOf returns the two's complement bits of an integer or bool scalar value.
func bitsOf(v any) uint64 {
	switch x := v.(type) {
	case int64:
		return uint64(x)
	case uint64:
		return x
	case bool:
		if x {
			return 1
		}
	}
	return 0
}

func writeDisc(mem Memory, addr uint32, cases int, v uint32) error {
	switch discriminantSize(cases) {
	case 1:
		return mem.WriteU8(addr, uint8(v))
	case 2:
		return mem.WriteU16(addr, uint16(v))
	}
	return mem.WriteU32(addr, v)
}

func memberTypes(t wit.Type) []wit.Type {
	td, ok := t.(*wit.TypeDef)
	if !ok {
		return nil
	}
	switch k := td.Kind.(type) {
	case *wit.Record:
		types := make([]wit.Type, len(k.Fields))
		for i, f := range k.Fields {
			types[i] = f.Type
		}
		return types
	case *wit.Tuple:
		return k.Types
	}
	return nil
}

func listType(t wit.Type) wit.Type {
	if td, ok := t.(*wit.TypeDef); ok {
		if l, ok := td.Kind.(*wit.List); ok {
			return l.Type
		}
	}
	return nil
}

func optionType(t wit.Type) wit.Type {
	if td, ok := t.(*wit.TypeDef); ok {
		if o, ok := td.Kind.(*wit.Option); ok {
			return o.Type
		}
	}
	return nil
}

func typeString(t wit.Type) string {
	if td, ok := t.(*wit.TypeDef); ok {
		return fmt.Sprintf("%T", td.Kind)
	}
	return fmt.Sprintf("%T", t)
}

func extend(path []string, seg string) []string {
	return append(path[:len(path):len(path)], seg)
}
