package witabi

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/tetratelabs/wazero"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/peek"
	"github.com/wippyai/go-facet/shape"
)

// memoryModule exports one page of memory and nothing else.
var memoryModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
}

type level uint8

const (
	levelLow level = iota
	levelHigh
)

func init() {
	shape.RegisterEnum(shape.Case("low", levelLow), shape.Case("high", levelHigh))
}

type point struct {
	X int32
	Y int32
}

type payment struct {
	_    struct{} `facet:",oneof"`
	Card *struct{ Number string }
	Cash *uint32
}

type record struct {
	ID     uint64
	Name   string
	Score  float32
	Delta  int16
	Ok     bool
	Wait   time.Duration
	Blob   []byte
	Tags   []string
	Points []point
	Attrs  map[string]int32
	Level  level
	Pay    payment
	Ratio  *float64
	Skip   *float64
}

type node struct {
	Value int32
	Next  *node
}

type env struct {
	mem   Memory
	alloc *Bump
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	mod, err := rt.Instantiate(ctx, memoryModule)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	return &env{
		mem:   WrapMemory(mod.Memory()),
		alloc: NewBump(1024, 65536),
	}
}

func (e *env) lowerer() *Lowerer { return NewLowerer(e.mem, e.alloc, DefaultOptions()) }

func (e *env) lifter() *Lifter { return NewLifter(e.mem, DefaultOptions()) }

func layoutOf(t *testing.T, s *shape.Shape) Layout {
	t.Helper()
	typ, err := TypeOf(s)
	if err != nil {
		t.Fatalf("TypeOf(%s): %v", s, err)
	}
	return NewCalculator().Calculate(typ)
}

func TestTypeOf(t *testing.T) {
	typ, err := TypeOf(shape.Of[point]())
	if err != nil {
		t.Fatalf("TypeOf: %v", err)
	}
	td, ok := typ.(*wit.TypeDef)
	if !ok {
		t.Fatalf("expected type definition, got %T", typ)
	}
	rec, ok := td.Kind.(*wit.Record)
	if !ok {
		t.Fatalf("expected record, got %T", td.Kind)
	}
	if len(rec.Fields) != 2 || rec.Fields[0].Name != "x" || rec.Fields[1].Name != "y" {
		t.Errorf("unexpected fields: %+v", rec.Fields)
	}

	again, _ := TypeOf(shape.Of[point]())
	if again != typ {
		t.Error("expected cached type")
	}

	lv, _ := TypeOf(shape.Of[level]())
	if _, ok := lv.(*wit.TypeDef).Kind.(*wit.Enum); !ok {
		t.Errorf("level: expected enum, got %T", lv.(*wit.TypeDef).Kind)
	}
	pay, _ := TypeOf(shape.Of[payment]())
	if _, ok := pay.(*wit.TypeDef).Kind.(*wit.Variant); !ok {
		t.Errorf("payment: expected variant, got %T", pay.(*wit.TypeDef).Kind)
	}
	if d, _ := TypeOf(shape.Of[time.Duration]()); d != (wit.S64{}) {
		t.Errorf("duration: expected s64, got %T", d)
	}
}

func TestTypeOfRecursive(t *testing.T) {
	_, err := TypeOf(shape.Of[node]())
	if !errors.IsKind(err, errors.KindUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}

func TestLayouts(t *testing.T) {
	tests := []struct {
		name          string
		shape         *shape.Shape
		size, align   uint32
		payloadOffset uint32
	}{
		{"point", shape.Of[point](), 8, 4, 0},
		{"option u16", shape.Of[*uint16](), 4, 2, 2},
		{"variant", shape.Of[payment](), 12, 4, 4},
		{"enum", shape.Of[level](), 1, 1, 0},
		{"string", shape.Of[string](), 8, 4, 0},
		{"bytes", shape.Of[[]byte](), 8, 4, 0},
		{"u64", shape.Of[uint64](), 8, 8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := layoutOf(t, tt.shape)
			if l.Size != tt.size || l.Align != tt.align || l.PayloadOffset != tt.payloadOffset {
				t.Errorf("got size=%d align=%d payload=%d, want %d/%d/%d",
					l.Size, l.Align, l.PayloadOffset, tt.size, tt.align, tt.payloadOffset)
			}
		})
	}
}

func TestLayoutPadding(t *testing.T) {
	type mixed struct {
		A uint8
		B uint64
		C uint16
	}
	l := layoutOf(t, shape.Of[mixed]())
	if l.Size != 24 || l.Align != 8 {
		t.Errorf("got size=%d align=%d, want 24/8", l.Size, l.Align)
	}
	if !reflect.DeepEqual(l.Offsets, []uint32{0, 8, 16}) {
		t.Errorf("unexpected offsets %v", l.Offsets)
	}
}

func TestRoundTrip(t *testing.T) {
	e := newEnv(t)
	ratio := 0.25
	cash := uint32(7)
	in := record{
		ID:     1 << 40,
		Name:   "héllo",
		Score:  1.5,
		Delta:  -3,
		Ok:     true,
		Wait:   3 * time.Second,
		Blob:   []byte{1, 2, 3},
		Tags:   []string{"a", "bc"},
		Points: []point{{1, 2}, {-3, 4}},
		Attrs:  map[string]int32{"x": 1, "y": -1},
		Level:  levelHigh,
		Pay:    payment{Cash: &cash},
		Ratio:  &ratio,
	}

	l := e.lowerer()
	addr, err := LowerValue(l, &in)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	out, err := LiftValue[record](e.lifter(), addr)
	if err != nil {
		t.Fatalf("lift: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestRoundTripVariantRecord(t *testing.T) {
	e := newEnv(t)
	in := payment{Card: &struct{ Number string }{Number: "4242"}}
	addr, err := LowerValue(e.lowerer(), &in)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	disc, _ := e.mem.ReadU8(addr)
	if disc != 0 {
		t.Errorf("expected discriminant 0, got %d", disc)
	}
	out, err := LiftValue[payment](e.lifter(), addr)
	if err != nil {
		t.Fatalf("lift: %v", err)
	}
	if out.Card == nil || out.Card.Number != "4242" || out.Cash != nil {
		t.Errorf("unexpected payment %+v", out)
	}
}

func TestRawLayout(t *testing.T) {
	e := newEnv(t)
	l := e.lowerer()

	ok := true
	addr, err := LowerValue(l, &ok)
	if err != nil {
		t.Fatal(err)
	}
	if b, _ := e.mem.ReadU8(addr); b != 1 {
		t.Errorf("bool: got %d", b)
	}

	u := uint32(0xFFFFFFFE)
	addr, err = LowerValue(l, &u)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := e.mem.ReadU32(addr); v != 0xFFFFFFFE {
		t.Errorf("u32: got %#x", v)
	}

	s := int16(-2)
	addr, err = LowerValue(l, &s)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := e.mem.ReadU16(addr); v != 0xFFFE {
		t.Errorf("s16: got %#x", v)
	}

	p := point{X: 1, Y: 2}
	addr, err = LowerValue(l, &p)
	if err != nil {
		t.Fatal(err)
	}
	x, _ := e.mem.ReadU32(addr)
	y, _ := e.mem.ReadU32(addr + 4)
	if x != 1 || y != 2 {
		t.Errorf("point: got %d, %d", x, y)
	}

	str := "hi"
	addr, err = LowerValue(l, &str)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := e.mem.ReadU32(addr)
	n, _ := e.mem.ReadU32(addr + 4)
	b, _ := e.mem.Read(data, n)
	if string(b) != "hi" {
		t.Errorf("string: got %q", b)
	}

	empty := ""
	addr, err = LowerValue(l, &empty)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := e.mem.ReadU32(addr + 4); n != 0 {
		t.Errorf("empty string: length %d", n)
	}
}

func TestNaNIsCanonical(t *testing.T) {
	e := newEnv(t)
	f := float32(math.NaN())
	addr, err := LowerValue(e.lowerer(), &f)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := e.mem.ReadU32(addr); v != canonicalNaN32 {
		t.Errorf("got %#x", v)
	}
}

func TestFree(t *testing.T) {
	e := newEnv(t)
	l := e.lowerer()
	in := record{Name: "x", Tags: []string{"a"}}
	if _, err := LowerValue(l, &in); err != nil {
		t.Fatal(err)
	}
	if l.Blocks() == 0 {
		t.Fatal("expected outstanding blocks")
	}
	l.Free()
	if l.Blocks() != 0 {
		t.Errorf("expected no blocks, got %d", l.Blocks())
	}
}

func TestBump(t *testing.T) {
	b := NewBump(1, 16)
	p, err := b.Alloc(4, 4)
	if err != nil || p != 4 {
		t.Fatalf("got %d, %v", p, err)
	}
	if b.Used() != 7 {
		t.Errorf("used %d", b.Used())
	}
	if _, err := b.Alloc(16, 1); err == nil {
		t.Error("expected exhaustion")
	}
	b.Reset()
	if b.Used() != 0 {
		t.Errorf("used %d after reset", b.Used())
	}
}

func TestLowerErrors(t *testing.T) {
	tests := []struct {
		name  string
		lower func(e *env) error
		kind  errors.Kind
	}{
		{
			name: "invalid utf8",
			lower: func(e *env) error {
				s := "\xff"
				_, err := LowerValue(e.lowerer(), &s)
				return err
			},
			kind: errors.KindInvalidUTF8,
		},
		{
			name: "list too long",
			lower: func(e *env) error {
				v := []uint8{1, 2, 3, 4, 5}
				l := NewLowerer(e.mem, e.alloc, Options{MaxListLength: 4})
				_, err := LowerValue(l, &v)
				return err
			},
			kind: errors.KindOverflow,
		},
		{
			name: "allocator exhausted",
			lower: func(e *env) error {
				s := "sixteen bytes!!!"
				_, err := LowerValue(NewLowerer(e.mem, NewBump(1024, 1040), DefaultOptions()), &s)
				return err
			},
			kind: errors.KindAllocation,
		},
		{
			name: "no allocator",
			lower: func(e *env) error {
				v := uint8(1)
				_, err := LowerValue(NewLowerer(e.mem, nil, DefaultOptions()), &v)
				return err
			},
			kind: errors.KindUnavailable,
		},
		{
			name: "out of bounds",
			lower: func(e *env) error {
				v := uint64(1)
				return NewLowerer(e.mem, e.alloc, DefaultOptions()).LowerAt(peek.New(&v), wit.U64{}, 70000)
			},
			kind: errors.KindOutOfBounds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.lower(newEnv(t))
			if !errors.IsKind(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestLiftErrors(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, e *env) error
		kind    errors.Kind
	}{
		{
			name: "invalid utf8",
			prepare: func(t *testing.T, e *env) error {
				writeAll(t, e.mem.WriteU8(600, 0xff), e.mem.WriteU32(512, 600), e.mem.WriteU32(516, 1))
				_, err := LiftValue[string](e.lifter(), 512)
				return err
			},
			kind: errors.KindInvalidUTF8,
		},
		{
			name: "list too long",
			prepare: func(t *testing.T, e *env) error {
				writeAll(t, e.mem.WriteU32(512, 600), e.mem.WriteU32(516, 5))
				_, err := LiftValue[[]uint32](NewLifter(e.mem, Options{MaxListLength: 4}), 512)
				return err
			},
			kind: errors.KindOverflow,
		},
		{
			name: "bad enum discriminant",
			prepare: func(t *testing.T, e *env) error {
				writeAll(t, e.mem.WriteU8(512, 5))
				_, err := LiftValue[level](e.lifter(), 512)
				return err
			},
			kind: errors.KindInvalidVariant,
		},
		{
			name: "bad option discriminant",
			prepare: func(t *testing.T, e *env) error {
				writeAll(t, e.mem.WriteU8(512, 2))
				_, err := LiftValue[*uint16](e.lifter(), 512)
				return err
			},
			kind: errors.KindInvalidData,
		},
		{
			name: "bad bool",
			prepare: func(t *testing.T, e *env) error {
				writeAll(t, e.mem.WriteU8(512, 2))
				_, err := LiftValue[bool](e.lifter(), 512)
				return err
			},
			kind: errors.KindInvalidData,
		},
		{
			name: "out of bounds",
			prepare: func(t *testing.T, e *env) error {
				_, err := LiftValue[uint32](e.lifter(), 70000)
				return err
			},
			kind: errors.KindOutOfBounds,
		},
		{
			name: "list data out of bounds",
			prepare: func(t *testing.T, e *env) error {
				writeAll(t, e.mem.WriteU32(512, 65530), e.mem.WriteU32(516, 4))
				_, err := LiftValue[[]uint32](e.lifter(), 512)
				return err
			},
			kind: errors.KindOutOfBounds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.prepare(t, newEnv(t))
			if !errors.IsKind(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestLiftErrorPath(t *testing.T) {
	e := newEnv(t)
	in := point{X: 1, Y: 2}
	addr, err := LowerValue(e.lowerer(), &in)
	if err != nil {
		t.Fatal(err)
	}
	type pair struct {
		A point
		B bool
	}
	// B follows the point; 9 is not a bool
	if err := e.mem.WriteU8(addr+8, 9); err != nil {
		t.Fatal(err)
	}
	_, err = LiftValue[pair](e.lifter(), addr)
	var fe *errors.Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *errors.Error, got %v", err)
	}
	if fe.Phase != errors.PhaseLift {
		t.Errorf("phase %s", fe.Phase)
	}
	if len(fe.Path) == 0 {
		t.Error("expected a path")
	}
}

func writeAll(t *testing.T, errs ...error) {
	t.Helper()
	for _, err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
}
