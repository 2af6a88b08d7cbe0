package shape

import (
	"bytes"
	"hash/fnv"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
)

type person struct {
	Name    string
	Age     uint32
	private int //nolint:unused // must not be listed
}

type account struct {
	_        struct{} `facet:",rename_all=snake_case,deny_unknown_fields"`
	UserID   uint64
	Email    string  `facet:"mail"`
	Password string  `facet:",sensitive"`
	Note     *string `facet:",skip_serializing_if=nil"`
	Ignored  int     `facet:"-"`
}

type userID uint64

type wrapper struct {
	_     struct{} `facet:",transparent"`
	Value int32
}

type circle struct{ Radius float64 }
type square struct{ Side float64 }

type figure struct {
	_      struct{} `facet:",oneof"`
	Circle *circle
	Square *square
	Point  *struct{}
}

type level uint8

const (
	levelLow level = iota
	levelHigh
)

func init() {
	RegisterEnum(Case("Low", levelLow), Case("High", levelHigh))
}

type dropCounter struct {
	n *int
}

func (d *dropCounter) Drop() { *d.n++ }

type node struct {
	Value    int
	Children []node
}

func TestShapeIdentity(t *testing.T) {
	if Of[person]() != Of[person]() {
		t.Fatal("Of must return the cached shape")
	}
	if !Of[person]().Is(Of[person]()) {
		t.Error("shape must be its own identity")
	}
	if Of[person]().Is(Of[account]()) {
		t.Error("distinct types must have distinct identities")
	}
	if Of[userID]().Is(Of[uint64]()) {
		t.Error("named scalar must not share identity with its underlying type")
	}
	if !IsType[person](Of[person]()) {
		t.Error("IsType mismatch")
	}
}

func TestScalarParseDisplay(t *testing.T) {
	tests := []struct {
		name  string
		shape *Shape
		input string
	}{
		{"int", Of[int](), "-42"},
		{"int8", Of[int8](), "127"},
		{"uint16", Of[uint16](), "65535"},
		{"uint64", Of[uint64](), "18446744073709551615"},
		{"float64", Of[float64](), "3.25"},
		{"bool", Of[bool](), "true"},
		{"string", Of[string](), "hello"},
		{"duration", Of[time.Duration](), "1m30s"},
		{"time", Of[time.Time](), "2024-05-01T10:00:00Z"},
		{"bytes", Of[[]byte](), "aGVsbG8="},
		{"named", Of[userID](), "7"},
		{"enum", Of[level](), "High"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mem, err := tc.shape.Allocate()
			if err != nil {
				t.Fatalf("Allocate: %v", err)
			}
			p, err := tc.shape.VTable.Parse(tc.input, mem)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.input, err)
			}
			var buf bytes.Buffer
			if err := tc.shape.VTable.Display(p.AsConst(), &buf); err != nil {
				t.Fatalf("Display: %v", err)
			}
			if buf.String() != tc.input {
				t.Errorf("Display = %q, want %q", buf.String(), tc.input)
			}
		})
	}
}

func TestScalarParseError(t *testing.T) {
	mem, _ := Of[uint8]().Allocate()
	_, err := Of[uint8]().VTable.Parse("300", mem)
	if err == nil {
		t.Fatal("expected overflow to fail")
	}
	if !errors.IsKind(err, errors.KindInvalidData) {
		t.Errorf("unexpected error kind: %v", err)
	}
}

func TestFloatCapabilities(t *testing.T) {
	vt := Of[float64]().VTable
	if vt.Ord != nil || vt.Hash != nil {
		t.Error("floats must not be totally ordered or hashable")
	}
	a, b := 1.0, math.NaN()
	if _, ok := vt.PartialOrd(ptr.ConstFrom(&a), ptr.ConstFrom(&b)); ok {
		t.Error("comparison with NaN must be unordered")
	}
}

func TestNumberTryFrom(t *testing.T) {
	tests := []struct {
		name    string
		src     any
		wantErr bool
		want    int64
	}{
		{"widen", int8(-5), false, -5},
		{"unsigned in range", uint64(100), false, 100},
		{"unsigned overflow", uint64(1 << 40), true, 0},
		{"whole float", 12.0, false, 12},
		{"fractional float", 12.5, true, 0},
	}

	dst := Of[int32]()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var ss *Shape
			var src ptr.Const
			switch v := tc.src.(type) {
			case int8:
				ss, src = Of[int8](), ptr.ConstFrom(&v)
			case uint64:
				ss, src = Of[uint64](), ptr.ConstFrom(&v)
			case float64:
				ss, src = Of[float64](), ptr.ConstFrom(&v)
			}
			var out int32
			_, err := dst.VTable.TryFrom(src, ss, ptr.UninitOf(ptr.MutFrom(&out).Raw()))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", out)
				}
				return
			}
			if err != nil {
				t.Fatalf("TryFrom: %v", err)
			}
			if int64(out) != tc.want {
				t.Errorf("got %d, want %d", out, tc.want)
			}
		})
	}
}

func TestStructDef(t *testing.T) {
	sd, ok := Of[person]().Struct()
	if !ok {
		t.Fatal("person must be a struct")
	}
	if len(sd.Fields) != 2 {
		t.Fatalf("expected 2 listed fields, got %d", len(sd.Fields))
	}
	if sd.Fields[0].Name != "Name" || sd.Fields[1].Name != "Age" {
		t.Errorf("unexpected field order: %s, %s", sd.Fields[0].Name, sd.Fields[1].Name)
	}
	if !IsType[uint32](sd.Fields[1].Shape()) {
		t.Errorf("Age shape = %s", sd.Fields[1].Shape())
	}
}

func TestStructTags(t *testing.T) {
	s := Of[account]()
	if !s.DenyUnknownFields() {
		t.Error("deny_unknown_fields not applied")
	}
	if s.RenameAll() != RenameSnakeCase {
		t.Errorf("RenameAll = %q", s.RenameAll())
	}

	sd, _ := s.Struct()
	names := make([]string, len(sd.Fields))
	for i := range sd.Fields {
		names[i] = sd.Fields[i].SerializedName()
	}
	want := []string{"user_id", "mail", "password", "note"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("serialized names = %v, want %v", names, want)
	}
	if !sd.Fields[2].Flags.Has(FieldSensitive) {
		t.Error("password must be sensitive")
	}
	if i, ok := sd.FieldIndexFold("USERID"); !ok || i != 0 {
		t.Errorf("FieldIndexFold(USERID) = %d, %v", i, ok)
	}

	var a account
	if !sd.Fields[3].ShouldSkipSerializing(ptr.ConstFrom(&a.Note)) {
		t.Error("nil note must be skipped")
	}
	note := "x"
	a.Note = &note
	if sd.Fields[3].ShouldSkipSerializing(ptr.ConstFrom(&a.Note)) {
		t.Error("set note must not be skipped")
	}
}

func TestTransparent(t *testing.T) {
	s := Of[wrapper]()
	if !s.IsTransparent() || s.Inner == nil || !IsType[int32](s.Inner()) {
		t.Fatal("wrapper must be transparent over int32")
	}
	src := int32(9)
	var w wrapper
	if _, err := s.VTable.TryFrom(ptr.ConstFrom(&src), Of[int32](), ptr.UninitOf(ptr.MutFrom(&w).Raw())); err != nil {
		t.Fatalf("TryFrom: %v", err)
	}
	if w.Value != 9 {
		t.Errorf("Value = %d", w.Value)
	}
	inner, err := s.VTable.TryBorrowInner(ptr.ConstFrom(&w))
	if err != nil || ptr.Read[int32](inner) != 9 {
		t.Errorf("TryBorrowInner = %v, %v", inner, err)
	}
}

func TestNamedScalar(t *testing.T) {
	s := Of[userID]()
	if s.String() != "userID" {
		t.Errorf("String() = %q", s.String())
	}
	raw := uint64(5)
	var id userID
	if _, err := s.VTable.TryFrom(ptr.ConstFrom(&raw), Of[uint64](), ptr.UninitOf(ptr.MutFrom(&id).Raw())); err != nil {
		t.Fatalf("TryFrom: %v", err)
	}
	if id != 5 {
		t.Errorf("id = %d", id)
	}
}

func TestOneOf(t *testing.T) {
	s := Of[figure]()
	ed, ok := s.Enum()
	if !ok || ed.Repr != ReprOneOf {
		t.Fatalf("figure must be a oneof enum, got %s", s.Def.DefKind())
	}
	if len(ed.Variants) != 3 {
		t.Fatalf("variants = %d", len(ed.Variants))
	}

	var f figure
	payload := ed.VTable.SelectVariant(ptr.UninitOf(ptr.MutFrom(&f).Raw()), 1)
	*(*float64)(payload.Raw()) = 4
	if f.Square == nil || f.Square.Side != 4 {
		t.Fatalf("SelectVariant did not install the payload: %+v", f)
	}
	if i, ok := ed.VTable.VariantIndex(ptr.ConstFrom(&f)); !ok || i != 1 {
		t.Errorf("VariantIndex = %d, %v", i, ok)
	}
	if ed.Variants[2].Data.Kind != StructKindUnit {
		t.Errorf("Point payload kind = %d", ed.Variants[2].Data.Kind)
	}

	g := figure{Square: &square{Side: 4}}
	if !s.VTable.Eq(ptr.ConstFrom(&f), ptr.ConstFrom(&g)) {
		t.Error("equal variants must compare equal")
	}
}

func TestRegisteredEnum(t *testing.T) {
	s := Of[level]()
	ed, ok := s.Enum()
	if !ok || ed.Repr != ReprU8 {
		t.Fatalf("level must be a u8 enum")
	}
	bad := level(9)
	if err := s.VTable.Invariants(ptr.ConstFrom(&bad)); err == nil {
		t.Error("unknown discriminant must violate invariants")
	}
	name := "high"
	var l level
	if _, err := s.VTable.TryFrom(ptr.ConstFrom(&name), Of[string](), ptr.UninitOf(ptr.MutFrom(&l).Raw())); err != nil {
		t.Fatalf("TryFrom: %v", err)
	}
	if l != levelHigh {
		t.Errorf("l = %d", l)
	}
}

func TestDropGlue(t *testing.T) {
	type holder struct {
		A dropCounter
		B []dropCounter
		C *dropCounter
	}
	n := 0
	h := holder{
		A: dropCounter{&n},
		B: []dropCounter{{&n}, {&n}},
		C: &dropCounter{&n},
	}
	if !NeedsDrop(IDOf[holder]().Type()) {
		t.Fatal("holder needs drop")
	}
	if !DropInPlace(Of[holder](), ptr.MutFrom(&h)) {
		t.Fatal("drop glue missing")
	}
	if n != 4 {
		t.Errorf("dropped %d values, want 4", n)
	}
	if h.C != nil || h.B != nil {
		t.Error("dropped memory must be zeroed")
	}
	if Of[person]().VTable.DropInPlace != nil {
		t.Error("person needs no drop glue")
	}
}

func TestCloneIsDeep(t *testing.T) {
	src := node{Value: 1, Children: []node{{Value: 2}}}
	var dst node
	Of[node]().VTable.CloneInto(ptr.ConstFrom(&src), ptr.UninitOf(ptr.MutFrom(&dst).Raw()))
	src.Children[0].Value = 99
	if dst.Children[0].Value != 2 {
		t.Error("clone shares storage with source")
	}
	if !Of[node]().VTable.Eq(ptr.ConstFrom(&dst), ptr.ConstFrom(&node{Value: 1, Children: []node{{Value: 2}}})) {
		t.Error("clone must equal original")
	}
}

func TestHashConsistentWithEq(t *testing.T) {
	a := person{Name: "a", Age: 1}
	b := person{Name: "a", Age: 1}
	ha, hb := fnv.New64a(), fnv.New64a()
	vt := Of[person]().VTable
	vt.Hash(ptr.ConstFrom(&a), ha)
	vt.Hash(ptr.ConstFrom(&b), hb)
	if ha.Sum64() != hb.Sum64() {
		t.Error("equal values must hash equally")
	}
	if Of[map[string]int]().VTable.Hash != nil {
		t.Error("maps are not hashable")
	}
}

func TestMapIterSorted(t *testing.T) {
	m := map[string]int{"b": 2, "c": 3, "a": 1}
	md := Of[map[string]int]().Def.(*MapDef)
	var keys []string
	for k := range md.VTable.Iter(ptr.ConstFrom(&m)) {
		keys = append(keys, ptr.Read[string](k))
	}
	if strings.Join(keys, "") != "abc" {
		t.Errorf("keys = %v", keys)
	}
}

func TestListVTable(t *testing.T) {
	s := Of[[]string]()
	ld := s.Def.(*ListDef)
	mem, _ := s.Allocate()
	list := ld.VTable.InitInPlaceWithCapacity(mem, 2)
	for _, v := range []string{"x", "y"} {
		item := v
		ld.VTable.Push(list, ptr.MutFrom(&item))
		if item != "" {
			t.Error("Push must move the item")
		}
	}
	if ld.VTable.Len(list.AsConst()) != 2 {
		t.Fatalf("Len = %d", ld.VTable.Len(list.AsConst()))
	}
	view := ld.VTable.AsSlice(list.AsConst())
	sl := SliceOf(Of[string]())
	if !sl.Layout.Unsized {
		t.Error("slice view must be unsized")
	}
	if _, err := sl.Allocate(); err == nil {
		t.Error("allocating an unsized shape must fail")
	}
	second, ok := sl.Def.(*SliceDef).VTable.ItemPtr(view, 1)
	if !ok || ptr.Read[string](second) != "y" {
		t.Error("slice view addresses the wrong element")
	}
}

func TestTypeNames(t *testing.T) {
	tests := []struct {
		shape *Shape
		want  string
	}{
		{Of[[]string](), "[]string"},
		{Of[map[string][]int](), "map[string][]int"},
		{Of[*person](), "*person"},
		{Of[[3]uint8](), "[3]uint8"},
		{SliceOf(Of[int]()), "[int]"},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := tc.shape.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}

	var b strings.Builder
	Of[map[string][]int]().WriteTypeName(&b, TypeNameOpts{RecurseTTL: 0})
	if b.String() != "map[…]…" {
		t.Errorf("exhausted budget = %q", b.String())
	}
}

func TestRenameRules(t *testing.T) {
	tests := []struct {
		rule RenameRule
		in   string
		want string
	}{
		{RenameSnakeCase, "UserID", "user_id"},
		{RenameSnakeCase, "HTTPServer", "http_server"},
		{RenameCamelCase, "UserName", "userName"},
		{RenameKebabCase, "MaxRetryCount", "max-retry-count"},
		{RenameScreamingSnakeCase, "apiKey", "API_KEY"},
		{RenamePascalCase, "user_name", "UserName"},
		{RenameLowercase, "UserName", "username"},
		{RenameNone, "UserName", "UserName"},
	}
	for _, tc := range tests {
		t.Run(string(tc.rule)+"/"+tc.in, func(t *testing.T) {
			if got := tc.rule.Apply(tc.in); got != tc.want {
				t.Errorf("Apply(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestVTableView(t *testing.T) {
	v := ViewOf[int]()
	a, b := 3, 4
	if c, ok := v.Ord(&a, &b); !ok || c != -1 {
		t.Errorf("Ord = %d, %v", c, ok)
	}
	n, ok, err := v.Parse("12")
	if !ok || err != nil || n != 12 {
		t.Errorf("Parse = %d, %v, %v", n, ok, err)
	}
	if _, ok := ViewOf[func()]().Eq(nil, nil); ok {
		t.Error("funcs have no equality")
	}
}

func roundTrip[T any](t *testing.T, v T, same func(a, b T) bool) {
	t.Helper()
	s := Of[T]()
	var buf bytes.Buffer
	if err := s.VTable.Display(ptr.ConstFrom(&v), &buf); err != nil {
		t.Fatalf("Display(%v): %v", v, err)
	}
	var got T
	if _, err := s.VTable.Parse(buf.String(), ptr.UninitOf(ptr.MutFrom(&got).Raw())); err != nil {
		t.Fatalf("Parse(%q): %v", buf.String(), err)
	}
	if !same(got, v) {
		t.Errorf("%s: Parse(Display(%v)) = %v", s, v, got)
	}
}

func equal[T comparable](a, b T) bool { return a == b }

func TestScalarDisplayParse(t *testing.T) {
	for _, v := range []int8{math.MinInt8, -1, 0, math.MaxInt8} {
		roundTrip(t, v, equal)
	}
	for _, v := range []int16{math.MinInt16, math.MaxInt16} {
		roundTrip(t, v, equal)
	}
	for _, v := range []int32{math.MinInt32, math.MaxInt32} {
		roundTrip(t, v, equal)
	}
	for _, v := range []int64{math.MinInt64, math.MaxInt64} {
		roundTrip(t, v, equal)
	}
	for _, v := range []int{math.MinInt, math.MaxInt} {
		roundTrip(t, v, equal)
	}
	for _, v := range []uint8{0, math.MaxUint8} {
		roundTrip(t, v, equal)
	}
	for _, v := range []uint16{0, math.MaxUint16} {
		roundTrip(t, v, equal)
	}
	for _, v := range []uint32{0, math.MaxUint32} {
		roundTrip(t, v, equal)
	}
	for _, v := range []uint64{0, math.MaxUint64} {
		roundTrip(t, v, equal)
	}
	for _, v := range []uint{0, math.MaxUint} {
		roundTrip(t, v, equal)
	}

	sameBits64 := func(a, b float64) bool { return math.Float64bits(a) == math.Float64bits(b) }
	for _, v := range []float64{0.1, math.Copysign(0, -1), math.SmallestNonzeroFloat64, math.MaxFloat64, -math.MaxFloat64, math.Inf(1)} {
		roundTrip(t, v, sameBits64)
	}
	sameBits32 := func(a, b float32) bool { return math.Float32bits(a) == math.Float32bits(b) }
	for _, v := range []float32{0.1, float32(math.Copysign(0, -1)), math.SmallestNonzeroFloat32, math.MaxFloat32} {
		roundTrip(t, v, sameBits32)
	}

	for _, v := range []bool{true, false} {
		roundTrip(t, v, equal)
	}
	for _, v := range []string{"", "héllo\n", "\x00"} {
		roundTrip(t, v, equal)
	}
	for _, v := range []time.Duration{0, -time.Nanosecond, 90*time.Minute + time.Millisecond} {
		roundTrip(t, v, equal)
	}
	roundTrip(t, time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC), time.Time.Equal)
}

func TestBuilderRequiresMandatoryParts(t *testing.T) {
	base := Of[uint8]()
	tests := []struct {
		name  string
		build func() *Builder
		want  string
	}{
		{"id", func() *Builder {
			return NewBuilder().Layout(base.Layout).VTable(base.VTable).Def(base.Def)
		}, "id"},
		{"layout", func() *Builder {
			return NewBuilder().ID(base.ID).VTable(base.VTable).Def(base.Def)
		}, "layout"},
		{"vtable", func() *Builder {
			return NewBuilder().ID(base.ID).Layout(base.Layout).Def(base.Def)
		}, "vtable"},
		{"def", func() *Builder {
			return NewBuilder().ID(base.ID).Layout(base.Layout).VTable(base.VTable)
		}, "def"},
		{"empty", NewBuilder, "id"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := tc.build()
			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("Build must panic")
				}
				if msg, _ := r.(string); !strings.Contains(msg, tc.want+" is required") {
					t.Errorf("panic = %v", r)
				}
			}()
			b.Build()
		})
	}

	s := NewBuilder().ID(base.ID).Layout(base.Layout).VTable(base.VTable).Def(base.Def).Build()
	if !s.Is(base) {
		t.Error("complete builder must produce a shape with the given identity")
	}
}

func TestMapInsertDropsReplaced(t *testing.T) {
	n := 0
	m := map[string]dropCounter{}
	md := Of[map[string]dropCounter]().Def.(*MapDef)
	for i := 0; i < 2; i++ {
		k, v := "a", dropCounter{&n}
		md.VTable.Insert(ptr.MutFrom(&m), ptr.MutFrom(&k), ptr.MutFrom(&v))
	}
	if n != 1 || len(m) != 1 {
		t.Fatalf("after overwrite: drops = %d, len = %d", n, len(m))
	}
	DropInPlace(Of[map[string]dropCounter](), ptr.MutFrom(&m))
	if n != 2 {
		t.Errorf("total drops = %d, want 2", n)
	}

	keys := 0
	km := map[dropCounter]int{}
	kmd := Of[map[dropCounter]int]().Def.(*MapDef)
	for i := 0; i < 2; i++ {
		k, v := dropCounter{&keys}, i
		kmd.VTable.Insert(ptr.MutFrom(&km), ptr.MutFrom(&k), ptr.MutFrom(&v))
	}
	if keys != 1 || km[dropCounter{&keys}] != 1 {
		t.Errorf("equal key: drops = %d, map = %v", keys, km)
	}
}
