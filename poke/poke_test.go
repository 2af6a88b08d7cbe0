package poke

import (
	"strings"
	"sync/atomic"
	"testing"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
	"github.com/wippyai/go-facet/smartptr"
)

type counted struct {
	n *atomic.Int64
}

func (c *counted) Drop() {
	if c.n != nil {
		c.n.Add(1)
	}
}

type triple struct {
	A counted
	B counted
	C counted
}

type account struct {
	Name   string
	ID     uint64
	Active bool
	Note   *string
	Limit  int32 `facet:",default"`
}

type payment struct {
	_    struct{} `facet:",oneof"`
	Card *struct{ Number string }
	Cash *uint32
}

type positive struct {
	N int
}

func (p *positive) Validate() error {
	if p.N <= 0 {
		return errors.InvalidData(errors.PhaseBuild, nil, "must be positive")
	}
	return nil
}

func allocStruct[T any](t *testing.T) (*Struct, *Guard) {
	t.Helper()
	u, g, err := AllocType[T]()
	if err != nil {
		t.Fatalf("AllocType: %v", err)
	}
	s, err := u.Struct()
	if err != nil {
		t.Fatalf("Struct: %v", err)
	}
	return s, g
}

func TestAbandonDropsOnlySetFields(t *testing.T) {
	var drops atomic.Int64
	s, g := allocStruct[triple](t)

	if err := Set(s, 0, counted{n: &drops}); err != nil {
		t.Fatalf("Set A: %v", err)
	}
	if err := SetByName(s, "C", counted{n: &drops}); err != nil {
		t.Fatalf("Set C: %v", err)
	}
	s.Release()
	if err := g.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}

	if got := drops.Load(); got != 2 {
		t.Errorf("drops = %d, want 2", got)
	}
}

func TestFullLifecycleDropsEachFieldOnce(t *testing.T) {
	var drops atomic.Int64
	s, g := allocStruct[triple](t)
	for i := 0; i < 3; i++ {
		if err := Set(s, i, counted{n: &drops}); err != nil {
			t.Fatalf("Set %d: %v", i, err)
		}
	}

	v, err := Build[triple](s, g)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s.Release()
	if got := drops.Load(); got != 0 {
		t.Fatalf("drops after build = %d, want 0", got)
	}

	shape.DropInPlace(shape.Of[triple](), ptr.MutFrom(&v))
	if got := drops.Load(); got != 3 {
		t.Errorf("drops = %d, want 3", got)
	}
}

func TestRefillDropsOldValue(t *testing.T) {
	var drops atomic.Int64
	s, g := allocStruct[triple](t)
	defer g.Free()

	Set(s, 1, counted{n: &drops})
	Set(s, 1, counted{n: &drops})
	if got := drops.Load(); got != 1 {
		t.Errorf("drops after refill = %d, want 1", got)
	}
	if !s.IsFieldSet(1) || s.ISet().Count() != 1 {
		t.Errorf("refill must leave exactly one bit set, got %v", s.ISet().Indices())
	}

	s.Release()
	if got := drops.Load(); got != 2 {
		t.Errorf("drops after release = %d, want 2", got)
	}
}

func TestFieldByIndexUnsetsFilledField(t *testing.T) {
	var drops atomic.Int64
	s, g := allocStruct[triple](t)
	defer g.Free()

	Set(s, 0, counted{n: &drops})
	u, err := s.FieldByIndex(0)
	if err != nil {
		t.Fatalf("FieldByIndex: %v", err)
	}
	if s.IsFieldSet(0) || drops.Load() != 1 {
		t.Fatal("reopening a field drops it and clears its bit")
	}
	ptr.Put(u.Data(), counted{n: &drops})
	s.AssumeFieldInit(0)
	s.Release()
	if got := drops.Load(); got != 2 {
		t.Errorf("drops = %d, want 2", got)
	}
}

func TestBuildMissingField(t *testing.T) {
	s, g := allocStruct[triple](t)
	defer g.Free()
	Set(s, 0, counted{})
	Set(s, 2, counted{})

	_, err := s.BuildInPlace()
	if !errors.IsKind(err, errors.KindFieldMissing) {
		t.Fatalf("BuildInPlace error = %v, want field_missing", err)
	}
	if !strings.Contains(err.Error(), `"B"`) {
		t.Errorf("error should name the missing field: %v", err)
	}
	s.Release()
}

func TestTypeMismatchNamesBothShapes(t *testing.T) {
	s, g := allocStruct[account](t)
	defer g.Free()
	defer s.Release()

	err := SetByName(s, "ID", "thirty")
	if !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Fatalf("error = %v, want type_mismatch", err)
	}
	var e *errors.Error
	if !errors.As(err, &e) {
		t.Fatal("want *errors.Error")
	}
	if len(e.Expected) != 1 || e.Expected[0] != "uint64" || e.Actual != "string" {
		t.Errorf("expected=%v actual=%q", e.Expected, e.Actual)
	}
	if s.IsFieldSet(1) {
		t.Error("a failed write must not mark the field set")
	}
}

func TestSetConvertsNumbers(t *testing.T) {
	s, g := allocStruct[account](t)
	if err := SetByName(s, "ID", int8(30)); err != nil {
		t.Fatalf("int8 into uint64: %v", err)
	}
	if err := SetByName(s, "ID", int64(-1)); !errors.IsKind(err, errors.KindOverflow) {
		t.Errorf("negative into uint64 = %v, want overflow", err)
	}
	SetByName(s, "Name", "Alice")
	SetByName(s, "Active", true)
	if err := s.FillDefaults(); err != nil {
		t.Fatalf("FillDefaults: %v", err)
	}
	v, err := Build[account](s, g)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if v.ID != 30 || v.Name != "Alice" || v.Note != nil || v.Limit != 0 {
		t.Errorf("built %+v", v)
	}
}

func TestFillDefaultsMissing(t *testing.T) {
	s, g := allocStruct[account](t)
	defer g.Free()
	defer s.Release()

	err := s.FillDefaults()
	if !errors.IsKind(err, errors.KindFieldMissing) {
		t.Fatalf("FillDefaults = %v, want field_missing for Name", err)
	}
	if s.IsFieldSet(0) {
		t.Error("Name has no default")
	}
}

func TestParseField(t *testing.T) {
	tests := []struct {
		field string
		text  string
		check func(account) bool
	}{
		{"Name", "Bob", func(a account) bool { return a.Name == "Bob" }},
		{"ID", "42", func(a account) bool { return a.ID == 42 }},
		{"Active", "", func(a account) bool { return a.Active }},
		{"Active", "false", func(a account) bool { return !a.Active }},
	}

	for _, tc := range tests {
		t.Run(tc.field+"="+tc.text, func(t *testing.T) {
			s, g := allocStruct[account](t)
			if err := s.ParseField(tc.field, tc.text); err != nil {
				t.Fatalf("ParseField: %v", err)
			}
			for i := 0; i < s.FieldCount(); i++ {
				if !s.IsFieldSet(i) {
					u, _ := s.FieldByIndex(i)
					u.Shape().VTable.DefaultInPlace(u.Data())
					s.AssumeFieldInit(i)
				}
			}
			v, err := Build[account](s, g)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if !tc.check(v) {
				t.Errorf("unexpected value %+v", v)
			}
		})
	}
}

func TestParseFieldErrors(t *testing.T) {
	s, g := allocStruct[account](t)
	defer g.Free()
	defer s.Release()

	if err := s.ParseField("ID", "x"); !errors.IsKind(err, errors.KindInvalidData) {
		t.Errorf("bad number = %v, want invalid_data", err)
	}
	if err := s.ParseField("Missing", "1"); !errors.IsKind(err, errors.KindFieldUnknown) {
		t.Errorf("unknown field = %v, want field_unknown", err)
	}
}

func TestParseFieldPanicsWithoutParse(t *testing.T) {
	type bag struct{ Counts map[string]int }
	s, g := allocStruct[bag](t)
	defer g.Free()
	defer func() {
		if recover() == nil {
			t.Error("a field with no parse path must panic")
		}
	}()
	s.ParseField("Counts", "x")
}

func TestInvariantsCheckedAtBuild(t *testing.T) {
	s, g := allocStruct[positive](t)
	defer g.Free()
	Set(s, 0, 0)
	if _, err := s.BuildInPlace(); !errors.IsKind(err, errors.KindInvariant) {
		t.Fatalf("BuildInPlace = %v, want invariant", err)
	}
	Set(s, 0, 5)
	if _, err := s.BuildInPlace(); err != nil {
		t.Fatalf("BuildInPlace: %v", err)
	}
}

func TestBuildWrongShape(t *testing.T) {
	s, g := allocStruct[account](t)
	defer g.Free()
	if _, err := Build[triple](s, g); !errors.IsKind(err, errors.KindWrongShape) {
		t.Errorf("Build = %v, want wrong_shape", err)
	}
}

func TestIntoKinds(t *testing.T) {
	tests := []struct {
		shape *shape.Shape
		want  string
	}{
		{shape.Of[account](), "*poke.Struct"},
		{shape.Of[payment](), "*poke.Enum"},
		{shape.Of[[]int](), "*poke.List"},
		{shape.Of[map[string]int](), "*poke.Map"},
		{shape.Of[*int](), "*poke.Option"},
		{shape.Of[smartptr.Box[int]](), "*poke.SmartPointer"},
		{shape.Of[float64](), "*poke.Value"},
	}
	for _, tc := range tests {
		t.Run(tc.shape.String(), func(t *testing.T) {
			u, g, err := Alloc(tc.shape)
			if err != nil {
				t.Fatalf("Alloc: %v", err)
			}
			defer g.Free()
			p := u.Into()
			if got := typeName(p); got != tc.want {
				t.Errorf("Into = %s, want %s", got, tc.want)
			}
		})
	}
}

func typeName(p Poke) string {
	switch p.(type) {
	case *Struct:
		return "*poke.Struct"
	case *Enum:
		return "*poke.Enum"
	case *List:
		return "*poke.List"
	case *Map:
		return "*poke.Map"
	case *Option:
		return "*poke.Option"
	case *SmartPointer:
		return "*poke.SmartPointer"
	case *Value:
		return "*poke.Value"
	}
	return "unknown"
}

func TestListPush(t *testing.T) {
	u, g, _ := AllocType[[]uint16]()
	l, err := u.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if err := Push(l, uint16(1)); !errors.IsKind(err, errors.KindNotInitialized) {
		t.Fatalf("push before init = %v", err)
	}
	l.InitWithCapacity(2)
	Push(l, uint16(1))
	Push(l, 2)
	if err := Push(l, "three"); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("string into []uint16 = %v, want type_mismatch", err)
	}
	m, err := l.BuildInPlace()
	if err != nil {
		t.Fatalf("BuildInPlace: %v", err)
	}
	got := *ptr.GetMut[[]uint16](m)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("list = %v", got)
	}
	g.Free()
}

func TestMapInsert(t *testing.T) {
	u, g, _ := AllocType[map[string]int64]()
	defer g.Free()
	mp, _ := u.Map()
	mp.InitWithCapacity(0)
	Insert(mp, "a", int64(1))
	Insert(mp, "b", int8(2))
	Insert(mp, "a", int64(3))
	if err := Insert(mp, 1, int64(1)); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("int key = %v, want type_mismatch", err)
	}
	if mp.Len() != 2 {
		t.Errorf("Len = %d, want 2", mp.Len())
	}
	m, _ := mp.BuildInPlace()
	got := *ptr.GetMut[map[string]int64](m)
	if got["a"] != 3 || got["b"] != 2 {
		t.Errorf("map = %v", got)
	}
}

func TestEnumVariants(t *testing.T) {
	u, g, _ := AllocType[payment]()
	e, err := u.Enum()
	if err != nil {
		t.Fatalf("Enum: %v", err)
	}
	if _, err := e.SetVariantByName("Cheque"); !errors.IsKind(err, errors.KindInvalidVariant) {
		t.Errorf("unknown variant = %v", err)
	}

	card, err := e.SetVariantByName("card")
	if err != nil {
		t.Fatalf("select card: %v", err)
	}
	SetByName(card, "Number", "4242")

	cash, err := e.SetVariantByIndex(1)
	if err != nil {
		t.Fatalf("select cash: %v", err)
	}
	if err := Set(cash, 0, uint32(12)); err != nil {
		t.Fatalf("Set cash: %v", err)
	}

	v, err := BuildEnum[payment](e, g)
	if err != nil {
		t.Fatalf("BuildEnum: %v", err)
	}
	if v.Card != nil || v.Cash == nil || *v.Cash != 12 {
		t.Errorf("payment = %+v", v)
	}
}

func TestEnumMissingPayloadField(t *testing.T) {
	u, g, _ := AllocType[payment]()
	defer g.Free()
	e, _ := u.Enum()
	e.SetVariantByIndex(0)
	if _, err := e.BuildInPlace(); !errors.IsKind(err, errors.KindFieldMissing) {
		t.Errorf("BuildInPlace = %v, want field_missing", err)
	}
	e.Release()
}

func TestOption(t *testing.T) {
	u, g, _ := AllocType[*string]()
	o, _ := u.Option()
	if err := PutSome(o, 7); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("int into *string = %v", err)
	}
	o.PutNone()
	PutSome(o, "hi")
	m, err := o.BuildInPlace()
	if err != nil {
		t.Fatalf("BuildInPlace: %v", err)
	}
	got := *ptr.GetMut[*string](m)
	if got == nil || *got != "hi" {
		t.Errorf("option = %v", got)
	}
	g.Free()
}

func TestSmartPointer(t *testing.T) {
	u, g, _ := AllocType[smartptr.Locked[int]]()
	sp, _ := u.SmartPointer()
	if _, err := sp.TryWrite(); !errors.IsKind(err, errors.KindNotInitialized) {
		t.Errorf("TryWrite before NewFrom = %v", err)
	}
	if err := NewFrom(sp, 5); err != nil {
		t.Fatalf("NewFrom: %v", err)
	}

	lg, err := sp.TryWrite()
	if err != nil {
		t.Fatalf("TryWrite: %v", err)
	}
	if _, err := sp.TryWrite(); !errors.IsKind(err, errors.KindUnavailable) {
		t.Errorf("second TryWrite = %v, want unavailable", err)
	}
	*ptr.GetMut[int](lg.Data) = 6
	lg.Unlock()

	m, _ := sp.BuildInPlace()
	l := ptr.GetMut[smartptr.Locked[int]](m)
	v, unlock, ok := l.TryRead()
	if !ok {
		t.Fatal("TryRead after unlock")
	}
	if *v != 6 {
		t.Errorf("pointee = %d, want 6", *v)
	}
	unlock()
	g.Free()
}

func TestValue(t *testing.T) {
	u, g, _ := AllocType[uint8]()
	defer g.Free()
	v := u.Value()
	if err := v.Parse("300"); err == nil {
		t.Error("300 does not fit uint8")
	}
	if err := v.Parse("200"); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := Put(v, int64(7)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	m, _ := v.BuildInPlace()
	if got := *ptr.GetMut[uint8](m); got != 7 {
		t.Errorf("value = %d", got)
	}
}

func TestValueClone(t *testing.T) {
	src := []string{"a", "b"}
	u, g, _ := AllocType[[]string]()
	defer g.Free()
	v := u.Value()
	if err := v.Clone(ptr.ConstFrom(&src), shape.Of[[]string]()); err != nil {
		t.Fatalf("Clone: %v", err)
	}
	m, _ := v.BuildInPlace()
	got := *ptr.GetMut[[]string](m)
	src[0] = "z"
	if got[0] != "a" {
		t.Error("clone must not share storage")
	}
}

func TestGuardFreeTwice(t *testing.T) {
	_, g, _ := AllocType[account]()
	if err := g.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := g.Free(); !errors.IsKind(err, errors.KindInvalidState) {
		t.Errorf("second Free = %v, want invalid_state", err)
	}

	_, z, _ := AllocType[struct{}]()
	if z.Layout().Size != 0 || z.Free() != nil {
		t.Error("zero-size guards free without touching memory")
	}
}
