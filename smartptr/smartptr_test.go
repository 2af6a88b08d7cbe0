package smartptr

import (
	"bytes"
	"testing"

	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

type tracked struct {
	drops *int
}

func (t *tracked) Drop() { *t.drops++ }

func TestBoxShape(t *testing.T) {
	s := shape.Of[Box[int]]()
	sp, ok := s.Def.(*shape.SmartPointerDef)
	if !ok {
		t.Fatalf("Box def = %s", s.Def.DefKind())
	}
	if sp.Known != shape.KnownBox || !shape.IsType[int](sp.Pointee()) {
		t.Errorf("unexpected smart pointer def: %+v", sp)
	}
	if s.String() != "Box[int]" {
		t.Errorf("String() = %q", s.String())
	}

	b := NewBox(7)
	p, ok := sp.VTable.Borrow(ptr.ConstFrom(&b))
	if !ok || ptr.Read[int](p) != 7 {
		t.Errorf("Borrow = %v, %v", p, ok)
	}

	var buf bytes.Buffer
	if err := s.VTable.Debug(ptr.ConstFrom(&b), &buf); err != nil || buf.String() != "Box(7)" {
		t.Errorf("Debug = %q, %v", buf.String(), err)
	}
}

func TestBoxNewIntoMoves(t *testing.T) {
	sp := shape.Of[Box[string]]().Def.(*shape.SmartPointerDef)
	v := "hello"
	var b Box[string]
	sp.VTable.NewInto(ptr.UninitOf(ptr.MutFrom(&b).Raw()), ptr.MutFrom(&v))
	if v != "" {
		t.Error("NewInto must move the value")
	}
	if b.Get() == nil || *b.Get() != "hello" {
		t.Errorf("box holds %v", b.Get())
	}
}

func TestBoxCloneIsDeep(t *testing.T) {
	vt := shape.Of[Box[[]int]]().VTable
	src := NewBox([]int{1, 2})
	var dst Box[[]int]
	vt.CloneInto(ptr.ConstFrom(&src), ptr.UninitOf(ptr.MutFrom(&dst).Raw()))
	(*src.Get())[0] = 9
	if (*dst.Get())[0] != 1 {
		t.Error("clone shares the pointee")
	}
	if vt.Eq(ptr.ConstFrom(&src), ptr.ConstFrom(&dst)) {
		t.Error("diverged boxes must not be equal")
	}
}

func TestBoxDropsPointee(t *testing.T) {
	n := 0
	b := NewBox(tracked{drops: &n})
	if !shape.DropInPlace(shape.Of[Box[tracked]](), ptr.MutFrom(&b)) {
		t.Fatal("Box[tracked] must have drop glue")
	}
	if n != 1 {
		t.Errorf("drops = %d, want 1", n)
	}
	if !b.IsEmpty() {
		t.Error("dropped box must be empty")
	}
}

func TestSharedRefCount(t *testing.T) {
	n := 0
	a := NewShared(tracked{drops: &n})
	b := a.Clone()
	if a.StrongCount() != 2 {
		t.Fatalf("StrongCount = %d", a.StrongCount())
	}

	s := shape.Of[Shared[tracked]]()
	shape.DropInPlace(s, ptr.MutFrom(&a))
	if n != 0 {
		t.Fatal("value dropped while a strong handle remains")
	}
	if b.StrongCount() != 1 {
		t.Errorf("StrongCount = %d", b.StrongCount())
	}
	b.Drop()
	if n != 1 {
		t.Errorf("drops = %d, want 1", n)
	}
}

func TestWeakUpgrade(t *testing.T) {
	s := NewShared(42)
	w := s.Downgrade()

	up, ok := w.Upgrade()
	if !ok || *up.Get() != 42 {
		t.Fatalf("Upgrade = %v, %v", up.Get(), ok)
	}
	up.Drop()
	s.Drop()

	if _, ok := w.Upgrade(); ok {
		t.Error("upgrade after the last strong handle must fail")
	}

	sp := shape.Of[Weak[int]]().Def.(*shape.SmartPointerDef)
	if !sp.Flags.Has(shape.SmartPointerWeak) || sp.Strong == nil || !shape.IsType[Shared[int]](sp.Strong()) {
		t.Errorf("unexpected weak def: %+v", sp)
	}
}

func TestLockedTryLock(t *testing.T) {
	l := NewLocked(3)
	sp := shape.Of[Locked[int]]().Def.(*shape.SmartPointerDef)

	g, err := sp.VTable.TryWrite(ptr.ConstFrom(&l))
	if err != nil {
		t.Fatalf("TryWrite: %v", err)
	}
	*ptr.GetMut[int](g.Data) = 4

	if _, err := sp.VTable.TryRead(ptr.ConstFrom(&l)); err == nil {
		t.Error("read must fail while the write lock is held")
	}
	g.Unlock()

	r, err := sp.VTable.TryRead(ptr.ConstFrom(&l))
	if err != nil {
		t.Fatalf("TryRead: %v", err)
	}
	defer r.Unlock()
	if ptr.Read[int](r.Data.AsConst()) != 4 {
		t.Error("write through the guard was lost")
	}
}
