package facet

import (
	"testing"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/wip"
)

type server struct {
	Name  string
	Port  uint16
	Hosts []string
}

func TestBuild(t *testing.T) {
	got, err := Build[server](func(w *wip.Wip) error {
		if err := w.FieldNamed("Name"); err != nil {
			return err
		}
		if err := wip.Put(w, "api"); err != nil {
			return err
		}
		if err := w.Pop(); err != nil {
			return err
		}
		if err := w.FieldNamed("Port"); err != nil {
			return err
		}
		if err := wip.Put(w, uint16(8080)); err != nil {
			return err
		}
		if err := w.Pop(); err != nil {
			return err
		}
		if err := w.FieldNamed("Hosts"); err != nil {
			return err
		}
		if err := w.BeginPushback(); err != nil {
			return err
		}
		return w.Pop()
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got.Name != "api" || got.Port != 8080 || len(got.Hosts) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestBuildMissingField(t *testing.T) {
	_, err := Build[server](func(w *wip.Wip) error {
		if err := w.FieldNamed("Name"); err != nil {
			return err
		}
		if err := wip.Put(w, "api"); err != nil {
			return err
		}
		return w.Pop()
	})
	if err == nil {
		t.Fatal("expected an error for unset fields")
	}
}

func TestBuildFillError(t *testing.T) {
	_, err := Build[server](func(w *wip.Wip) error {
		return w.FieldNamed("Missing")
	})
	if !errors.IsKind(err, errors.KindFieldUnknown) {
		t.Fatalf("got %v", err)
	}
}

func TestClone(t *testing.T) {
	src := server{Name: "api", Port: 1, Hosts: []string{"a"}}
	dst, err := Clone(&src)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	dst.Hosts[0] = "b"
	if src.Hosts[0] != "a" {
		t.Fatal("clone shares its slice with the source")
	}
	if dst.Name != "api" || dst.Port != 1 {
		t.Fatalf("got %+v", dst)
	}
}

func TestPeek(t *testing.T) {
	v := server{Name: "x"}
	p := Peek(&v)
	if p.Shape() != Of[server]() {
		t.Fatal("shape mismatch")
	}
	st, err := p.Struct()
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for range st.Fields() {
		n++
	}
	if n != 3 {
		t.Fatalf("got %d fields", n)
	}
}
