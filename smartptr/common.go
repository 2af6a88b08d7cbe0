package smartptr

import (
	"fmt"
	"io"
	"strings"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

func typeName(base string, pointee func() *shape.Shape) func(*strings.Builder, shape.TypeNameOpts) {
	return func(b *strings.Builder, opts shape.TypeNameOpts) {
		b.WriteString(base)
		child, ok := opts.ForChildren()
		if !ok {
			b.WriteString("[…]")
			return
		}
		b.WriteByte('[')
		pointee().WriteTypeName(b, child)
		b.WriteByte(']')
	}
}

// debugPointee writes base(pointee) using the pointee's Debug, or base(<empty>) when p is nil.
func debugPointee(w io.Writer, base string, s *shape.Shape, p ptr.Const) error {
	if p.IsNil() {
		_, err := fmt.Fprintf(w, "%s(<empty>)", base)
		return err
	}
	if _, err := io.WriteString(w, base+"("); err != nil {
		return err
	}
	if s.VTable.Debug != nil {
		if err := s.VTable.Debug(p, w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ")")
	return err
}

func displayPointee(w io.Writer, s *shape.Shape, p ptr.Const) error {
	if s.VTable.Display == nil {
		return errors.Unavailable(errors.PhasePeek, s.String(), "display")
	}
	if p.IsNil() {
		return errors.NilPointer(errors.PhasePeek, nil, s.String())
	}
	return s.VTable.Display(p, w)
}

// newPointee allocates a T holding the pointee's default, or its zero value.
func newPointee[T any](s *shape.Shape) *T {
	v := new(T)
	if s.VTable.DefaultInPlace != nil {
		s.VTable.DefaultInPlace(ptr.UninitOf(ptr.MutFrom(v).Raw()))
	}
	return v
}

// clonePointee deep-copies src through the pointee's clone.
func clonePointee[T any](s *shape.Shape, src *T) *T {
	if src == nil {
		return nil
	}
	v := new(T)
	s.VTable.CloneInto(ptr.ConstFrom(src), ptr.UninitOf(ptr.MutFrom(v).Raw()))
	return v
}

func eqPointee[T any](s *shape.Shape, a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return s.VTable.Eq(ptr.ConstFrom(a), ptr.ConstFrom(b))
}

func unsupported(src, want *shape.Shape) error {
	return errors.UnsupportedSource(src.String(), want.String())
}
