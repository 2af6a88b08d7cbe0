// Package pretty renders reflected values and shapes as indented, optionally colored text.
//
//	fmt.Println(pretty.Sprint(&cfg))
//
// Fields marked sensitive are printed as [redacted]. Colors come from lipgloss and are
// only emitted when Options.Color is set and the destination supports them.
package pretty

import (
	"encoding/hex"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/go-facet/peek"
	"github.com/wippyai/go-facet/shape"
)

const redacted = "[redacted]"

// Options control rendering.
type Options struct {
	// Color styles the output. Terminals that report no color support still get plain text.
	Color bool

	// Indent is the number of spaces per nesting level.
	Indent int

	// MaxDepth stops descending after this many levels; 0 means unlimited.
	MaxDepth int
}

func DefaultOptions() Options {
	return Options{Indent: 2}
}

// ColorEnabled reports whether w is a terminal that should receive colors.
// NO_COLOR in the environment turns colors off.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Format renders the value behind p.
func Format(p peek.Peek, opts Options) string {
	pr := newPrinter(lipgloss.DefaultRenderer(), opts)
	pr.value(p, 0)
	return pr.b.String()
}

// Fprint renders the value behind p to w, followed by a newline.
func Fprint(w io.Writer, p peek.Peek, opts Options) error {
	pr := newPrinter(lipgloss.NewRenderer(w), opts)
	pr.value(p, 0)
	pr.b.WriteByte('\n')
	_, err := io.WriteString(w, pr.b.String())
	return err
}

// Sprint renders *v with the default options.
func Sprint[T any](v *T) string {
	return Format(peek.New(v), DefaultOptions())
}

type printer struct {
	opts Options
	st   styles
	b    strings.Builder
}

func newPrinter(r *lipgloss.Renderer, opts Options) *printer {
	if opts.Indent <= 0 {
		opts.Indent = 2
	}
	return &printer{opts: opts, st: newStyles(r)}
}

func (p *printer) paint(s lipgloss.Style, text string) string {
	if !p.opts.Color {
		return text
	}
	return s.Render(text)
}

func (p *printer) write(s lipgloss.Style, text string) {
	p.b.WriteString(p.paint(s, text))
}

func (p *printer) newline(depth int) {
	p.b.WriteByte('\n')
	p.b.WriteString(strings.Repeat(" ", depth*p.opts.Indent))
}

func (p *printer) value(v peek.Peek, depth int) {
	if p.opts.MaxDepth > 0 && depth > p.opts.MaxDepth {
		p.write(p.st.punct, "...")
		return
	}
	s := v.Shape()
	switch def := s.Def.(type) {
	case *shape.ScalarDef:
		p.scalar(v)

	case *shape.StructDef:
		st, _ := v.Struct()
		if s.IsTransparent() {
			f, _ := st.Field(0)
			p.value(f, depth)
			return
		}
		p.write(p.st.typ, s.String())
		p.fields(st, def, depth)

	case *shape.EnumDef:
		e, _ := v.Enum()
		p.enum(e, depth)

	case *shape.ListDef:
		l, _ := v.List()
		p.seq(l.Len(), l.Items(), depth)
	case *shape.SliceDef:
		sl, _ := v.Slice()
		p.seq(sl.Len(), sl.Items(), depth)
	case *shape.ArrayDef:
		a, _ := v.Array()
		p.seq(a.Len(), a.Items(), depth)

	case *shape.MapDef:
		m, _ := v.Map()
		p.entries(m, depth)

	case *shape.OptionDef:
		o, _ := v.Option()
		inner, ok := o.Value()
		if !ok {
			p.write(p.st.keyword, "None")
			return
		}
		p.write(p.st.keyword, "Some")
		p.write(p.st.punct, "(")
		p.value(inner, depth)
		p.write(p.st.punct, ")")

	case *shape.SmartPointerDef:
		sp, _ := v.SmartPointer()
		inner, release, err := sp.Read()
		if err != nil {
			p.write(p.st.err, "<"+err.Error()+">")
			return
		}
		defer release()
		p.value(inner, depth)

	default:
		p.write(p.st.typ, v.String())
	}
}

func (p *printer) scalar(v peek.Peek) {
	sc, _ := v.Scalar()
	switch {
	case sc.IsString():
		x, _ := sc.Value()
		s, _ := x.(string)
		p.write(p.st.str, strconv.Quote(s))
	case sc.IsBytes():
		x, _ := sc.Value()
		b, _ := x.([]byte)
		p.write(p.st.num, "0x"+hex.EncodeToString(b))
	case sc.IsNumber(), sc.IsBool():
		p.write(p.st.num, v.String())
	default:
		p.write(p.st.str, v.String())
	}
}

func (p *printer) fields(st peek.Struct, def *shape.StructDef, depth int) {
	switch def.Kind {
	case shape.StructKindUnit:
		return
	case shape.StructKindTuple, shape.StructKindTupleStruct:
		p.write(p.st.punct, "(")
		i := 0
		for _, f := range st.Fields() {
			if i > 0 {
				p.write(p.st.punct, ", ")
			}
			p.value(f, depth+1)
			i++
		}
		p.write(p.st.punct, ")")
		return
	}
	if len(def.Fields) == 0 {
		p.write(p.st.punct, " {}")
		return
	}
	p.write(p.st.punct, " {")
	for fd, f := range st.Fields() {
		p.newline(depth + 1)
		p.write(p.st.field, fd.Name)
		p.write(p.st.punct, ": ")
		if fd.Flags.Has(shape.FieldSensitive) {
			p.write(p.st.err, redacted)
		} else {
			p.value(f, depth+1)
		}
		p.write(p.st.punct, ",")
	}
	p.newline(depth)
	p.write(p.st.punct, "}")
}

func (p *printer) enum(e peek.Enum, depth int) {
	v, err := e.Variant()
	if err != nil {
		p.write(p.st.err, "<"+e.Shape().String()+": no variant>")
		return
	}
	if len(v.Data.Fields) == 0 {
		p.write(p.st.keyword, v.Name)
		return
	}
	payload, _ := e.Payload()
	p.write(p.st.keyword, v.Name)
	if v.Data.Kind == shape.StructKindTupleStruct && len(v.Data.Fields) == 1 {
		f, _ := payload.Field(0)
		p.write(p.st.punct, "(")
		p.value(f, depth)
		p.write(p.st.punct, ")")
		return
	}
	p.fields(payload, v.Data, depth)
}

func (p *printer) seq(n int, items iter.Seq2[int, peek.Peek], depth int) {
	if n == 0 {
		p.write(p.st.punct, "[]")
		return
	}
	p.write(p.st.punct, "[")
	for _, item := range items {
		p.newline(depth + 1)
		p.value(item, depth+1)
		p.write(p.st.punct, ",")
	}
	p.newline(depth)
	p.write(p.st.punct, "]")
}

func (p *printer) entries(m peek.Map, depth int) {
	if m.Len() == 0 {
		p.write(p.st.punct, "{}")
		return
	}
	p.write(p.st.punct, "{")
	for k, v := range m.Entries() {
		p.newline(depth + 1)
		p.value(k, depth+1)
		p.write(p.st.punct, ": ")
		p.value(v, depth+1)
		p.write(p.st.punct, ",")
	}
	p.newline(depth)
	p.write(p.st.punct, "}")
}
