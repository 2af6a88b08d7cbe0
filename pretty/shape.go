package pretty

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/go-facet/shape"
)

// FormatShape renders s and everything it reaches as a tree. Each shape is expanded once;
// later occurrences are marked as already printed.
func FormatShape(s *shape.Shape, opts Options) string {
	pr := newPrinter(lipgloss.DefaultRenderer(), opts)
	(&shapePrinter{printer: pr, seen: map[*shape.Shape]bool{}}).shape(s, 0)
	return pr.b.String()
}

// FprintShape writes the tree of s to w.
func FprintShape(w io.Writer, s *shape.Shape, opts Options) error {
	pr := newPrinter(lipgloss.NewRenderer(w), opts)
	(&shapePrinter{printer: pr, seen: map[*shape.Shape]bool{}}).shape(s, 0)
	_, err := io.WriteString(w, pr.b.String())
	return err
}

type shapePrinter struct {
	*printer
	seen map[*shape.Shape]bool
}

func (p *shapePrinter) pad(depth int) {
	p.b.WriteString(strings.Repeat(" ", depth*p.opts.Indent))
}

func (p *shapePrinter) line(depth int, s lipgloss.Style, text string) {
	p.pad(depth)
	p.write(s, text)
	p.b.WriteByte('\n')
}

// shape writes the header line for s at the current position, then its body below.
func (p *shapePrinter) shape(s *shape.Shape, depth int) {
	p.write(p.st.typ, s.String())
	_, scalar := s.Def.(*shape.ScalarDef)
	if p.seen[s] && !scalar {
		p.write(p.st.note, " (already printed)")
		p.b.WriteByte('\n')
		return
	}
	p.seen[s] = true
	if s.Layout.Unsized {
		p.write(p.st.punct, " (unsized)")
	} else {
		p.write(p.st.punct, fmt.Sprintf(" (%d bytes)", s.Layout.Size))
	}
	p.b.WriteByte('\n')
	if p.opts.MaxDepth > 0 && depth >= p.opts.MaxDepth {
		return
	}

	switch def := s.Def.(type) {
	case *shape.StructDef:
		if s.IsTransparent() {
			p.child(depth+1, "transparent wrapper for", def.Fields[0].Shape())
			return
		}
		p.fields(def.Fields, depth+1)

	case *shape.EnumDef:
		p.line(depth+1, p.st.note, fmt.Sprintf("enum with %d variants:", len(def.Variants)))
		for i := range def.Variants {
			v := &def.Variants[i]
			p.pad(depth + 2)
			p.write(p.st.keyword, v.Name)
			switch {
			case len(v.Data.Fields) == 0:
				p.write(p.st.punct, " = "+strconv.FormatInt(v.Discriminant, 10))
			case v.Data.Kind == shape.StructKindTupleStruct || v.Data.Kind == shape.StructKindTuple:
				p.write(p.st.punct, "("+strings.TrimSuffix(strings.Repeat("_, ", len(v.Data.Fields)), ", ")+")")
			default:
				names := make([]string, len(v.Data.Fields))
				for j := range v.Data.Fields {
					names[j] = v.Data.Fields[j].Name
				}
				p.write(p.st.punct, " { "+strings.Join(names, ", ")+" }")
			}
			p.b.WriteByte('\n')
			p.fields(v.Data.Fields, depth+3)
		}

	case *shape.ListDef:
		p.child(depth+1, "list of", def.T())
	case *shape.SliceDef:
		p.child(depth+1, "slice of", def.T())
	case *shape.ArrayDef:
		p.child(depth+1, fmt.Sprintf("array of %d", def.N), def.T())
	case *shape.MapDef:
		p.child(depth+1, "map from "+def.K().String()+" to", def.V())
	case *shape.OptionDef:
		p.child(depth+1, "option of", def.T())
	case *shape.SmartPointerDef:
		if def.Pointee != nil {
			p.child(depth+1, "pointer to", def.Pointee())
		}
	}
}

func (p *shapePrinter) child(depth int, label string, s *shape.Shape) {
	p.pad(depth)
	p.write(p.st.note, label+": ")
	p.shape(s, depth)
}

func (p *shapePrinter) fields(fields []shape.Field, depth int) {
	width := 0
	for i := range fields {
		width = max(width, len(fields[i].Name))
	}
	for i := range fields {
		f := &fields[i]
		p.pad(depth)
		p.write(p.st.num, fmt.Sprintf("%4d", f.Offset))
		p.b.WriteByte(' ')
		p.write(p.st.field, fmt.Sprintf("%-*s", width, f.Name))
		p.b.WriteByte(' ')
		if f.Flags.Has(shape.FieldSensitive) {
			p.write(p.st.err, "(sensitive) ")
		}
		p.shape(f.Shape(), depth+1)
	}
}
