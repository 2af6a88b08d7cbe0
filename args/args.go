// Package args fills a struct from command line arguments using its shape.
//
// Named arguments are written --name value or --name=value. Names match a field's Go
// name or serialized name ignoring case, dashes and underscores, so --dry-run, --dry_run
// and --DryRun all set DryRun. A bool field takes no value. Arguments that do not start
// with -- fill the fields tagged positional, in declaration order.
//
//	type opts struct {
//		Input   string `facet:",positional"`
//		Level   int    `facet:",default"`
//		Verbose bool
//	}
//	o, err := args.Parse[opts](os.Args[1:])
package args

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/poke"
	"github.com/wippyai/go-facet/shape"
)

// Options tune argument parsing.
type Options struct {
	// AllowUnknown skips named arguments that match no field instead of failing.
	// A skipped argument never consumes the following token.
	AllowUnknown bool
}

func DefaultOptions() Options {
	return Options{}
}

// Parse builds a T from argv. Fields that are never named fall back to their default,
// options become None, bools become false; any other missing field is an error.
//
// A field whose shape can neither be parsed from text nor is a string or bool is a
// programming error and panics.
func Parse[T any](argv []string) (T, error) {
	return ParseWith[T](argv, DefaultOptions())
}

func ParseWith[T any](argv []string, opts Options) (T, error) {
	var zero T
	u, g, err := poke.AllocType[T]()
	if err != nil {
		return zero, err
	}
	st, err := u.Struct()
	if err != nil {
		_ = g.Free()
		return zero, err
	}

	p := &parser{st: st, opts: opts}
	if err := p.run(argv); err != nil {
		st.Release()
		_ = g.Free()
		return zero, err
	}
	v, err := poke.Build[T](st, g)
	if err != nil {
		st.Release()
		_ = g.Free()
		return zero, err
	}
	return v, nil
}

type parser struct {
	st   *poke.Struct
	opts Options
	next int // next positional field to consider
}

func (p *parser) run(argv []string) error {
	log := Logger()
	rest := false
	for len(argv) > 0 {
		tok := argv[0]
		argv = argv[1:]

		if rest || !strings.HasPrefix(tok, "--") {
			log.Debug("positional argument", zap.String("value", tok))
			if err := p.positional(tok); err != nil {
				return err
			}
			continue
		}
		if tok == "--" {
			rest = true
			continue
		}

		key, value, inline := strings.Cut(tok[2:], "=")
		i, ok := p.lookup(key)
		if !ok {
			if p.opts.AllowUnknown {
				log.Debug("skipping unknown argument", zap.String("name", key))
				continue
			}
			return errors.FieldUnknown(errors.PhaseArgs, nil, p.st.Shape().String(), key)
		}
		f := p.st.Field(i)
		isBool := shape.IsType[bool](f.Shape())
		switch {
		case inline:
		case isBool:
			value = ""
		case len(argv) == 0:
			return errors.New(errors.PhaseArgs, errors.KindInvalidData).
				Path(f.Name).
				Detail("--%s expects a value", key).
				Build()
		default:
			value = argv[0]
			argv = argv[1:]
		}
		log.Debug("named argument", zap.String("field", f.Name), zap.String("value", value))
		if err := p.st.ParseField(f.Name, value); err != nil {
			return argError(err, f.Name)
		}
	}
	return p.finish()
}

func (p *parser) positional(tok string) error {
	for ; p.next < p.st.FieldCount(); p.next++ {
		f := p.st.Field(p.next)
		if !f.Flags.Has(shape.FieldPositional) {
			continue
		}
		p.next++
		if err := p.st.ParseField(f.Name, tok); err != nil {
			return argError(err, f.Name)
		}
		return nil
	}
	return errors.New(errors.PhaseArgs, errors.KindInvalidData).
		Value(tok).
		Detail("unexpected argument %q", tok).
		Build()
}

// finish sets absent bools to false and fills defaults.
func (p *parser) finish() error {
	for i := range p.st.FieldCount() {
		if p.st.IsFieldSet(i) {
			continue
		}
		f := p.st.Field(i)
		if shape.IsType[bool](f.Shape()) && f.Default == nil && !f.Flags.Has(shape.FieldDefault) {
			if err := poke.Set(p.st, i, false); err != nil {
				return err
			}
		}
	}
	return p.st.FillDefaults()
}

func (p *parser) lookup(key string) (int, bool) {
	want := normalize(key)
	for i := range p.st.FieldCount() {
		f := p.st.Field(i)
		if normalize(f.Name) == want || normalize(f.SerializedName()) == want {
			return i, true
		}
	}
	return -1, false
}

func normalize(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '-' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

func argError(err error, field string) error {
	var e *errors.Error
	if errors.As(err, &e) && len(e.Path) == 0 {
		return e.WithPath(field)
	}
	return err
}

// Usage renders a one line per field summary of the arguments T accepts.
func Usage[T any]() string {
	s := shape.Of[T]()
	sd, ok := s.Def.(*shape.StructDef)
	if !ok {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Arguments of %s:\n", s)
	for i := range sd.Fields {
		f := &sd.Fields[i]
		name := "--" + shape.RenameKebabCase.Apply(f.Name)
		if f.Rename != "" {
			name = "--" + f.Rename
		}
		if f.Flags.Has(shape.FieldPositional) {
			name = "<" + strings.ToLower(f.Name) + ">"
		}
		line := fmt.Sprintf("  %-20s %s", name, f.Shape())
		if len(f.Doc) > 0 {
			line += "  " + strings.Join(f.Doc, " ")
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
	}
	return b.String()
}
