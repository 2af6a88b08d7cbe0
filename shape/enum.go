package shape

import (
	"cmp"
	"hash"
	"io"
	"reflect"
	"strconv"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"golang.org/x/exp/constraints"
)

// EnumCase names one value of an integer enum.
type EnumCase[T constraints.Integer] struct {
	Name  string
	Value T
	Doc   []string
}

// Case is shorthand for an EnumCase literal.
func Case[T constraints.Integer](name string, v T, doc ...string) EnumCase[T] {
	return EnumCase[T]{Name: name, Value: v, Doc: doc}
}

// RegisterEnum declares T as an enum over the given cases and registers its shape.
// The first case is the default. Display and Parse use case names.
//
//	type Color uint8
//
//	const (
//		Red Color = iota
//		Green
//	)
//
//	func init() {
//		shape.RegisterEnum(shape.Case("Red", Red), shape.Case("Green", Green))
//	}
func RegisterEnum[T constraints.Integer](cases ...EnumCase[T]) *Shape {
	t := reflect.TypeFor[T]()
	if len(cases) == 0 {
		panic("shape: enum " + t.String() + " has no cases")
	}
	name := t.String()

	eb := NewEnumDef(reprFor(t))
	for _, c := range cases {
		eb.Variant(NewVariant(c.Name, int64(c.Value)).Doc(c.Doc...).Build())
	}
	index := func(v T) (int, bool) {
		for i, c := range cases {
			if c.Value == v {
				return i, true
			}
		}
		return -1, false
	}
	eb.VTable(&EnumVTable{
		VariantIndex: func(p ptr.Const) (int, bool) { return index(ptr.Read[T](p)) },
		SelectVariant: func(dst ptr.Uninit, i int) ptr.Uninit {
			ptr.Put(dst, cases[i].Value)
			return dst
		},
		Payload: func(p ptr.Const, _ int) ptr.Const { return p },
	})
	ed := eb.Build()

	byName := func(s string) (T, error) {
		if i, ok := ed.VariantIndex(s); ok {
			return cases[i].Value, nil
		}
		return 0, errors.InvalidVariant(errors.PhaseParse, nil, name, s)
	}
	display := func(v *T, w io.Writer) error {
		if i, ok := index(*v); ok {
			return writeString(w, cases[i].Name)
		}
		return writeString(w, name+"("+strconv.FormatInt(int64(*v), 10)+")")
	}
	info := NumberInfo{Bits: int(t.Size()) * 8, Signed: isSignedKind(t.Kind())}
	fromNumber := numberTryFrom[T](info, name)

	vt := VTableFor[T]().
		Display(display).
		Debug(display).
		Parse(byName).
		Default(func() T { return cases[0].Value }).
		Clone(func(v *T) T { return *v }).
		Eq(func(x, y *T) bool { return *x == *y }).
		Ord(func(x, y *T) int { return cmp.Compare(*x, *y) }).
		Hash(func(v *T, h hash.Hash) { hashUint64(h, uint64(*v)) }).
		Invariants(func(v *T) error {
			if _, ok := index(*v); !ok {
				return errors.InvalidVariant(errors.PhaseBuild, nil, name, int64(*v))
			}
			return nil
		}).
		TryFrom(func(src ptr.Const, ss *Shape) (T, error) {
			if IsType[string](ss) {
				return byName(ptr.Read[string](src))
			}
			v, err := fromNumber(src, ss)
			if err != nil {
				return 0, err
			}
			if _, ok := index(v); !ok {
				return 0, errors.InvalidVariant(errors.PhaseConvert, nil, name, int64(v))
			}
			return v, nil
		}).
		Marker(MarkerComparable | MarkerCopy | MarkerTotalOrd).
		Build()

	s := BuilderForSized[T]().
		Ty(TyUser).
		TypeIdentifier(name).
		VTable(vt).
		Def(ed).
		Build()
	Register(s)
	return s
}

func isSignedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func reprFor(t reflect.Type) EnumRepr {
	signed := isSignedKind(t.Kind())
	switch t.Size() {
	case 1:
		if signed {
			return ReprI8
		}
		return ReprU8
	case 2:
		if signed {
			return ReprI16
		}
		return ReprU16
	case 4:
		if signed {
			return ReprI32
		}
		return ReprU32
	}
	if signed {
		return ReprI64
	}
	return ReprU64
}
