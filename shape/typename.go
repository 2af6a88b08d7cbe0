package shape

import (
	"reflect"
	"strconv"
	"strings"
)

// typeNameFunc renders Go syntax for t. Named generic types print their params from
// params when given, otherwise the instantiation with package paths stripped.
func typeNameFunc(t reflect.Type, params []TypeParam) func(*strings.Builder, TypeNameOpts) {
	return func(b *strings.Builder, opts TypeNameOpts) {
		writeTypeName(b, t, params, opts)
	}
}

func writeTypeName(b *strings.Builder, t reflect.Type, params []TypeParam, opts TypeNameOpts) {
	if name := t.Name(); name != "" {
		base, args, generic := strings.Cut(name, "[")
		b.WriteString(base)
		if !generic {
			return
		}
		if len(params) == 0 {
			b.WriteByte('[')
			b.WriteString(stripPackagePaths(strings.TrimSuffix(args, "]")))
			b.WriteByte(']')
			return
		}
		writeParams(b, params, opts)
		return
	}

	switch t.Kind() {
	case reflect.Slice:
		b.WriteString("[]")
		writeChild(b, t.Elem(), opts)
	case reflect.Array:
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(t.Len()))
		b.WriteByte(']')
		writeChild(b, t.Elem(), opts)
	case reflect.Pointer:
		b.WriteByte('*')
		writeChild(b, t.Elem(), opts)
	case reflect.Map:
		b.WriteString("map[")
		writeChild(b, t.Key(), opts)
		b.WriteByte(']')
		writeChild(b, t.Elem(), opts)
	default:
		b.WriteString(t.String())
	}
}

func writeChild(b *strings.Builder, t reflect.Type, opts TypeNameOpts) {
	child, ok := opts.ForChildren()
	if !ok {
		b.WriteString("…")
		return
	}
	OfType(t).WriteTypeName(b, child)
}

func writeParams(b *strings.Builder, params []TypeParam, opts TypeNameOpts) {
	child, ok := opts.ForChildren()
	if !ok {
		b.WriteString("[…]")
		return
	}
	b.WriteByte('[')
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		p.Shape().WriteTypeName(b, child)
	}
	b.WriteByte(']')
}

// stripPackagePaths turns "github.com/a/b.User" into "b.User" inside a type argument list.
func stripPackagePaths(s string) string {
	var out strings.Builder
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '/':
			start = i + 1
		case ',', '[', ']', ' ', '*':
			out.WriteString(s[start : i+1])
			start = i + 1
		}
	}
	out.WriteString(s[start:])
	return out.String()
}
