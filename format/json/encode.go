package json

import (
	"bytes"
	"encoding/base64"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/go-facet/format/internal/tree"
)

const hex = "0123456789abcdef"

type encoder struct {
	buf    bytes.Buffer
	indent string
}

func (e *encoder) newline(depth int) {
	if e.indent == "" {
		return
	}
	e.buf.WriteByte('\n')
	e.buf.WriteString(strings.Repeat(e.indent, depth))
}

func (e *encoder) value(n *tree.Node, depth int) {
	switch n.Kind {
	case tree.Null:
		e.buf.WriteString("null")
	case tree.Bool:
		e.buf.WriteString(strconv.FormatBool(n.Bool))
	case tree.Int:
		e.buf.WriteString(strconv.FormatInt(n.Int, 10))
	case tree.Uint:
		e.buf.WriteString(strconv.FormatUint(n.Uint, 10))
	case tree.Float:
		e.float(n.Float)
	case tree.String:
		e.string(n.Str)
	case tree.Bytes:
		e.string(base64.StdEncoding.EncodeToString(n.Bytes))
	case tree.Seq:
		if len(n.Items) == 0 {
			e.buf.WriteString("[]")
			return
		}
		e.buf.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.newline(depth + 1)
			e.value(item, depth+1)
		}
		e.newline(depth)
		e.buf.WriteByte(']')
	case tree.Map:
		if len(n.Entries) == 0 {
			e.buf.WriteString("{}")
			return
		}
		e.buf.WriteByte('{')
		for i, ent := range n.Entries {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.newline(depth + 1)
			e.string(ent.Key.KeyText())
			e.buf.WriteByte(':')
			if e.indent != "" {
				e.buf.WriteByte(' ')
			}
			e.value(ent.Value, depth+1)
		}
		e.newline(depth)
		e.buf.WriteByte('}')
	}
}

// float writes NaN and infinities as null, which JSON cannot represent.
func (e *encoder) float(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		e.buf.WriteString("null")
		return
	}
	b := strconv.AppendFloat(nil, f, 'g', -1, 64)
	if bytes.IndexAny(b, ".eE") < 0 {
		b = append(b, ".0"...)
	}
	e.buf.Write(b)
}

func (e *encoder) string(s string) {
	e.buf.WriteByte('"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c >= 0x20 && c != '"' && c != '\\' {
				i++
				continue
			}
			e.buf.WriteString(s[start:i])
			switch c {
			case '"', '\\':
				e.buf.WriteByte('\\')
				e.buf.WriteByte(c)
			case '\n':
				e.buf.WriteString(`\n`)
			case '\r':
				e.buf.WriteString(`\r`)
			case '\t':
				e.buf.WriteString(`\t`)
			default:
				e.buf.WriteString(`\u00`)
				e.buf.WriteByte(hex[c>>4])
				e.buf.WriteByte(hex[c&0xf])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			e.buf.WriteString(s[start:i])
			e.buf.WriteString(`�`)
			i += size
			start = i
			continue
		}
		i += size
	}
	e.buf.WriteString(s[start:])
	e.buf.WriteByte('"')
}
