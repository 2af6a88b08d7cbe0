package witabi

import (
	"sync"

	"go.bytecodealliance.org/wit"
)

// Layout is the canonical ABI size and alignment of a type. Offsets holds member offsets
// for records and tuples, and PayloadOffset the payload position for options and variants.
type Layout struct {
	Size          uint32
	Align         uint32
	Offsets       []uint32
	PayloadOffset uint32
}

// Calculator computes layouts, remembering those of type definitions.
type Calculator struct {
	mu    sync.Mutex
	cache map[*wit.TypeDef]Layout
}

func NewCalculator() *Calculator {
	return &Calculator{cache: make(map[*wit.TypeDef]Layout)}
}

func (c *Calculator) Calculate(t wit.Type) Layout {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Layout{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Layout{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Layout{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Layout{Size: 8, Align: 8}
	case wit.String:
		return Layout{Size: 8, Align: 4}
	case *wit.TypeDef:
		c.mu.Lock()
		l, ok := c.cache[typ]
		c.mu.Unlock()
		if ok {
			return l
		}
		l = c.typeDef(typ)
		c.mu.Lock()
		c.cache[typ] = l
		c.mu.Unlock()
		return l
	}
	return Layout{Size: 0, Align: 1}
}

func (c *Calculator) typeDef(t *wit.TypeDef) Layout {
	switch kind := t.Kind.(type) {
	case *wit.Record:
		types := make([]wit.Type, len(kind.Fields))
		for i, f := range kind.Fields {
			types[i] = f.Type
		}
		return c.members(types)
	case *wit.Tuple:
		return c.members(kind.Types)
	case *wit.List:
		return Layout{Size: 8, Align: 4}
	case *wit.Enum:
		size := discriminantSize(len(kind.Cases))
		return Layout{Size: size, Align: size}
	case *wit.Option:
		inner := c.Calculate(kind.Type)
		return tagged(1, inner.Size, inner.Align)
	case *wit.Variant:
		disc := discriminantSize(len(kind.Cases))
		var size, align uint32 = 0, 1
		for _, cs := range kind.Cases {
			if cs.Type == nil {
				continue
			}
			l := c.Calculate(cs.Type)
			size = max(size, l.Size)
			align = max(align, l.Align)
		}
		return tagged(disc, size, align)
	case wit.Type:
		return c.Calculate(kind)
	}
	return Layout{Size: 0, Align: 1}
}

func (c *Calculator) members(types []wit.Type) Layout {
	if len(types) == 0 {
		return Layout{Size: 0, Align: 1}
	}
	offsets := make([]uint32, len(types))
	var offset, align uint32 = 0, 1
	for i, t := range types {
		l := c.Calculate(t)
		offset = alignTo(offset, l.Align)
		offsets[i] = offset
		align = max(align, l.Align)
		offset += l.Size
	}
	return Layout{Size: alignTo(offset, align), Align: align, Offsets: offsets}
}

// tagged lays out a discriminant of disc bytes followed by a payload.
func tagged(disc, payloadSize, payloadAlign uint32) Layout {
	align := max(disc, payloadAlign)
	off := alignTo(disc, align)
	return Layout{Size: alignTo(off+payloadSize, align), Align: align, PayloadOffset: off}
}

func discriminantSize(cases int) uint32 {
	switch {
	case cases <= 256:
		return 1
	case cases <= 65536:
		return 2
	}
	return 4
}

func alignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
