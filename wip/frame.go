package wip

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/poke"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// slot says how a finished frame's value reaches its parent.
type slot uint8

const (
	slotRoot slot = iota
	slotField
	slotListItem
	slotMapKey
	slotMapValue
	slotSome
	slotPointee
)

type frame struct {
	data  ptr.Uninit
	shape *shape.Shape
	slot  slot
	name  string

	// index is the field index in the parent for slotField frames.
	index int

	// scratch owns the memory of frames whose value is moved into the parent on pop.
	scratch *poke.Guard

	// init means the whole value is valid, regardless of the field set.
	init bool

	// fields and set track field-wise construction of a struct or of the selected
	// enum variant, whose fields live at payload.
	fields  *shape.StructDef
	set     *poke.ISet
	variant int
	payload ptr.Uninit

	// pendingKey is a finished map key waiting for its value.
	pendingKey *pending
}

type pending struct {
	val     ptr.Mut
	scratch *poke.Guard
}

func newFrame(data ptr.Uninit, s *shape.Shape, sl slot, name string) *frame {
	f := &frame{data: data, shape: s, slot: sl, name: name, index: -1, variant: -1}
	if sd, ok := s.Def.(*shape.StructDef); ok {
		f.fields = sd
		f.set = poke.NewISet(len(sd.Fields))
		f.payload = data
	}
	return f
}

func (f *frame) isEnum() bool {
	_, ok := f.shape.Def.(*shape.EnumDef)
	return ok
}

// fieldWise reports whether the frame is being filled one field at a time.
func (f *frame) fieldWise() bool {
	return f.fields != nil && !f.init
}

// occupied reports whether the frame holds anything that a new value would replace.
func (f *frame) occupied() bool {
	return f.init || (f.set != nil && f.set.Count() > 0) || f.pendingKey != nil
}

// markWhole records that the frame now holds a complete value written in one step.
func (f *frame) markWhole() {
	f.init = true
	if f.isEnum() {
		f.fields, f.set, f.variant, f.payload = nil, nil, -1, ptr.Uninit{}
	} else if f.set != nil {
		f.set.Clear()
	}
}

// split turns a wholly initialized struct frame into one tracked per field so a single
// field can be replaced.
func (f *frame) split() {
	if f.init && f.fields != nil {
		for i := range f.fields.Fields {
			f.set.Set(i)
		}
		f.init = false
	}
}

// dropContents drops everything the frame holds and leaves its memory uninitialized.
func (f *frame) dropContents() {
	switch {
	case f.init:
		shape.DropInPlace(f.shape, f.data.AssumeInit())
		f.init = false
	case f.fields != nil:
		poke.DropInitialized(f.fields, f.payload, f.set)
		if f.isEnum() {
			f.fields, f.set, f.variant = nil, nil, -1
		}
	}
	if f.pendingKey != nil {
		md := f.shape.Def.(*shape.MapDef)
		shape.DropInPlace(md.K(), f.pendingKey.val)
		f.pendingKey.scratch.Free()
		f.pendingKey = nil
	}
}

// release drops the frame's contents and frees memory the frame owns.
func (f *frame) release() {
	f.dropContents()
	if f.scratch != nil {
		f.scratch.Free()
		f.scratch = nil
	}
	Logger().Debug("released frame", zap.Stringer("shape", f.shape), zap.String("name", f.name))
}

// finish makes the frame's value whole: missing fields are defaulted and invariants run.
func (f *frame) finish(path []string) error {
	if f.pendingKey != nil {
		return errors.New(errors.PhaseBuild, errors.KindInvalidState).
			Path(path...).
			Shape(f.shape.String()).
			Detail("key pushed without a value").
			Build()
	}
	if f.init {
		return nil
	}
	if f.fields == nil {
		if f.isEnum() {
			return errors.New(errors.PhaseBuild, errors.KindNotInitialized).
				Path(path...).
				Shape(f.shape.String()).
				Detail("no variant selected").
				Build()
		}
		return errors.NotInitialized(errors.PhaseBuild, path, f.shape.String())
	}
	if err := poke.FillMissing(f.shape, f.fields, f.payload, f.set, path); err != nil {
		return err
	}
	if vt := f.shape.VTable; vt != nil && vt.Invariants != nil {
		if err := vt.Invariants(f.data.AssumeInit().AsConst()); err != nil {
			return errors.New(errors.PhaseBuild, errors.KindInvariant).
				Path(path...).
				Shape(f.shape.String()).
				Cause(err).
				Build()
		}
	}
	f.set.Clear()
	f.init = true
	return nil
}

func itemName(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}
