package wip

import (
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/poke"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// Wip is a value under construction. It is not safe for concurrent use.
// A Wip that is abandoned before Build must be released with Release.
type Wip struct {
	guard  *poke.Guard
	frames []*frame
	done   bool
}

// Alloc starts building a T.
func Alloc[T any]() (*Wip, error) {
	return AllocShape(shape.Of[T]())
}

// AllocShape starts building a value of s.
func AllocShape(s *shape.Shape) (*Wip, error) {
	u, g, err := poke.Alloc(s)
	if err != nil {
		return nil, err
	}
	w := &Wip{guard: g}
	w.frames = append(w.frames, newFrame(u.Data(), s, slotRoot, s.String()))
	Logger().Debug("alloc", zap.Stringer("shape", s))
	return w, nil
}

func (w *Wip) top() *frame { return w.frames[len(w.frames)-1] }

// Shape is the shape of the current frame.
func (w *Wip) Shape() *shape.Shape { return w.top().shape }

// InnermostShape follows transparent wrappers from the current frame's shape.
func (w *Wip) InnermostShape() *shape.Shape {
	s := w.top().shape
	for s.Inner != nil {
		s = s.Inner()
	}
	return s
}

// Depth is the number of open frames, counting the root.
func (w *Wip) Depth() int { return len(w.frames) }

// Path names the current frame, starting with the root shape.
func (w *Wip) Path() string {
	return strings.Join(w.path(), ".")
}

func (w *Wip) path() []string {
	out := make([]string, len(w.frames))
	for i, f := range w.frames {
		out[i] = f.name
	}
	return out
}

func (w *Wip) check() error {
	if w.done {
		return errors.InvalidState(errors.PhaseBuild, "wip already built or released")
	}
	return nil
}

func (w *Wip) wrongShape(want string) error {
	f := w.top()
	return errors.New(errors.PhaseBuild, errors.KindWrongShape).
		Path(w.path()...).
		Shape(f.shape.String()).
		Expected(want).
		Actual(f.shape.Def.DefKind().String()).
		Build()
}

func (w *Wip) push(f *frame) {
	w.frames = append(w.frames, f)
	Logger().Debug("push frame", zap.String("path", w.Path()), zap.Stringer("shape", f.shape))
}

// FieldIndex resolves a field of the current struct or selected variant by name.
func (w *Wip) FieldIndex(name string) (int, bool) {
	f := w.top()
	if f.fields == nil {
		return -1, false
	}
	return f.fields.FieldIndex(name)
}

// IsFieldSet reports whether field i of the current frame holds a value.
func (w *Wip) IsFieldSet(i int) (bool, error) {
	f := w.top()
	if f.fields == nil {
		return false, w.wrongShape("struct")
	}
	if i < 0 || i >= len(f.fields.Fields) {
		return false, errors.OutOfBounds(errors.PhaseBuild, w.path(), i, len(f.fields.Fields))
	}
	return f.init || f.set.Has(i), nil
}

// Field opens a frame for field i of the current struct or selected variant.
// A field that already holds a value is dropped first.
func (w *Wip) Field(i int) error {
	if err := w.check(); err != nil {
		return err
	}
	f := w.top()
	if f.fields == nil {
		if f.isEnum() {
			return errors.InvalidState(errors.PhaseBuild, "%s: select a variant before its fields", w.Path())
		}
		return w.wrongShape("struct")
	}
	if i < 0 || i >= len(f.fields.Fields) {
		return errors.OutOfBounds(errors.PhaseBuild, w.path(), i, len(f.fields.Fields))
	}
	f.split()
	fd := &f.fields.Fields[i]
	data := f.payload.Field(fd.Offset)
	if f.set.Has(i) {
		shape.DropInPlace(fd.Shape(), data.AssumeInit())
		f.set.Unset(i)
	}
	child := newFrame(data, fd.Shape(), slotField, fd.Name)
	child.index = i
	w.push(child)
	return nil
}

// FieldNamed opens a frame for the named field.
func (w *Wip) FieldNamed(name string) error {
	if err := w.check(); err != nil {
		return err
	}
	i, ok := w.FieldIndex(name)
	if !ok {
		f := w.top()
		if f.fields == nil {
			return w.wrongShape("struct")
		}
		return errors.FieldUnknown(errors.PhaseBuild, w.path(), f.shape.String(), name)
	}
	return w.Field(i)
}

// PutShape moves or converts the value at src, of shape have, into the current frame.
func (w *Wip) PutShape(src ptr.Mut, have *shape.Shape) error {
	if err := w.check(); err != nil {
		return err
	}
	path := w.path()
	return w.write(func(dst ptr.Uninit, want *shape.Shape) error {
		_, err := poke.Place(path, dst, want, src, have)
		return err
	})
}

// Put moves v into the current frame.
func Put[T any](w *Wip, v T) error {
	return w.PutShape(ptr.MutFrom(&v), shape.Of[T]())
}

// Parse fills the current frame from text with its shape's Parse.
func (w *Wip) Parse(text string) error {
	if err := w.check(); err != nil {
		return err
	}
	if w.top().shape.VTable.Parse == nil {
		return errors.Unsupported(errors.PhaseParse, w.top().shape.String(), "no parse")
	}
	path := w.path()
	return w.write(func(dst ptr.Uninit, want *shape.Shape) error {
		if _, err := want.VTable.Parse(text, dst); err != nil {
			var e *errors.Error
			if errors.As(err, &e) && len(e.Path) == 0 {
				return e.WithPath(path...)
			}
			return err
		}
		return nil
	})
}

// PutDefault fills the current frame with its shape's default.
func (w *Wip) PutDefault() error {
	if err := w.check(); err != nil {
		return err
	}
	if w.top().shape.VTable.DefaultInPlace == nil {
		return errors.Unsupported(errors.PhaseBuild, w.top().shape.String(), "no default")
	}
	return w.write(func(dst ptr.Uninit, want *shape.Shape) error {
		want.VTable.DefaultInPlace(dst)
		return nil
	})
}

// write fills the current frame in one step. A frame that already holds something gets
// the new value in scratch memory first, so a failed write keeps the old contents.
func (w *Wip) write(fill func(dst ptr.Uninit, want *shape.Shape) error) error {
	f := w.top()
	if !f.occupied() {
		if err := fill(f.data, f.shape); err != nil {
			return err
		}
		f.markWhole()
		return nil
	}
	u, g, err := poke.Alloc(f.shape)
	if err != nil {
		return err
	}
	defer g.Free()
	if err := fill(u.Data(), f.shape); err != nil {
		return err
	}
	f.dropContents()
	shape.Move(f.shape, f.data, u.Data().AssumeInit())
	f.markWhole()
	return nil
}

// BeginPushback makes the current list frame an empty list if it is not one yet.
func (w *Wip) BeginPushback() error {
	if err := w.check(); err != nil {
		return err
	}
	f := w.top()
	ld, ok := f.shape.Def.(*shape.ListDef)
	if !ok {
		return w.wrongShape("list")
	}
	if !f.init {
		ld.VTable.InitInPlaceWithCapacity(f.data, 0)
		f.init = true
	}
	return nil
}

// Push opens a frame for a new list item. Pop appends it.
func (w *Wip) Push() error {
	if err := w.BeginPushback(); err != nil {
		return err
	}
	f := w.top()
	ld := f.shape.Def.(*shape.ListDef)
	n := ld.VTable.Len(f.data.AssumeInit().AsConst())
	return w.pushScratch(ld.T(), slotListItem, itemName(n))
}

// BeginMap makes the current map frame an empty map if it is not one yet.
func (w *Wip) BeginMap() error {
	if err := w.check(); err != nil {
		return err
	}
	f := w.top()
	md, ok := f.shape.Def.(*shape.MapDef)
	if !ok {
		return w.wrongShape("map")
	}
	if !f.init {
		md.VTable.InitInPlaceWithCapacity(f.data, 0)
		f.init = true
	}
	return nil
}

// PushMapKey opens a frame for the key of a new entry.
func (w *Wip) PushMapKey() error {
	if err := w.BeginMap(); err != nil {
		return err
	}
	f := w.top()
	if f.pendingKey != nil {
		return errors.InvalidState(errors.PhaseBuild, "%s: key already pushed, expected its value", w.Path())
	}
	return w.pushScratch(f.shape.Def.(*shape.MapDef).K(), slotMapKey, "key")
}

// PushMapValue opens a frame for the value of the entry whose key was just popped.
func (w *Wip) PushMapValue() error {
	if err := w.check(); err != nil {
		return err
	}
	f := w.top()
	md, ok := f.shape.Def.(*shape.MapDef)
	if !ok {
		return w.wrongShape("map")
	}
	if f.pendingKey == nil {
		return errors.InvalidState(errors.PhaseBuild, "%s: push a key before its value", w.Path())
	}
	return w.pushScratch(md.V(), slotMapValue, "value")
}

// PushSome opens a frame for the value of the current option. Pop wraps it.
func (w *Wip) PushSome() error {
	if err := w.check(); err != nil {
		return err
	}
	od, ok := w.top().shape.Def.(*shape.OptionDef)
	if !ok {
		return w.wrongShape("option")
	}
	return w.pushScratch(od.T(), slotSome, "some")
}

// PutNone empties the current option.
func (w *Wip) PutNone() error {
	if err := w.check(); err != nil {
		return err
	}
	od, ok := w.top().shape.Def.(*shape.OptionDef)
	if !ok {
		return w.wrongShape("option")
	}
	return w.write(func(dst ptr.Uninit, _ *shape.Shape) error {
		od.VTable.InitNone(dst)
		return nil
	})
}

// PushPointee opens a frame for the pointee of the current smart pointer.
func (w *Wip) PushPointee() error {
	if err := w.check(); err != nil {
		return err
	}
	sd, ok := w.top().shape.Def.(*shape.SmartPointerDef)
	if !ok {
		return w.wrongShape("smart_pointer")
	}
	if sd.VTable == nil || sd.VTable.NewInto == nil {
		return errors.Unsupported(errors.PhaseBuild, w.top().shape.String(), "cannot be constructed from a pointee")
	}
	return w.pushScratch(sd.Pointee(), slotPointee, "pointee")
}

func (w *Wip) pushScratch(s *shape.Shape, sl slot, name string) error {
	u, g, err := poke.Alloc(s)
	if err != nil {
		return err
	}
	child := newFrame(u.Data(), s, sl, name)
	child.scratch = g
	w.push(child)
	return nil
}

// Variant selects variant i of the current enum. Fields set for a previously selected
// variant are dropped.
func (w *Wip) Variant(i int) error {
	if err := w.check(); err != nil {
		return err
	}
	f := w.top()
	ed, ok := f.shape.Def.(*shape.EnumDef)
	if !ok {
		return w.wrongShape("enum")
	}
	if i < 0 || i >= len(ed.Variants) {
		return errors.InvalidVariant(errors.PhaseBuild, w.path(), f.shape.String(), i)
	}
	f.dropContents()
	v := &ed.Variants[i]
	f.payload = ed.VTable.SelectVariant(f.data, i)
	f.variant = i
	f.fields = v.Data
	f.set = poke.NewISet(len(v.Data.Fields))
	Logger().Debug("select variant", zap.String("path", w.Path()), zap.String("variant", v.Name))
	return nil
}

// VariantNamed selects a variant by name.
func (w *Wip) VariantNamed(name string) error {
	if err := w.check(); err != nil {
		return err
	}
	ed, ok := w.top().shape.Def.(*shape.EnumDef)
	if !ok {
		return w.wrongShape("enum")
	}
	i, ok := ed.VariantIndex(name)
	if !ok {
		return errors.InvalidVariant(errors.PhaseBuild, w.path(), w.top().shape.String(), name)
	}
	return w.Variant(i)
}

// SelectedVariant is the variant chosen for the current enum frame.
func (w *Wip) SelectedVariant() (int, bool) {
	f := w.top()
	return f.variant, f.variant >= 0
}

// Pop finishes the current frame and hands its value to the parent. Missing fields
// are filled from defaults or set to none when optional, otherwise Pop fails and the
// frame stays open.
func (w *Wip) Pop() error {
	if err := w.check(); err != nil {
		return err
	}
	if len(w.frames) == 1 {
		return errors.InvalidState(errors.PhaseBuild, "cannot pop the root frame")
	}
	f := w.top()
	if err := f.finish(w.path()); err != nil {
		return err
	}
	w.frames = w.frames[:len(w.frames)-1]
	parent := w.top()
	value := f.data.AssumeInit()

	switch f.slot {
	case slotField:
		parent.set.Set(f.index)
	case slotListItem:
		ld := parent.shape.Def.(*shape.ListDef)
		ld.VTable.Push(parent.data.AssumeInit(), value)
	case slotMapKey:
		parent.pendingKey = &pending{val: value, scratch: f.scratch}
		f.scratch = nil
	case slotMapValue:
		md := parent.shape.Def.(*shape.MapDef)
		md.VTable.Insert(parent.data.AssumeInit(), parent.pendingKey.val, value)
		parent.pendingKey.scratch.Free()
		parent.pendingKey = nil
	case slotSome:
		od := parent.shape.Def.(*shape.OptionDef)
		parent.dropContents()
		od.VTable.InitSome(parent.data, value)
		parent.markWhole()
	case slotPointee:
		sd := parent.shape.Def.(*shape.SmartPointerDef)
		parent.dropContents()
		sd.VTable.NewInto(parent.data, value)
		parent.markWhole()
	}
	if f.scratch != nil {
		f.scratch.Free()
	}
	Logger().Debug("pop frame", zap.String("path", w.Path()), zap.Stringer("shape", f.shape))
	return nil
}

// Build finishes the root value and hands it over as a HeapValue. Every frame opened
// below the root must have been popped.
func (w *Wip) Build() (*HeapValue, error) {
	if err := w.check(); err != nil {
		return nil, err
	}
	if len(w.frames) != 1 {
		return nil, errors.InvalidState(errors.PhaseBuild, "%s: %d frames still open", w.Path(), len(w.frames)-1)
	}
	root := w.frames[0]
	if err := root.finish(w.path()); err != nil {
		return nil, err
	}
	w.done = true
	w.frames = nil
	return &HeapValue{guard: w.guard, shape: root.shape}, nil
}

// Release abandons construction. Every value built so far is dropped exactly once,
// innermost frame first, and the memory is freed. Calling it after Build does nothing.
func (w *Wip) Release() {
	if w.done {
		return
	}
	for i := len(w.frames) - 1; i >= 0; i-- {
		w.frames[i].release()
	}
	w.frames = nil
	w.done = true
	if err := w.guard.Free(); err != nil {
		Logger().Warn("free after release", zap.Error(err))
	}
}
