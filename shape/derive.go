package shape

import (
	"encoding"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Provider is implemented by types that supply their own shape. FacetShape is called on a
// nil receiver. Child shapes must be referenced lazily so recursive types terminate.
type Provider interface {
	FacetShape() *Shape
}

var (
	registry sync.Map // reflect.Type -> *Shape

	providerType        = reflect.TypeFor[Provider]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	stringerType        = reflect.TypeFor[fmt.Stringer]()
	validatorType       = reflect.TypeFor[Validator]()
	timeType            = reflect.TypeFor[time.Time]()
	durationType        = reflect.TypeFor[time.Duration]()
	bytesType           = reflect.TypeFor[[]byte]()
)

// Validator is implemented by types with invariants beyond their fields' own.
type Validator interface {
	Validate() error
}

// Of returns the shape of T, deriving it on first use.
func Of[T any]() *Shape {
	return OfType(reflect.TypeFor[T]())
}

// OfType returns the shape of t, deriving it on first use.
func OfType(t reflect.Type) *Shape {
	if s, ok := registry.Load(t); ok {
		return s.(*Shape)
	}
	s := derive(t)
	actual, loaded := registry.LoadOrStore(t, s)
	if !loaded {
		Logger().Debug("derived shape",
			zap.Stringer("type", t),
			zap.Stringer("def", s.Def.DefKind()),
			zap.Uintptr("size", s.Layout.Size))
	}
	return actual.(*Shape)
}

// Register installs s as the shape of its Go type, replacing any derived one.
// Call it before the type's shape is first used, typically from init.
func Register(s *Shape) {
	t := s.ID.Type()
	if t == nil {
		panic("shape: cannot register a shape without a Go type")
	}
	registry.Store(t, s)
}

func isProvider(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(providerType)
}

func derive(t reflect.Type) *Shape {
	if isProvider(t) {
		s := reflect.Zero(reflect.PointerTo(t)).Interface().(Provider).FacetShape()
		if s.ID.Type() != t {
			panic(fmt.Sprintf("shape: %s provided a shape for %s", t, s.ID))
		}
		return s
	}

	switch t {
	case timeType, durationType, bytesType:
		return builtinScalar(t)
	}

	if s := deriveNamedScalar(t); s != nil {
		return s
	}

	if t.Kind() == reflect.Struct && isTextScalar(t) {
		return deriveOpaque(t)
	}

	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.String:
		return builtinScalar(t)
	case reflect.Struct:
		return deriveStruct(t)
	case reflect.Slice:
		return deriveList(t)
	case reflect.Array:
		return deriveArray(t)
	case reflect.Map:
		return deriveMap(t)
	case reflect.Pointer:
		return deriveOption(t)
	default:
		return deriveUndefined(t)
	}
}

// applyHooks wires the method-based capabilities a Go type may declare.
func applyHooks(t reflect.Type, vt *ValueVTable) {
	pt := reflect.PointerTo(t)
	if pt.Implements(stringerType) {
		vt.Display = stringerDisplay(t)
	}
	if pt.Implements(textUnmarshalerType) {
		vt.Parse = textParse(t)
	}
	if pt.Implements(validatorType) {
		vt.Invariants = validatorInvariants(t)
	}
}

func deriveUndefined(t reflect.Type) *Shape {
	vt := &ValueVTable{
		TypeName: typeNameFunc(t, nil),
		Debug:    reflectDebug(t),
	}
	return NewBuilder().
		ID(IDFor(t)).
		Layout(LayoutFor(t)).
		TypeIdentifier(t.String()).
		Ty(TyUser).
		VTable(vt).
		Def(UndefinedDef{}).
		Build()
}
