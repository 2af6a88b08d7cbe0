package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseShape       Phase = "shape"       // shape derivation and registration
	PhasePeek        Phase = "peek"        // reading through a Peek
	PhasePoke        Phase = "poke"        // direct field writes
	PhaseBuild       Phase = "build"       // frame stack construction
	PhaseParse       Phase = "parse"       // string to value
	PhaseConvert     Phase = "convert"     // try_from / inner conversions
	PhaseSerialize   Phase = "serialize"   // value to format
	PhaseDeserialize Phase = "deserialize" // format to value
	PhaseLower       Phase = "lower"       // value to guest memory
	PhaseLift        Phase = "lift"        // guest memory to value
	PhaseArgs        Phase = "args"        // command line parsing
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch      Kind = "type_mismatch"
	KindWrongShape        Kind = "wrong_shape"
	KindUnsupportedSource Kind = "unsupported_source"
	KindUnimplemented     Kind = "unimplemented"
	KindUnsized           Kind = "unsized"
	KindGeneric           Kind = "generic"
	KindUnavailable       Kind = "unavailable"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindInvalidData       Kind = "invalid_data"
	KindUnsupported       Kind = "unsupported"
	KindAllocation        Kind = "allocation"
	KindFieldMissing      Kind = "field_missing"
	KindFieldUnknown      Kind = "field_unknown"
	KindInvalidUTF8       Kind = "invalid_utf8"
	KindOverflow          Kind = "overflow"
	KindNilPointer        Kind = "nil_pointer"
	KindInvalidVariant    Kind = "invalid_variant"
	KindNotInitialized    Kind = "not_initialized"
	KindInvalidState      Kind = "invalid_state"
	KindInvariant         Kind = "invariant"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Shape    string
	Expected []string
	Actual   string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	hasTypes := e.Shape != "" || len(e.Expected) > 0 || e.Actual != ""
	if hasTypes {
		b.WriteString(": ")
		var parts []string
		if e.Shape != "" {
			parts = append(parts, "shape "+e.Shape)
		}
		if len(e.Expected) > 0 {
			parts = append(parts, "expected "+strings.Join(e.Expected, " | "))
		}
		if e.Actual != "" {
			parts = append(parts, "got "+e.Actual)
		}
		b.WriteString(strings.Join(parts, ", "))
	}

	if e.Detail != "" {
		if hasTypes {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// An empty Phase on the target matches any phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase != "" && e.Phase != t.Phase {
			return false
		}
		return e.Kind == t.Kind
	}
	return false
}

// WithPath prepends segments to the error path and returns the same error.
func (e *Error) WithPath(segments ...string) *Error {
	if len(segments) == 0 {
		return e
	}
	path := make([]string, 0, len(segments)+len(e.Path))
	path = append(path, segments...)
	e.Path = append(path, e.Path...)
	return e
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Shape sets the name of the shape involved
func (b *Builder) Shape(name string) *Builder {
	b.err.Shape = name
	return b
}

// Expected sets the accepted shape names
func (b *Builder) Expected(names ...string) *Builder {
	b.err.Expected = names
	return b
}

// Actual sets the shape name that was supplied
func (b *Builder) Actual(name string) *Builder {
	b.err.Actual = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch reports a slot of shape expected being filled with a value of shape actual.
func TypeMismatch(phase Phase, path []string, expected, actual string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		Expected: []string{expected},
		Actual:   actual,
	}
}

// WrongShape reports a materialize or typed access with the wrong target type.
func WrongShape(phase Phase, expected, actual string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindWrongShape,
		Expected: []string{expected},
		Actual:   actual,
	}
}

// UnsupportedSource reports a conversion whose source shape is not accepted.
func UnsupportedSource(src string, expected ...string) *Error {
	return &Error{
		Phase:    PhaseConvert,
		Kind:     KindUnsupportedSource,
		Expected: expected,
		Actual:   src,
	}
}

// Unimplemented reports a conversion the target shape does not implement.
func Unimplemented(shape string) *Error {
	return &Error{
		Phase:  PhaseConvert,
		Kind:   KindUnimplemented,
		Shape:  shape,
		Detail: "conversion not implemented",
	}
}

// Generic wraps a free-form conversion failure.
func Generic(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindGeneric,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Unsized reports an operation that needs a sized shape.
func Unsized(phase Phase, shape string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsized,
		Shape:  shape,
		Detail: "shape has no fixed layout",
	}
}

// Unavailable reports a borrow or lock that cannot be taken right now.
func Unavailable(phase Phase, shape string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnavailable,
		Shape:  shape,
		Detail: detail,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// FieldMissing creates a missing field error
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not initialized", fieldName),
	}
}

// FieldUnknown creates an unknown field error
func FieldUnknown(phase Phase, path []string, shape, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldUnknown,
		Path:   path,
		Shape:  shape,
		Detail: fmt.Sprintf("unknown field %q", fieldName),
	}
}

// InvalidVariant creates an unknown variant error
func InvalidVariant(phase Phase, path []string, shape string, variant any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidVariant,
		Path:   path,
		Shape:  shape,
		Detail: fmt.Sprintf("no variant %v", variant),
		Value:  variant,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, shape, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Shape:  shape,
		Detail: what,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Shape:  target,
		Detail: fmt.Sprintf("value %v overflows %s", value, target),
		Value:  value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidState reports an operation that does not fit the builder's current frame.
func InvalidState(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidState,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// NotInitialized reports a value read before it was written.
func NotInitialized(phase Phase, path []string, shape string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Path:   path,
		Shape:  shape,
		Detail: "value not initialized",
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, shape string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		Shape:  shape,
		Detail: "nil pointer",
	}
}

// ParseFailed creates a parsing error
func ParseFailed(shape, input string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Shape:  shape,
		Detail: fmt.Sprintf("parse %q", input),
		Value:  input,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Is forwards to the standard library so callers need a single errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As forwards to the standard library.
func As(err error, target any) bool { return stderrors.As(err, target) }

// IsKind reports whether err is or wraps an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Kind == k
}
