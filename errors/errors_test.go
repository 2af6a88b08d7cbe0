package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseBuild,
				Kind:     KindTypeMismatch,
				Path:     []string{"user", "address", "zip"},
				Expected: []string{"uint64"},
				Actual:   "string",
				Detail:   "cannot convert",
			},
			contains: []string{"[build]", "type_mismatch", "user.address.zip", "expected uint64", "got string", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhasePeek,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[peek]", "out_of_bounds"},
		},
		{
			name: "several expected shapes",
			err:  UnsupportedSource("bool", "int64", "uint64"),
			contains: []string{"[convert]", "unsupported_source", "int64 | uint64", "got bool"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseShape,
				Kind:   KindAllocation,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[shape]", "allocation", "memory full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseDeserialize,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseBuild,
		Kind:  KindTypeMismatch,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseBuild, Kind: KindTypeMismatch}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhasePoke, Kind: KindTypeMismatch}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseBuild, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, &Error{Kind: KindTypeMismatch}) {
		t.Error("empty phase should match any phase")
	}
}

func TestError_WithPath(t *testing.T) {
	err := FieldMissing(PhaseBuild, []string{"zip"}, "zip")
	err.WithPath("user", "address")
	if got := strings.Join(err.Path, "."); got != "user.address.zip" {
		t.Errorf("Path = %q, want user.address.zip", got)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseBuild, KindTypeMismatch).
		Path("user", "name").
		Shape("User").
		Expected("string").
		Actual("uint64").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "string", "int").
		Build()

	if err.Phase != PhaseBuild {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseBuild)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "user" || err.Path[1] != "name" {
		t.Errorf("Path = %v, want [user name]", err.Path)
	}
	if err.Shape != "User" {
		t.Errorf("Shape = %v, want User", err.Shape)
	}
	if len(err.Expected) != 1 || err.Expected[0] != "string" {
		t.Errorf("Expected = %v, want [string]", err.Expected)
	}
	if err.Actual != "uint64" {
		t.Errorf("Actual = %v, want uint64", err.Actual)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected string, got int" {
		t.Errorf("Detail = %v, want 'expected string, got int'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseBuild, []string{"field"}, "uint64", "string")
		if err.Kind != KindTypeMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
		}
		if err.Expected[0] != "uint64" || err.Actual != "string" {
			t.Errorf("Expected=%v Actual=%v", err.Expected, err.Actual)
		}
	})

	t.Run("WrongShape", func(t *testing.T) {
		err := WrongShape(PhaseBuild, "User", "Order")
		if err.Kind != KindWrongShape {
			t.Errorf("Kind = %v, want %v", err.Kind, KindWrongShape)
		}
	})

	t.Run("Unsized", func(t *testing.T) {
		err := Unsized(PhaseShape, "[]uint8")
		if err.Kind != KindUnsized || err.Shape != "[]uint8" {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseShape, 1024, 8)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("FieldMissing", func(t *testing.T) {
		err := FieldMissing(PhaseBuild, []string{"record"}, "name")
		if err.Kind != KindFieldMissing {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFieldMissing)
		}
	})

	t.Run("FieldUnknown", func(t *testing.T) {
		err := FieldUnknown(PhaseDeserialize, []string{"record"}, "User", "extra")
		if err.Kind != KindFieldUnknown {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFieldUnknown)
		}
		if !strings.Contains(err.Error(), `"extra"`) {
			t.Errorf("message %q should name the field", err.Error())
		}
	})

	t.Run("InvalidVariant", func(t *testing.T) {
		err := InvalidVariant(PhaseBuild, nil, "Color", "purple")
		if err.Kind != KindInvalidVariant {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidVariant)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhasePeek, []string{"list"}, 10, 5)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != 10 {
			t.Errorf("Value = %v, want 10", err.Value)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseConvert, 300, "uint8")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
		if err.Value != 300 {
			t.Errorf("Value = %v, want 300", err.Value)
		}
	})

	t.Run("Unavailable", func(t *testing.T) {
		err := Unavailable(PhasePoke, "Locked[int]", "write lock held")
		if !errors.Is(err, &Error{Kind: KindUnavailable}) {
			t.Error("should match unavailable kind")
		}
	})

	t.Run("ParseFailed", func(t *testing.T) {
		cause := errors.New("bad digit")
		err := ParseFailed("int32", "x1", cause)
		if !errors.Is(err, cause) {
			t.Error("cause should be reachable")
		}
		if err.Phase != PhaseParse {
			t.Errorf("Phase = %v, want %v", err.Phase, PhaseParse)
		}
	})
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", FieldMissing(PhaseBuild, []string{"user"}, "name"))
	if !IsKind(err, KindFieldMissing) {
		t.Error("IsKind must see through wrapping")
	}
	if IsKind(err, KindTypeMismatch) {
		t.Error("IsKind matched the wrong kind")
	}
	if IsKind(errors.New("plain"), KindGeneric) {
		t.Error("plain errors have no kind")
	}
}
