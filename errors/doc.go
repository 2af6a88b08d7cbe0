// Package errors provides structured error types for go-facet.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the field path, the shapes involved, and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseBuild, errors.KindTypeMismatch).
//		Path("user", "age").
//		Expected("uint64").
//		Actual("string").
//		Detail("cannot store string in uint64 slot").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseBuild, path, "uint64", "string")
//	err := errors.OutOfBounds(errors.PhasePeek, path, 10, 5)
//
// All errors implement the standard error interface and support errors.Is/As.
// A target with an empty Phase matches errors of that Kind from any phase.
package errors
