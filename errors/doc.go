// Package errors provides structured error types for the embedding boundary.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries a path, expected and actual type names, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCall, errors.KindTypeMismatch).
//		Path("add", "arg0").
//		Want("i32").
//		Got("f64").
//		Detail("argument type does not match signature").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.CallFailed("add", cause)
//	err := errors.WrongExportKind("memory", "function", "memory")
//
// All errors implement the standard error interface and support errors.Is/As.
// HasKind walks the cause chain looking for a kind.
package errors
