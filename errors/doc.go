// Package errors provides structured error types for the ffi-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: the field or argument
// path, Go and C type names, the affected symbol, and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
//		Path("timespec", "tv_sec").
//		GoType("string").
//		CType("long").
//		Detail("cannot convert string to integer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Incomplete(errors.PhaseType, "struct timeval")
//	err := errors.OutOfBounds(errors.PhaseMarshal, path, 10, 5)
//
// None of the conditions in this taxonomy are transient: every Kind marks
// either a misuse of the API (incomplete_type, sealed_type, unsupported,
// out_of_bounds) or an unrecoverable platform condition (abi_preparation,
// allocation). native_errno is a reporting condition: the native call
// already completed and its side effects stand.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
