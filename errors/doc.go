// Package errors provides structured error types for livid.
//
// Errors are categorized by Phase (which step of the reload cycle failed)
// and Kind (error category). The Error type carries the file path, the
// column involved, a detail message and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLoad, errors.KindInvalidEnum).
//		Path("liblivid.so").
//		Column("total").
//		Detail("cell_type %d out of range", 7).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MissingExport(path, "columns")
//	err := errors.OutOfBounds(errors.PhaseABI, addr, 16)
//
// Compiler failures are reported as *ToolchainError, which also matches
// errors.Is(err, &Error{Phase: PhaseCompile, Kind: KindToolchain}).
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
