// Package errors provides structured error types for the irlink toolchain.
//
// Errors are categorized by Phase (where in the link pipeline the error
// occurred) and Kind (error category). The Error type carries the offending
// module identifier, symbol name, and cause chain.
//
//	err := errors.New(errors.PhaseLink, errors.KindDuplicateSymbol,
//		"conflicting definitions").InModule("b.irt").AtSymbol("x")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
