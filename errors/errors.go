package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the link pipeline the error occurred
type Phase string

const (
	PhaseLoad    Phase = "load"    // reading module sources
	PhaseParse   Phase = "parse"   // textual/binary decoding
	PhaseVerify  Phase = "verify"  // module well-formedness checks
	PhaseLink    Phase = "link"    // merging into the destination
	PhaseImport  Phase = "import"  // selective function import
	PhasePromote Phase = "promote" // linkage promotion and renaming
	PhaseWrite   Phase = "write"   // serializing the destination
)

// Kind categorizes the error
type Kind string

const (
	KindIO              Kind = "io"
	KindInvalidData     Kind = "invalid_data"
	KindDuplicateSymbol Kind = "duplicate_symbol"
	KindBadDirective    Kind = "bad_directive"
	KindBadLinkage      Kind = "bad_linkage"
)

// Error is the structured error type used throughout the linker
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Module string
	Symbol string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Module != "" {
		b.WriteString(" in ")
		b.WriteString(e.Module)
	}
	if e.Symbol != "" {
		b.WriteString(" at ")
		b.WriteString(e.Symbol)
	}
	if e.Detail != "" {
		b.WriteString(": ")
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

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// New creates a structured error with a formatted detail message
func New(phase Phase, kind Kind, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{Phase: phase, Kind: kind, Detail: detail}
}

// Wrap creates a structured error around an underlying cause
func Wrap(phase Phase, kind Kind, cause error, detail string, args ...any) *Error {
	e := New(phase, kind, detail, args...)
	e.Cause = cause
	return e
}

// InModule attaches the offending module identifier
func (e *Error) InModule(name string) *Error {
	e.Module = name
	return e
}

// AtSymbol attaches the offending symbol name
func (e *Error) AtSymbol(name string) *Error {
	e.Symbol = name
	return e
}

// BadDirective creates an error for a malformed import directive
func BadDirective(directive string) *Error {
	return &Error{
		Phase:  PhaseImport,
		Kind:   KindBadDirective,
		Detail: fmt.Sprintf("import parameter bad format: %s", directive),
	}
}
