package linker

import "strings"

// LinkError provides context when merging a source module fails. After a
// LinkError the destination module is in an unspecified partially merged
// state; callers must abort the run without writing output.
type LinkError struct {
	Cause  error
	Module string
	Symbol string
	Reason string
}

func (e *LinkError) Error() string {
	var b strings.Builder
	b.WriteString("link failed")

	if e.Module != "" {
		b.WriteString(" for ")
		b.WriteString(e.Module)
	}
	if e.Symbol != "" {
		b.WriteString(": ")
		b.WriteString(e.Symbol)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *LinkError) Unwrap() error {
	return e.Cause
}
