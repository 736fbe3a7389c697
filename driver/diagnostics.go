package driver

import (
	"fmt"
	"io"
)

// Severity classifies a diagnostic. Only errors and warnings exist;
// reporting anything else is a programming fault.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostics is the severity-filtered reporter shared by every component
// of a run. Warnings are suppressible as a whole; errors never are.
type Diagnostics struct {
	w                io.Writer
	suppressWarnings bool
}

// NewDiagnostics creates a reporter writing to w.
func NewDiagnostics(w io.Writer, suppressWarnings bool) *Diagnostics {
	return &Diagnostics{w: w, suppressWarnings: suppressWarnings}
}

// Report emits one diagnostic line.
func (d *Diagnostics) Report(sev Severity, format string, args ...any) {
	switch sev {
	case SeverityError:
		fmt.Fprintf(d.w, "ERROR: "+format+"\n", args...)
	case SeverityWarning:
		if d.suppressWarnings {
			return
		}
		fmt.Fprintf(d.w, "WARNING: "+format+"\n", args...)
	default:
		panic(fmt.Sprintf("diagnostics: unexpected severity %d; only errors and warnings exist", sev))
	}
}

// Errorf reports an error diagnostic.
func (d *Diagnostics) Errorf(format string, args ...any) {
	d.Report(SeverityError, format, args...)
}

// Warnf reports a warning diagnostic.
func (d *Diagnostics) Warnf(format string, args ...any) {
	d.Report(SeverityWarning, format, args...)
}
