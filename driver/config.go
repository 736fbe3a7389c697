package driver

import "io"

// Config carries every knob the driver honors. It is threaded explicitly
// through all components so nothing reads process-global state.
type Config struct {
	// Diagnostics is the stream warnings and errors are written to.
	// Defaults to os.Stderr when nil.
	Diagnostics io.Writer
	// Stdout receives the output artifact when Output is "-".
	// Defaults to os.Stdout when nil.
	Stdout io.Writer

	// Inputs is the primary source list; it must be non-empty.
	Inputs []string
	// Overrides are merged after Inputs with override semantics forced on.
	Overrides []string
	// Imports holds "function:source" directives for selective import.
	Imports []string

	// SummaryURL locates the module summary index. Empty disables both
	// selective import and cross-module promotion.
	SummaryURL string
	// Output is the destination artifact; "-" writes to Stdout.
	Output string

	// Textual selects the textual output form over the binary container.
	Textual bool
	// Force writes binary output to Stdout even when it is a terminal.
	Force bool
	// PreserveTextOrder keeps definition order in textual output.
	PreserveTextOrder bool
	// PreserveBinaryOrder keeps definition order in binary output.
	PreserveBinaryOrder bool

	// Internalize demotes linked symbols to internal linkage.
	Internalize bool
	// OnlyNeeded links only symbols the destination already needs.
	OnlyNeeded bool
	// DisableLazyLoad fully materializes every module at load time.
	DisableLazyLoad bool
	// DisableTypeUniquing turns off merge-time structure uniquing, which
	// re-enables early per-module verification before each merge.
	DisableTypeUniquing bool
	// SuppressWarnings drops warning diagnostics; errors always surface.
	SuppressWarnings bool
	// DumpAfterLink prints the linked module to the diagnostics stream
	// before verification, as a debugging aid.
	DumpAfterLink bool
}

// DefaultConfig returns a Config with the documented defaults: textual
// output does not preserve definition order, binary output does.
func DefaultConfig() Config {
	return Config{
		Output:              "-",
		PreserveBinaryOrder: true,
	}
}
