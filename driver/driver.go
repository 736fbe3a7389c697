package driver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"

	"github.com/viant/afs"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/irlink/irlink/ir"
	"github.com/irlink/irlink/irtext"
	"github.com/irlink/irlink/linker"
	"github.com/irlink/irlink/summary"
)

// ErrFailed is returned by Run after a fatal condition. The details have
// already been written to the diagnostics stream; callers should exit
// non-zero without further reporting.
var ErrFailed = errors.New("linking failed")

// Driver owns one whole link run: the destination module, the merge
// sequencer, and the selective import engine.
type Driver struct {
	cfg    Config
	fs     afs.Service
	diag   *Diagnostics
	loader *Loader
	dest   *ir.Module
	link   *linker.Linker
	index  *summary.Index
}

// New creates a Driver for one run of the given configuration.
func New(cfg Config) *Driver {
	if cfg.Diagnostics == nil {
		cfg.Diagnostics = os.Stderr
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	fs := afs.New()
	d := &Driver{
		cfg:    cfg,
		fs:     fs,
		diag:   NewDiagnostics(cfg.Diagnostics, cfg.SuppressWarnings),
		loader: NewLoader(fs, cfg.DisableLazyLoad),
		dest:   ir.NewModule("irlink"),
	}
	d.link = linker.New(d.dest)
	d.link.SetWarnFunc(d.diag.Warnf)
	return d
}

// Run executes the full pipeline: primary list, override list, selective
// import, verification, and serialization. On any fatal condition the
// failure is diagnosed, no artifact is written, and ErrFailed is returned.
func (d *Driver) Run(ctx context.Context) error {
	if len(d.cfg.Inputs) == 0 {
		d.diag.Errorf("no input files given")
		return ErrFailed
	}

	if d.cfg.SummaryURL != "" {
		idx, err := summary.Load(ctx, d.fs, d.cfg.SummaryURL)
		if err != nil {
			d.diag.Errorf("%v", err)
			return ErrFailed
		}
		d.index = idx
	}

	flags := linker.FlagNone
	if d.cfg.Internalize {
		flags |= linker.FlagInternalizeLinked
	}
	if d.cfg.OnlyNeeded {
		flags |= linker.FlagLinkOnlyNeeded
	}

	if !d.linkFiles(ctx, d.cfg.Inputs, flags) {
		return ErrFailed
	}
	// Override sources merge into an already populated destination, so the
	// override flag applies from their first element on.
	if !d.linkFiles(ctx, d.cfg.Overrides, flags|linker.FlagOverrideFromSrc) {
		return ErrFailed
	}
	if !d.importFunctions(ctx) {
		return ErrFailed
	}

	if d.cfg.DumpAfterLink {
		if err := irtext.Print(d.cfg.Diagnostics, d.dest, true); err != nil {
			d.diag.Errorf("dump failed: %v", err)
			return ErrFailed
		}
	}

	if err := ir.Verify(d.dest); err != nil {
		d.diag.Errorf("linked module is broken: %v", err)
		return ErrFailed
	}

	if err := d.write(ctx); err != nil {
		d.diag.Errorf("%v", err)
		return ErrFailed
	}
	return nil
}

// Destination exposes the composite module; tests use it to inspect the
// result without round-tripping through serialization.
func (d *Driver) Destination() *ir.Module {
	return d.dest
}

func (d *Driver) write(ctx context.Context) error {
	Logger().Info("writing output", zap.String("output", d.cfg.Output))

	// Binary output sprayed at an interactive terminal is never what the
	// user meant; require an explicit opt-in.
	if d.cfg.Output == "-" && !d.cfg.Textual && !d.cfg.Force && isTerminal(d.cfg.Stdout) {
		return errors.New("refusing to write binary output to a terminal; use --force to override, or -S for the textual form")
	}

	var payload []byte
	if d.cfg.Textual {
		var buf bytes.Buffer
		if err := irtext.Print(&buf, d.dest, d.cfg.PreserveTextOrder); err != nil {
			return err
		}
		payload = buf.Bytes()
	} else {
		payload = d.dest.Encode(d.cfg.PreserveBinaryOrder)
	}

	if d.cfg.Output == "-" {
		_, err := d.cfg.Stdout.Write(payload)
		return err
	}
	return d.fs.Upload(ctx, d.cfg.Output, 0644, bytes.NewReader(payload))
}

// isTerminal reports whether w is backed by an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
