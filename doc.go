// Package irlink provides a library and command line driver for linking
// multiple IR modules into one.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	irlink/              Root package (documentation only)
//	├── ir/              In-memory module representation, binary container,
//	│                    verifier, debug metadata upgrade
//	├── irtext/          Textual IR form: s-expression parser and printer
//	├── linker/          The merge engine: conflict resolution, restricted
//	│                    merges, metadata merging
//	├── summary/         Module summary index and linkage promotion
//	├── driver/          The full pipeline: loading, sequencing, selective
//	│                    function import, diagnostics, output
//	├── errors/          Structured error types for debugging
//	└── cmd/irlink/      The command line tool
//
// # Quick Start
//
// Link two modules and print the result:
//
//	cfg := driver.DefaultConfig()
//	cfg.Inputs = []string{"a.irb", "b.irb"}
//	cfg.Textual = true
//
//	d := driver.New(cfg)
//	if err := d.Run(ctx); err != nil {
//	    os.Exit(1)
//	}
//
// # Linking Model
//
// Modules are merged strictly in order. Conflicts between definitions are
// resolved by linkage: overridable definitions (link_once, weak_any,
// weak_odr, common) yield to existing ones, strong duplicate definitions
// are an error. Override sources replace prior definitions outright, and
// with a summary index single functions can be imported out of peer
// modules together with their dependencies.
//
// # Thread Safety
//
// A Driver performs one run and is not safe for concurrent use. Modules
// are plain mutable data; callers share them across goroutines at their
// own risk.
package irlink
