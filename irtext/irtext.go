// Package irtext implements the textual IR form: an s-expression syntax
// parsed into ir.Module and printed back deterministically.
//
//	(module $a.irt
//	  (meta "debug.version" "3")
//	  (func $f external (call $g) (ret))
//	  (func $g internal (const 1) (ret))
//	  (var  $x weak_odr (const 7))
//	  (func $puts external declare))
//
// Textual modules are always fully materialized; the lazy path exists only
// for the binary container.
package irtext

import (
	"fmt"
	"io"
	"sort"

	"github.com/irlink/irlink/ir"
	"github.com/irlink/irlink/irtext/internal/parser"
	"github.com/irlink/irlink/irtext/internal/token"
)

// Parse parses textual IR. The name becomes the module's source identifier;
// an in-file module name is accepted and ignored.
func Parse(name string, source []byte) (*ir.Module, error) {
	tokens := token.Tokenize(string(source))
	return parser.New(name, tokens).Parse()
}

// Print writes the module in textual form. When preserveOrder is false
// (the textual default) globals are printed sorted by name, which keeps
// output stable across runs that assemble the module in different orders.
//
// Print forces materialization of every body, since deferred bodies exist
// only in binary encoded form.
func Print(w io.Writer, m *ir.Module, preserveOrder bool) error {
	if err := m.MaterializeAll(); err != nil {
		return err
	}
	if err := m.MaterializeMetadata(); err != nil {
		return err
	}

	globals := m.Globals
	if !preserveOrder {
		globals = append([]*ir.Global(nil), m.Globals...)
		sort.Slice(globals, func(i, j int) bool { return globals[i].Name < globals[j].Name })
	}

	if _, err := fmt.Fprintf(w, "(module $%s\n", m.Name); err != nil {
		return err
	}

	keys := make([]string, 0, len(m.Meta))
	for k := range m.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "  (meta %q %q)\n", k, m.Meta[k]); err != nil {
			return err
		}
	}

	for _, g := range globals {
		if err := printGlobal(w, g); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, ")")
	return err
}

func printGlobal(w io.Writer, g *ir.Global) error {
	if g.IsDeclaration() {
		_, err := fmt.Fprintf(w, "  (%s $%s %s declare)\n", g.Kind, g.Name, g.Linkage)
		return err
	}
	if _, err := fmt.Fprintf(w, "  (%s $%s %s", g.Kind, g.Name, g.Linkage); err != nil {
		return err
	}
	for _, in := range g.Body.Instrs {
		var err error
		switch in.Op {
		case ir.OpConst:
			_, err = fmt.Fprintf(w, " (const %d)", in.Val)
		case ir.OpRef, ir.OpCall:
			_, err = fmt.Fprintf(w, " (%s $%s)", in.Op, in.Sym)
		case ir.OpRet:
			_, err = fmt.Fprint(w, " (ret)")
		}
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, ")")
	return err
}
