package ir

import "fmt"

// Linkage describes how a global participates in symbol resolution when
// modules are merged.
type Linkage byte

const (
	// External globals are visible to every module and must have exactly
	// one definition in the final program.
	External Linkage = iota
	// Internal globals are local to their defining module.
	Internal
	// LinkOnce globals may be defined in several modules; any one
	// definition may be kept and unreferenced copies discarded.
	LinkOnce
	// WeakAny globals may be defined in several modules; an arbitrary
	// definition is selected by the merge engine.
	WeakAny
	// WeakODR globals may be defined in several modules but every
	// definition is known to be equivalent.
	WeakODR
	// Common globals are tentative definitions merged by size.
	Common

	linkageCount
)

var linkageNames = map[Linkage]string{
	External: "external",
	Internal: "internal",
	LinkOnce: "link_once",
	WeakAny:  "weak_any",
	WeakODR:  "weak_odr",
	Common:   "common",
}

func (l Linkage) String() string {
	if s, ok := linkageNames[l]; ok {
		return s
	}
	return fmt.Sprintf("linkage(%d)", byte(l))
}

// Valid reports whether l is a known linkage value.
func (l Linkage) Valid() bool {
	return l < linkageCount
}

// IsLocal reports whether the global is invisible outside its module.
func (l Linkage) IsLocal() bool {
	return l == Internal
}

// IsOverridable reports whether a colliding definition from another module
// may replace a definition with this linkage without error.
func (l Linkage) IsOverridable() bool {
	switch l {
	case LinkOnce, WeakAny, WeakODR, Common:
		return true
	}
	return false
}

// ParseLinkage maps a textual linkage keyword to its Linkage value.
func ParseLinkage(s string) (Linkage, bool) {
	for l, name := range linkageNames {
		if name == s {
			return l, true
		}
	}
	return 0, false
}

// GlobalKind distinguishes functions from data globals.
type GlobalKind byte

const (
	KindFunc GlobalKind = iota
	KindVar
)

func (k GlobalKind) String() string {
	if k == KindFunc {
		return "func"
	}
	return "var"
}

// Op is a body instruction opcode.
type Op byte

const (
	OpConst Op = iota // push an integer constant
	OpRef             // reference a data global by name
	OpCall            // call a function by name
	OpRet             // return
)

func (o Op) String() string {
	switch o {
	case OpConst:
		return "const"
	case OpRef:
		return "ref"
	case OpCall:
		return "call"
	case OpRet:
		return "ret"
	}
	return fmt.Sprintf("op(%d)", byte(o))
}

// Instr is a single body instruction. Sym is set for OpRef/OpCall,
// Val for OpConst.
type Instr struct {
	Sym string
	Val int64
	Op  Op
}

// Body holds the materialized instruction list of a defined global.
type Body struct {
	Instrs []Instr
}

// Refs returns the names of all globals referenced by the body, in first
// occurrence order, without duplicates.
func (b *Body) Refs() []string {
	var names []string
	seen := map[string]bool{}
	for _, in := range b.Instrs {
		if in.Sym == "" || seen[in.Sym] {
			continue
		}
		seen[in.Sym] = true
		names = append(names, in.Sym)
	}
	return names
}

// Global is a named function or variable within a module.
//
// A global is either a declaration (no definition anywhere in this module),
// a deferred definition (body bytes present but not yet decoded), or a
// materialized definition (Body populated).
type Global struct {
	Body    *Body
	Name    string
	raw     []byte
	Kind    GlobalKind
	Linkage Linkage

	defined      bool
	materialized bool
}

// NewGlobal creates a materialized global with the given body. A nil body
// produces a declaration.
func NewGlobal(name string, kind GlobalKind, linkage Linkage, body *Body) *Global {
	g := &Global{Name: name, Kind: kind, Linkage: linkage}
	if body != nil {
		g.Body = body
		g.defined = true
		g.materialized = true
	}
	return g
}

// IsDeclaration reports whether the global has no definition in its module.
func (g *Global) IsDeclaration() bool {
	return !g.defined
}

// Materialized reports whether the body has been decoded (declarations are
// trivially materialized).
func (g *Global) Materialized() bool {
	return !g.defined || g.materialized
}

// Materialize decodes the deferred body. It is idempotent.
func (g *Global) Materialize() error {
	if g.Materialized() {
		return nil
	}
	body, err := decodeBody(g.raw)
	if err != nil {
		return fmt.Errorf("materialize %s: %w", g.Name, err)
	}
	g.Body = body
	g.raw = nil
	g.materialized = true
	return nil
}
