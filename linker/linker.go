package linker

import (
	"fmt"

	"github.com/irlink/irlink/ir"
)

// Flags alter how a source module is merged into the destination.
type Flags uint32

const (
	FlagNone Flags = 0

	// FlagOverrideFromSrc makes source definitions replace existing
	// destination definitions regardless of linkage.
	FlagOverrideFromSrc Flags = 1 << iota
	// FlagLinkOnlyNeeded links only source definitions the destination
	// already needs (declared or referenced but undefined).
	FlagLinkOnlyNeeded
	// FlagInternalizeLinked demotes linked-in definitions to internal
	// linkage after the merge.
	FlagInternalizeLinked
	// FlagDontForceLinkOnce stops the linker from pulling in link_once
	// definitions that are merely referenced; a declaration is emitted
	// instead. Used by function import so only requested symbols cross.
	FlagDontForceLinkOnce
)

// WarnFunc receives non-fatal merge diagnostics.
type WarnFunc func(format string, args ...any)

// Linker accumulates source modules into a single destination module.
// The destination is owned by the Linker's creator; source modules are
// consumed by LinkInModule and must not be used afterwards.
type Linker struct {
	dest *ir.Module
	warn WarnFunc
}

// New creates a Linker over the destination module.
func New(dest *ir.Module) *Linker {
	return &Linker{dest: dest, warn: func(string, ...any) {}}
}

// SetWarnFunc installs a sink for non-fatal merge diagnostics.
func (l *Linker) SetWarnFunc(fn WarnFunc) {
	if fn != nil {
		l.warn = fn
	}
}

// LinkInModule merges src into the destination and consumes it.
//
// When only is non-nil, merging is restricted to exactly the globals in
// only (matched by identity, so renames do not detach members) plus their
// transitive dependencies; nothing else crosses. On error the destination
// is left in an unspecified partially merged state and the whole run must
// be abandoned.
func (l *Linker) LinkInModule(src *ir.Module, flags Flags, only map[*ir.Global]bool) error {
	sel, err := l.selectGlobals(src, flags, only)
	if err != nil {
		return err
	}

	// Locals colliding with destination names are renamed before moving.
	renames := map[string]string{}
	for _, g := range sel.defs {
		if !g.Linkage.IsLocal() || l.dest.Global(g.Name) == nil {
			continue
		}
		fresh := l.freshName(g.Name)
		renames[g.Name] = fresh
		if err := src.RenameGlobal(g.Name, fresh); err != nil {
			return &LinkError{Module: src.Name, Symbol: g.Name, Reason: "local rename failed", Cause: err}
		}
	}
	if len(renames) > 0 {
		for _, g := range sel.defs {
			rewriteRefs(g, renames)
		}
	}

	for _, g := range sel.defs {
		if err := l.linkDefinition(src, g, flags); err != nil {
			return err
		}
	}
	for _, d := range sel.decls {
		if l.dest.Global(d.Name) != nil {
			continue
		}
		decl := ir.NewGlobal(d.Name, d.Kind, ir.External, nil)
		if err := l.dest.AddGlobal(decl); err != nil {
			return &LinkError{Module: src.Name, Symbol: d.Name, Reason: "adding declaration", Cause: err}
		}
	}

	l.mergeMetadata(src)
	return nil
}

// selection is the outcome of the selection phase: definitions to move and
// names that only need a declaration in the destination.
type selection struct {
	defs  []*ir.Global
	decls []*ir.Global
}

func (l *Linker) selectGlobals(src *ir.Module, flags Flags, only map[*ir.Global]bool) (*selection, error) {
	if only != nil {
		return l.closeOver(src, flags, membersOf(src, only))
	}
	if flags&FlagLinkOnlyNeeded != 0 {
		return l.closeOver(src, flags, l.neededMembers(src))
	}

	sel := &selection{}
	for _, g := range src.Globals {
		if g.IsDeclaration() {
			sel.decls = append(sel.decls, g)
			continue
		}
		if err := g.Materialize(); err != nil {
			return nil, &LinkError{Module: src.Name, Symbol: g.Name, Reason: "materialize failed", Cause: err}
		}
		sel.defs = append(sel.defs, g)
	}
	return sel, nil
}

// membersOf returns the requested import members in module order. Only
// globals actually owned by src can match; same-named strangers cannot.
func membersOf(src *ir.Module, only map[*ir.Global]bool) []*ir.Global {
	var members []*ir.Global
	for _, g := range src.Globals {
		if only[g] {
			members = append(members, g)
		}
	}
	return members
}

// neededMembers finds the source definitions the destination already wants:
// names the destination declares without defining, or references from a
// materialized body without resolving.
func (l *Linker) neededMembers(src *ir.Module) []*ir.Global {
	needed := map[string]bool{}
	for _, g := range l.dest.Globals {
		if g.IsDeclaration() {
			needed[g.Name] = true
		}
		if g.Materialized() && g.Body != nil {
			for _, ref := range g.Body.Refs() {
				if l.dest.Global(ref) == nil {
					needed[ref] = true
				}
			}
		}
	}

	var members []*ir.Global
	for _, g := range src.Globals {
		if !g.IsDeclaration() && needed[g.Name] {
			members = append(members, g)
		}
	}
	return members
}

// closeOver expands a member set with its transitive dependencies.
// Local dependencies always travel with their users. Non-local dependencies
// are pulled in when defined link_once (unless FlagDontForceLinkOnce);
// everything else degrades to a declaration in the destination.
func (l *Linker) closeOver(src *ir.Module, flags Flags, members []*ir.Global) (*selection, error) {
	sel := &selection{}
	inDefs := map[string]bool{}
	inDecls := map[string]bool{}

	var queue []*ir.Global
	for _, g := range members {
		if !inDefs[g.Name] {
			inDefs[g.Name] = true
			queue = append(queue, g)
		}
	}

	for len(queue) > 0 {
		g := queue[0]
		queue = queue[1:]

		if err := g.Materialize(); err != nil {
			return nil, &LinkError{Module: src.Name, Symbol: g.Name, Reason: "materialize failed", Cause: err}
		}
		sel.defs = append(sel.defs, g)
		if g.Body == nil {
			continue
		}

		for _, ref := range g.Body.Refs() {
			if inDefs[ref] || inDecls[ref] {
				continue
			}
			target := src.Global(ref)
			if target == nil {
				return nil, &LinkError{Module: src.Name, Symbol: ref, Reason: "unresolved dependency"}
			}
			pull := false
			switch {
			case target.IsDeclaration():
			case target.Linkage.IsLocal():
				pull = true
			case target.Linkage == ir.LinkOnce && flags&FlagDontForceLinkOnce == 0:
				pull = true
			}
			if pull {
				inDefs[ref] = true
				queue = append(queue, target)
			} else {
				inDecls[ref] = true
				sel.decls = append(sel.decls, target)
			}
		}
	}
	return sel, nil
}

// linkDefinition moves one defined global into the destination, resolving
// conflicts by linkage.
func (l *Linker) linkDefinition(src *ir.Module, g *ir.Global, flags Flags) error {
	internalize := func(moved *ir.Global) {
		if flags&FlagInternalizeLinked != 0 && !moved.Linkage.IsLocal() {
			moved.Linkage = ir.Internal
		}
	}

	existing := l.dest.Global(g.Name)
	if existing == nil {
		if err := l.dest.AddGlobal(g); err != nil {
			return &LinkError{Module: src.Name, Symbol: g.Name, Reason: "adding definition", Cause: err}
		}
		internalize(g)
		return nil
	}

	if existing.IsDeclaration() {
		l.replace(existing, g)
		internalize(g)
		return nil
	}

	switch {
	case flags&FlagOverrideFromSrc != 0:
		l.replace(existing, g)
		internalize(g)
	case g.Linkage.IsOverridable():
		// Destination definition wins; the source copy is dropped.
		if g.Linkage == ir.WeakAny && existing.Linkage == ir.WeakAny {
			l.warn("selecting %s definition from %s over %s", g.Name, l.dest.Name, src.Name)
		}
	case existing.Linkage.IsOverridable():
		l.replace(existing, g)
		internalize(g)
	default:
		return &LinkError{
			Module: src.Name,
			Symbol: g.Name,
			Reason: "symbol multiply defined",
		}
	}
	return nil
}

// replace swaps a destination global for the incoming one, keeping its
// position so merge order stays observable in the output.
func (l *Linker) replace(old, incoming *ir.Global) {
	for i, g := range l.dest.Globals {
		if g == old {
			l.dest.RemoveGlobal(old.Name)
			if err := l.dest.AddGlobal(incoming); err != nil {
				// Unreachable: the slot was just vacated.
				panic(fmt.Sprintf("linker: replace %s: %v", incoming.Name, err))
			}
			// AddGlobal appends; restore the original slot.
			moved := l.dest.Globals[len(l.dest.Globals)-1]
			copy(l.dest.Globals[i+1:], l.dest.Globals[i:len(l.dest.Globals)-1])
			l.dest.Globals[i] = moved
			return
		}
	}
}

func (l *Linker) mergeMetadata(src *ir.Module) {
	for k, v := range src.Meta {
		if have, ok := l.dest.Meta[k]; ok {
			if have != v {
				l.warn("conflicting values for metadata %q: keeping %q, ignoring %q from %s",
					k, have, v, src.Name)
			}
			continue
		}
		l.dest.Meta[k] = v
	}
}

// freshName picks a destination-unique name for a colliding local.
func (l *Linker) freshName(base string) string {
	for i := 1; ; i++ {
		cand := fmt.Sprintf("%s.%d", base, i)
		if l.dest.Global(cand) == nil {
			return cand
		}
	}
}

func rewriteRefs(g *ir.Global, renames map[string]string) {
	if g.Body == nil {
		return
	}
	for i, in := range g.Body.Instrs {
		if in.Sym == "" {
			continue
		}
		if fresh, ok := renames[in.Sym]; ok {
			g.Body.Instrs[i].Sym = fresh
		}
	}
}
