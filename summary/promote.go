package summary

import (
	"fmt"

	"github.com/minio/highwayhash"

	irerrors "github.com/irlink/irlink/errors"
	"github.com/irlink/irlink/ir"
)

// hashKey is 32 bytes, fixed so promoted names are stable across runs.
var hashKey = []byte("irlink.promote.0123456789ABCDEF0")

// PromotionAborted is the named policy for "renaming was impossible":
// a local global needed promotion but the index has no entry for it.
// Callers treat the surrounding phase as successfully complete rather
// than failed, matching runs that request import without a usable
// summary.
type PromotionAborted struct {
	Module string
	Symbol string
}

func (p *PromotionAborted) String() string {
	return fmt.Sprintf("promotion aborted: no summary entry for %s in %s", p.Symbol, p.Module)
}

// Rename applies linkage promotion and renaming to m, driven by the index.
//
// Locals that the index marks non-local are promoted to external linkage
// under a module-unique name, and every reference inside the affected
// scope is rewritten. When only is nil the whole module is in scope;
// otherwise scope is the import set plus the local definitions it
// transitively depends on.
//
// The returned *PromotionAborted is non-nil when renaming was impossible;
// per policy that is not an error.
func Rename(m *ir.Module, idx *Index, only map[*ir.Global]bool) (*PromotionAborted, error) {
	scope, err := renameScope(m, only)
	if err != nil {
		return nil, err
	}

	renames := map[string]string{}
	for _, g := range scope {
		if !g.Linkage.IsLocal() {
			continue
		}
		entry := idx.Lookup(g.Name)
		if entry == nil {
			return &PromotionAborted{Module: m.Name, Symbol: g.Name}, nil
		}
		target, _ := ir.ParseLinkage(entry.Linkage)
		if target.IsLocal() {
			continue
		}
		orig := g.Name
		promoted := PromotedName(orig, m.Name)
		if err := m.RenameGlobal(orig, promoted); err != nil {
			return nil, irerrors.Wrap(irerrors.PhasePromote, irerrors.KindDuplicateSymbol, err,
				"promoting %s", orig).InModule(m.Name)
		}
		renames[orig] = promoted
		g.Linkage = ir.External
	}
	if len(renames) == 0 {
		return nil, nil
	}

	// Rewrite references throughout the scope. With a whole-module scope
	// also rewrite the rest of the materialized bodies, since any of them
	// may name a promoted local.
	rewrite := scope
	if only == nil {
		rewrite = nil
		for _, g := range m.Globals {
			if g.Materialized() {
				rewrite = append(rewrite, g)
			}
		}
	}
	for _, g := range rewrite {
		if g.Body == nil {
			continue
		}
		for i, in := range g.Body.Instrs {
			if in.Sym == "" {
				continue
			}
			if promoted, ok := renames[in.Sym]; ok {
				g.Body.Instrs[i].Sym = promoted
			}
		}
	}
	return nil, nil
}

// PromotedName derives the external name for a promoted local: the
// original name suffixed with a stable hash of its defining module.
func PromotedName(name, module string) string {
	return fmt.Sprintf("%s.promoted.%016x", name, moduleHash(module))
}

func moduleHash(module string) uint64 {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		// Key length is a compile-time constant; New64 cannot fail.
		panic(err)
	}
	h.Write([]byte(module))
	return h.Sum64()
}

// renameScope computes the set of globals the pass may touch.
func renameScope(m *ir.Module, only map[*ir.Global]bool) ([]*ir.Global, error) {
	if only == nil {
		if err := m.MaterializeAll(); err != nil {
			return nil, irerrors.Wrap(irerrors.PhasePromote, irerrors.KindIO, err,
				"materializing %s", m.Name)
		}
		return m.Globals, nil
	}

	var scope []*ir.Global
	seen := map[*ir.Global]bool{}
	var queue []*ir.Global
	for _, g := range m.Globals {
		if only[g] && !seen[g] {
			seen[g] = true
			queue = append(queue, g)
		}
	}
	for len(queue) > 0 {
		g := queue[0]
		queue = queue[1:]
		if err := g.Materialize(); err != nil {
			return nil, irerrors.Wrap(irerrors.PhasePromote, irerrors.KindIO, err,
				"materializing %s", g.Name).InModule(m.Name)
		}
		scope = append(scope, g)
		if g.Body == nil {
			continue
		}
		for _, ref := range g.Body.Refs() {
			dep := m.Global(ref)
			if dep == nil || seen[dep] || !dep.Linkage.IsLocal() {
				continue
			}
			seen[dep] = true
			queue = append(queue, dep)
		}
	}
	return scope, nil
}
