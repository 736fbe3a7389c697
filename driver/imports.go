package driver

import (
	"context"
	"strings"

	"go.uber.org/zap"

	irerrors "github.com/irlink/irlink/errors"
	"github.com/irlink/irlink/ir"
	"github.com/irlink/irlink/linker"
	"github.com/irlink/irlink/summary"
)

// importFunctions pulls individual functions out of peer modules, as a
// split-compilation backend would, and merges exactly those definitions
// (plus their dependencies) into the destination.
//
// Without a summary index the whole phase is disabled. A false return
// means a fatal, already-diagnosed failure.
func (d *Driver) importFunctions(ctx context.Context) bool {
	if d.index == nil {
		return true
	}

	cache := newModuleCache(d.loader)
	verified := map[string]bool{}
	// Requested globals grouped by owning source, so each touched module
	// is promoted and merged exactly once no matter how many directives
	// name it.
	importSets := map[string]map[*ir.Global]bool{}

	for _, directive := range d.cfg.Imports {
		colon := strings.Index(directive, ":")
		if colon < 0 {
			d.diag.Errorf("%v", irerrors.BadDirective(directive))
			return false
		}
		funcName, sourceID := directive[:colon], directive[colon+1:]

		src, err := cache.Get(ctx, sourceID)
		if err != nil {
			d.diag.Errorf("error loading file '%s': %v", sourceID, err)
			return false
		}

		if !verified[sourceID] {
			verified[sourceID] = true
			if err := ir.Verify(src); err != nil {
				d.diag.Errorf("%s: input module is broken: %v", sourceID, err)
				return false
			}
		}

		f := src.Global(funcName)
		if f == nil || f.Kind != ir.KindFunc || f.IsDeclaration() {
			d.diag.Warnf("ignoring import request for non-existent function %s from %s", funcName, sourceID)
			continue
		}
		// Importing a weak-any definition would bias which occurrence the
		// final link selects, silently changing program semantics.
		if f.Linkage == ir.WeakAny {
			d.diag.Warnf("ignoring import request for weak-any function %s from %s", funcName, sourceID)
			continue
		}

		Logger().Info("importing function",
			zap.String("function", funcName), zap.String("source", sourceID))

		if err := f.Materialize(); err != nil {
			d.diag.Errorf("error materializing %s from '%s': %v", funcName, sourceID, err)
			return false
		}
		set, ok := importSets[sourceID]
		if !ok {
			set = map[*ir.Global]bool{}
			importSets[sourceID] = set
		}
		set[f] = true
	}

	// Merge phase: one promotion and one restricted merge per module.
	for sourceID, set := range importSets {
		src := cache.Take(sourceID)

		// Lazy cache fills skipped metadata; pull it in before merging.
		// Both calls are no-ops if the work already happened.
		if err := src.MaterializeMetadata(); err != nil {
			d.diag.Errorf("%s: %v", sourceID, err)
			return false
		}
		ir.UpgradeDebugInfo(src)

		aborted, err := summary.Rename(src, d.index, set)
		if err != nil {
			d.diag.Errorf("promotion failed for '%s': %v", sourceID, err)
			return false
		}
		if aborted != nil {
			Logger().Info("promotion aborted, finishing import early", zap.String("reason", aborted.String()))
			return true
		}

		if err := d.link.LinkInModule(src, linker.FlagDontForceLinkOnce, set); err != nil {
			d.diag.Errorf("%v", err)
			return false
		}
	}
	return true
}
