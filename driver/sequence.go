package driver

import (
	"context"

	"go.uber.org/zap"

	"github.com/irlink/irlink/ir"
	"github.com/irlink/irlink/linker"
	"github.com/irlink/irlink/summary"
)

// linkFiles merges an ordered source list into the destination.
//
// The first element is merged with every flag except override semantics
// cleared: internalize would demote the initial module's own externals and
// only-needed would link nothing into an empty destination. Subsequent
// elements get the full flag set. A false return means the failure has
// already been diagnosed and the run must abort.
func (d *Driver) linkFiles(ctx context.Context, files []string, flags linker.Flags) bool {
	applicable := flags & linker.FlagOverrideFromSrc
	for _, file := range files {
		m, err := d.loader.Load(ctx, file, true)
		if err != nil {
			d.diag.Errorf("error loading file '%s': %v", file, err)
			return false
		}

		// With structure uniquing enabled the merge engine performs these
		// checks itself; verifying here as well would duplicate (and
		// possibly contradict) its diagnostics.
		if d.cfg.DisableTypeUniquing {
			if err := ir.Verify(m); err != nil {
				d.diag.Errorf("%s: input module is broken: %v", file, err)
				return false
			}
		}

		if d.index != nil {
			d.index.PromoteAllLocals()
			aborted, err := summary.Rename(m, d.index, nil)
			if err != nil {
				d.diag.Errorf("promotion failed for '%s': %v", file, err)
				return false
			}
			if aborted != nil {
				Logger().Info("promotion aborted, finishing early", zap.String("reason", aborted.String()))
				return true
			}
		}

		Logger().Info("linking in module", zap.String("source", file))
		if err := d.link.LinkInModule(m, applicable, nil); err != nil {
			d.diag.Errorf("%v", err)
			return false
		}
		// All linker flags apply to the remaining files.
		applicable = flags
	}
	return true
}
