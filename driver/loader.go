package driver

import (
	"context"

	"github.com/viant/afs"
	"go.uber.org/zap"

	irerrors "github.com/irlink/irlink/errors"
	"github.com/irlink/irlink/ir"
	"github.com/irlink/irlink/irtext"
)

// Loader reads one module by source identifier. Sources are URLs or plain
// file paths, resolved through an afs service so tests can use mem://.
type Loader struct {
	fs              afs.Service
	disableLazyLoad bool
}

// NewLoader creates a Loader. Lazy loading produces deferred modules whose
// bodies materialize on demand; disabling it fully parses everything.
func NewLoader(fs afs.Service, disableLazyLoad bool) *Loader {
	return &Loader{fs: fs, disableLazyLoad: disableLazyLoad}
}

// Load reads and decodes one module.
//
// Binary sources honor the lazy-loading setting; textual sources are
// always fully materialized. When materializeMetadata is set, metadata is
// pulled in eagerly and the debug info upgrade runs before the module is
// returned, so no consumer ever observes pre-upgrade debug metadata.
//
// On failure no partial module is retained.
func (l *Loader) Load(ctx context.Context, sourceID string, materializeMetadata bool) (*ir.Module, error) {
	Logger().Debug("loading module", zap.String("source", sourceID))

	data, err := l.fs.DownloadWithURL(ctx, sourceID)
	if err != nil {
		return nil, irerrors.Wrap(irerrors.PhaseLoad, irerrors.KindIO, err, "reading %s", sourceID)
	}

	var m *ir.Module
	switch {
	case ir.IsBinary(data) && !l.disableLazyLoad:
		m, err = ir.DecodeLazy(sourceID, data)
	case ir.IsBinary(data):
		m, err = ir.Decode(sourceID, data)
	default:
		m, err = irtext.Parse(sourceID, data)
	}
	if err != nil {
		return nil, irerrors.Wrap(irerrors.PhaseParse, irerrors.KindInvalidData, err, "decoding %s", sourceID)
	}

	if materializeMetadata {
		if err := m.MaterializeMetadata(); err != nil {
			return nil, irerrors.Wrap(irerrors.PhaseParse, irerrors.KindInvalidData, err, "metadata of %s", sourceID)
		}
		ir.UpgradeDebugInfo(m)
	}
	return m, nil
}
