// Package summary implements the module summary index and the linkage
// promotion pass driven by it.
//
// The index is a YAML document listing every global the split pipeline
// knows about, with its defining module and linkage:
//
//	globals:
//	  - name: helper
//	    module: a.irb
//	    linkage: internal
//
// A present-but-empty index is valid and distinct from having no index at
// all: it still enables the promotion and import code paths, which then
// act as no-ops or abort per policy.
package summary

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	irerrors "github.com/irlink/irlink/errors"
	"github.com/irlink/irlink/ir"
)

// Entry describes one global known to the summary index.
type Entry struct {
	Name    string `yaml:"name"`
	Module  string `yaml:"module"`
	Linkage string `yaml:"linkage"`
}

// Index is a parsed module summary.
type Index struct {
	byName  map[string]*Entry
	Globals []Entry `yaml:"globals"`
}

// Load reads and parses a summary index from url.
func Load(ctx context.Context, fs afs.Service, url string) (*Index, error) {
	data, err := fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, irerrors.Wrap(irerrors.PhaseLoad, irerrors.KindIO, err, "reading summary index %s", url)
	}
	return Parse(data)
}

// Parse parses a summary index document. Empty input yields an empty,
// usable index.
func Parse(data []byte) (*Index, error) {
	idx := &Index{}
	if err := yaml.Unmarshal(data, idx); err != nil {
		return nil, irerrors.Wrap(irerrors.PhaseLoad, irerrors.KindInvalidData, err, "malformed summary index")
	}
	idx.byName = make(map[string]*Entry, len(idx.Globals))
	for i := range idx.Globals {
		e := &idx.Globals[i]
		if e.Name == "" {
			return nil, irerrors.New(irerrors.PhaseLoad, irerrors.KindInvalidData, "summary entry with empty name")
		}
		if _, ok := ir.ParseLinkage(e.Linkage); !ok {
			return nil, irerrors.New(irerrors.PhaseLoad, irerrors.KindBadLinkage,
				"summary entry %s: unknown linkage %q", e.Name, e.Linkage)
		}
		idx.byName[e.Name] = e
	}
	return idx, nil
}

// Lookup returns the entry for a global name, or nil.
func (idx *Index) Lookup(name string) *Entry {
	return idx.byName[name]
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.Globals)
}

// PromoteAllLocals conservatively flips every local-linkage entry to
// external. The driver does no cross-module analysis to learn what is
// truly referenced from outside, so anything local could be.
func (idx *Index) PromoteAllLocals() {
	for i := range idx.Globals {
		l, _ := ir.ParseLinkage(idx.Globals[i].Linkage)
		if l.IsLocal() {
			idx.Globals[i].Linkage = ir.External.String()
		}
	}
}

func (idx *Index) String() string {
	return fmt.Sprintf("summary index (%d globals)", len(idx.Globals))
}
