package driver

import (
	"context"
	"fmt"

	"github.com/irlink/irlink/ir"
)

// moduleCache memoizes lazily loaded modules during function import so a
// peer module referenced by many directives is parsed once.
//
// Get never evicts; Take moves ownership out of the cache exactly once.
// The cache is not safe for concurrent use; the driver is single-threaded
// and Take is its linearization point by construction.
type moduleCache struct {
	loader  *Loader
	modules map[string]*ir.Module
}

func newModuleCache(loader *Loader) *moduleCache {
	return &moduleCache{
		loader:  loader,
		modules: make(map[string]*ir.Module),
	}
}

// Get returns the cached module for sourceID, loading it on first miss.
// Cache fills never materialize metadata: bodies and metadata are pulled
// in later, only for the symbols actually imported.
func (c *moduleCache) Get(ctx context.Context, sourceID string) (*ir.Module, error) {
	if m, ok := c.modules[sourceID]; ok {
		return m, nil
	}
	m, err := c.loader.Load(ctx, sourceID, false)
	if err != nil {
		return nil, err
	}
	c.modules[sourceID] = m
	return m, nil
}

// Take removes the module from the cache and transfers ownership to the
// caller. Calling Take for an identifier that was never loaded, or taking
// the same identifier twice, is a programming fault.
func (c *moduleCache) Take(sourceID string) *ir.Module {
	m, ok := c.modules[sourceID]
	if !ok {
		panic(fmt.Sprintf("module cache: take of %q without a prior get", sourceID))
	}
	delete(c.modules, sourceID)
	return m
}
