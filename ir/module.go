package ir

import "fmt"

// Module is a single unit of program representation: an ordered set of
// named globals plus module-level metadata. The Name is the source
// identifier the module was loaded from.
type Module struct {
	byName  map[string]*Global
	Meta    map[string]string
	Name    string
	Globals []*Global

	rawMeta  []byte
	metaDone bool
	upgraded bool
}

// NewModule creates an empty, fully materialized module.
func NewModule(name string) *Module {
	return &Module{
		Name:     name,
		Meta:     map[string]string{},
		byName:   map[string]*Global{},
		metaDone: true,
	}
}

// Global returns the named global, or nil.
func (m *Module) Global(name string) *Global {
	return m.byName[name]
}

// AddGlobal appends a global. Duplicate names are rejected.
func (m *Module) AddGlobal(g *Global) error {
	if _, ok := m.byName[g.Name]; ok {
		return fmt.Errorf("module %s: duplicate global %s", m.Name, g.Name)
	}
	m.Globals = append(m.Globals, g)
	m.byName[g.Name] = g
	return nil
}

// RemoveGlobal deletes the named global if present.
func (m *Module) RemoveGlobal(name string) {
	g, ok := m.byName[name]
	if !ok {
		return
	}
	delete(m.byName, name)
	for i, cand := range m.Globals {
		if cand == g {
			m.Globals = append(m.Globals[:i], m.Globals[i+1:]...)
			break
		}
	}
}

// RenameGlobal changes a global's name, keeping the lookup index consistent.
// Body references in other globals are not rewritten here; see the
// promotion pass for reference rewriting.
func (m *Module) RenameGlobal(old, new string) error {
	g, ok := m.byName[old]
	if !ok {
		return fmt.Errorf("module %s: no global %s", m.Name, old)
	}
	if _, ok := m.byName[new]; ok {
		return fmt.Errorf("module %s: rename target %s already exists", m.Name, new)
	}
	delete(m.byName, old)
	g.Name = new
	m.byName[new] = g
	return nil
}

// MaterializeAll decodes every deferred body in the module.
func (m *Module) MaterializeAll() error {
	for _, g := range m.Globals {
		if err := g.Materialize(); err != nil {
			return err
		}
	}
	return nil
}

// MaterializeMetadata decodes the deferred metadata section. It is
// idempotent and distinct from body materialization.
func (m *Module) MaterializeMetadata() error {
	if m.metaDone {
		return nil
	}
	meta, err := decodeMeta(m.rawMeta)
	if err != nil {
		return fmt.Errorf("materialize metadata of %s: %w", m.Name, err)
	}
	for k, v := range meta {
		m.Meta[k] = v
	}
	m.rawMeta = nil
	m.metaDone = true
	return nil
}

// MetadataMaterialized reports whether the metadata section has been decoded.
func (m *Module) MetadataMaterialized() bool {
	return m.metaDone
}
