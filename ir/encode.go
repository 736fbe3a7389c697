package ir

import (
	"sort"

	"github.com/irlink/irlink/ir/internal/binary"
)

// Encode serializes the module to the binary container. When preserveOrder
// is true the definition order of globals is kept byte-for-byte on a
// decode/encode round trip; otherwise globals are emitted sorted by name.
//
// Unmaterialized bodies are copied through in their encoded form, so
// encoding never forces materialization.
func (m *Module) Encode(preserveOrder bool) []byte {
	globals := m.Globals
	if !preserveOrder {
		globals = append([]*Global(nil), m.Globals...)
		sort.Slice(globals, func(i, j int) bool { return globals[i].Name < globals[j].Name })
	}

	bodies := make([][]byte, len(globals))
	for i, g := range globals {
		if !g.defined {
			continue
		}
		if g.materialized {
			bodies[i] = encodeBody(g.Body)
		} else {
			bodies[i] = g.raw
		}
	}

	sym := binary.NewWriter()
	sym.WriteU32(uint32(len(globals)))
	for i, g := range globals {
		sym.WriteName(g.Name)
		sym.Byte(byte(g.Kind))
		sym.Byte(byte(g.Linkage))
		var flags byte
		if g.defined {
			flags |= 0x01
		}
		sym.Byte(flags)
		if g.defined {
			sym.WriteU32(uint32(len(bodies[i])))
		}
	}

	w := binary.NewWriter()
	w.WriteBytes(Magic)
	w.Byte(Version)

	writeSection(w, SectionSymbols, sym.Bytes())

	bw := binary.NewWriter()
	for _, b := range bodies {
		bw.WriteBytes(b)
	}
	writeSection(w, SectionBodies, bw.Bytes())

	if len(m.Meta) > 0 || !m.metaDone {
		mw := binary.NewWriter()
		if !m.metaDone {
			// Deferred metadata is still in encoded form.
			mw.WriteBytes(m.rawMeta)
		} else {
			keys := make([]string, 0, len(m.Meta))
			for k := range m.Meta {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			mw.WriteU32(uint32(len(keys)))
			for _, k := range keys {
				mw.WriteName(k)
				mw.WriteName(m.Meta[k])
			}
		}
		writeSection(w, SectionMeta, mw.Bytes())
	}

	return w.Bytes()
}

func writeSection(w *binary.Writer, id byte, data []byte) {
	w.Byte(id)
	w.WriteU32(uint32(len(data)))
	w.WriteBytes(data)
}

func encodeBody(b *Body) []byte {
	w := binary.NewWriter()
	if b == nil {
		w.WriteU32(0)
		return w.Bytes()
	}
	w.WriteU32(uint32(len(b.Instrs)))
	for _, in := range b.Instrs {
		w.Byte(byte(in.Op))
		switch in.Op {
		case OpConst:
			w.WriteS64(in.Val)
		case OpRef, OpCall:
			w.WriteName(in.Sym)
		}
	}
	return w.Bytes()
}
