package ir

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/irlink/irlink/ir/internal/binary"
)

// Binary container constants.
const (
	Version byte = 1

	SectionSymbols byte = 1
	SectionBodies  byte = 2
	SectionMeta    byte = 3
)

// Magic identifies the binary IR container.
var Magic = []byte{0x00, 'i', 'r', 'b'}

// Parsing errors returned by Decode.
var (
	ErrInvalidMagic   = errors.New("invalid irb magic number")
	ErrInvalidVersion = errors.New("invalid irb version")
)

// IsBinary reports whether data starts with the binary IR magic.
func IsBinary(data []byte) bool {
	return len(data) >= len(Magic) && bytes.Equal(data[:len(Magic)], Magic)
}

// Decode parses a binary module and materializes everything eagerly.
func Decode(name string, data []byte) (*Module, error) {
	m, err := DecodeLazy(name, data)
	if err != nil {
		return nil, err
	}
	if err := m.MaterializeAll(); err != nil {
		return nil, err
	}
	if err := m.MaterializeMetadata(); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeLazy parses the structural skeleton of a binary module. Symbol
// names, kinds and linkage are resident after DecodeLazy returns; bodies
// and metadata stay in encoded form until explicitly materialized.
func DecodeLazy(name string, data []byte) (*Module, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadBytes(len(Magic))
	if err != nil {
		return nil, wrapSection("header", r, err)
	}
	if !bytes.Equal(magic, Magic) {
		return nil, ErrInvalidMagic
	}
	version, err := r.ReadByte()
	if err != nil {
		return nil, wrapSection("header", r, err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	m := &Module{
		Name:   name,
		Meta:   map[string]string{},
		byName: map[string]*Global{},
	}
	// A module without a metadata section has nothing left to materialize.
	m.metaDone = true

	var bodySizes []uint32
	var lastSection byte

	for {
		sectionID, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, wrapSection("section header", r, err)
		}
		if sectionID <= lastSection {
			return nil, fmt.Errorf("irb: section %d appears out of order", sectionID)
		}
		lastSection = sectionID

		sectionSize, err := r.ReadU32()
		if err != nil {
			return nil, wrapSection("section size", r, err)
		}
		sectionData, err := r.ReadBytes(int(sectionSize))
		if err != nil {
			return nil, wrapSection("section data", r, err)
		}
		sr := binary.NewReader(sectionData)

		switch sectionID {
		case SectionSymbols:
			bodySizes, err = parseSymbolSection(sr, m)
			if err != nil {
				return nil, fmt.Errorf("symbol section: %w", err)
			}
		case SectionBodies:
			if err := parseBodySection(sr, m, bodySizes); err != nil {
				return nil, fmt.Errorf("body section: %w", err)
			}
		case SectionMeta:
			m.rawMeta = sectionData
			m.metaDone = false
		default:
			return nil, fmt.Errorf("irb: unknown section id %d", sectionID)
		}
	}

	for _, g := range m.Globals {
		if g.defined && !g.materialized && g.raw == nil {
			return nil, fmt.Errorf("irb: global %s defined but has no body", g.Name)
		}
	}
	return m, nil
}

func parseSymbolSection(r *binary.Reader, m *Module) ([]uint32, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	sizes := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.ReadName()
		if err != nil {
			return nil, err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if kind != byte(KindFunc) && kind != byte(KindVar) {
			return nil, fmt.Errorf("global %s: unknown kind %d", name, kind)
		}
		linkage, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if !Linkage(linkage).Valid() {
			return nil, fmt.Errorf("global %s: unknown linkage %d", name, linkage)
		}
		flags, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		defined := flags&0x01 != 0

		var size uint32
		if defined {
			size, err = r.ReadU32()
			if err != nil {
				return nil, err
			}
		}
		sizes = append(sizes, size)

		g := &Global{
			Name:    name,
			Kind:    GlobalKind(kind),
			Linkage: Linkage(linkage),
			defined: defined,
		}
		if err := m.AddGlobal(g); err != nil {
			return nil, err
		}
	}
	return sizes, nil
}

func parseBodySection(r *binary.Reader, m *Module, sizes []uint32) error {
	if sizes == nil {
		return errors.New("body section before symbol section")
	}
	for i, g := range m.Globals {
		if !g.defined {
			continue
		}
		raw, err := r.ReadBytes(int(sizes[i]))
		if err != nil {
			return fmt.Errorf("body of %s: %w", g.Name, err)
		}
		g.raw = raw
	}
	if r.Len() != 0 {
		return fmt.Errorf("%d trailing bytes", r.Len())
	}
	return nil
}

func decodeBody(raw []byte) (*Body, error) {
	r := binary.NewReader(raw)
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	body := &Body{Instrs: make([]Instr, 0, count)}
	for i := uint32(0); i < count; i++ {
		op, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		in := Instr{Op: Op(op)}
		switch Op(op) {
		case OpConst:
			in.Val, err = r.ReadS64()
		case OpRef, OpCall:
			in.Sym, err = r.ReadName()
		case OpRet:
		default:
			return nil, fmt.Errorf("unknown opcode %d", op)
		}
		if err != nil {
			return nil, err
		}
		body.Instrs = append(body.Instrs, in)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes in body", r.Len())
	}
	return body, nil
}

func decodeMeta(raw []byte) (map[string]string, error) {
	r := binary.NewReader(raw)
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	meta := make(map[string]string, count)
	for i := uint32(0); i < count; i++ {
		key, err := r.ReadName()
		if err != nil {
			return nil, err
		}
		value, err := r.ReadName()
		if err != nil {
			return nil, err
		}
		if key == "" {
			return nil, errors.New("empty metadata key")
		}
		meta[key] = value
	}
	return meta, nil
}

func wrapSection(section string, r *binary.Reader, err error) error {
	return &binary.ParseError{Section: section, Position: r.Position(), Err: err}
}
