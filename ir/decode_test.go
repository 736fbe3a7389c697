package ir_test

import (
	"testing"

	"github.com/irlink/irlink/ir"
)

func sampleModule(t *testing.T) *ir.Module {
	t.Helper()
	m := ir.NewModule("a.irb")
	mustAdd(t, m, ir.NewGlobal("f", ir.KindFunc, ir.External, &ir.Body{Instrs: []ir.Instr{
		{Op: ir.OpCall, Sym: "g"},
		{Op: ir.OpRet},
	}}))
	mustAdd(t, m, ir.NewGlobal("g", ir.KindFunc, ir.Internal, &ir.Body{Instrs: []ir.Instr{
		{Op: ir.OpConst, Val: 1},
		{Op: ir.OpRet},
	}}))
	mustAdd(t, m, ir.NewGlobal("x", ir.KindVar, ir.WeakODR, &ir.Body{Instrs: []ir.Instr{
		{Op: ir.OpConst, Val: 7},
	}}))
	m.Meta["debug.version"] = "3"
	return m
}

func mustAdd(t *testing.T, m *ir.Module, g *ir.Global) {
	t.Helper()
	if err := m.AddGlobal(g); err != nil {
		t.Fatalf("AddGlobal(%s): %v", g.Name, err)
	}
}

func TestDecodeInvalidMagic(t *testing.T) {
	_, err := ir.Decode("bad", []byte{0x00, 0x00, 0x00, 0x00, 0x01})
	if err == nil {
		t.Error("expected error for invalid magic")
	}
}

func TestDecodeInvalidVersion(t *testing.T) {
	data := append(append([]byte{}, ir.Magic...), 0x7F)
	_, err := ir.Decode("bad", data)
	if err == nil {
		t.Error("expected error for invalid version")
	}
}

func TestDecodeTruncated(t *testing.T) {
	_, err := ir.Decode("bad", ir.Magic[:2])
	if err == nil {
		t.Error("expected error for truncated header")
	}
}

func TestIsBinary(t *testing.T) {
	if !ir.IsBinary(sampleModule(t).Encode(true)) {
		t.Error("encoded module not recognized as binary")
	}
	if ir.IsBinary([]byte("(module $a)")) {
		t.Error("textual input recognized as binary")
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	data := sampleModule(t).Encode(true)

	m, err := ir.Decode("a.irb", data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(m.Globals) != 3 {
		t.Fatalf("expected 3 globals, got %d", len(m.Globals))
	}

	f := m.Global("f")
	if f == nil || f.Kind != ir.KindFunc || f.Linkage != ir.External {
		t.Fatalf("global f wrong: %+v", f)
	}
	if len(f.Body.Instrs) != 2 || f.Body.Instrs[0].Sym != "g" {
		t.Errorf("body of f wrong: %+v", f.Body)
	}
	if m.Meta["debug.version"] != "3" {
		t.Errorf("metadata lost: %v", m.Meta)
	}
}

func TestDecodeLazyDefersBodies(t *testing.T) {
	data := sampleModule(t).Encode(true)

	m, err := ir.DecodeLazy("a.irb", data)
	if err != nil {
		t.Fatalf("DecodeLazy: %v", err)
	}

	f := m.Global("f")
	if f == nil {
		t.Fatal("skeleton missing global f")
	}
	if f.Materialized() {
		t.Error("lazy decode materialized a body")
	}
	if m.MetadataMaterialized() {
		t.Error("lazy decode materialized metadata")
	}

	if err := f.Materialize(); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if !f.Materialized() || len(f.Body.Instrs) != 2 {
		t.Errorf("materialized body wrong: %+v", f.Body)
	}

	// Idempotent.
	if err := f.Materialize(); err != nil {
		t.Fatalf("second Materialize: %v", err)
	}

	if err := m.MaterializeMetadata(); err != nil {
		t.Fatalf("MaterializeMetadata: %v", err)
	}
	if m.Meta["debug.version"] != "3" {
		t.Errorf("metadata wrong after materialization: %v", m.Meta)
	}
	if err := m.MaterializeMetadata(); err != nil {
		t.Fatalf("second MaterializeMetadata: %v", err)
	}
}

func TestDecodeDeclaration(t *testing.T) {
	src := ir.NewModule("d.irb")
	mustAdd(t, src, ir.NewGlobal("ext", ir.KindFunc, ir.External, nil))

	m, err := ir.Decode("d.irb", src.Encode(true))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	g := m.Global("ext")
	if g == nil || !g.IsDeclaration() {
		t.Fatalf("expected declaration, got %+v", g)
	}
	if !g.Materialized() {
		t.Error("declarations are trivially materialized")
	}
}

func TestDecodeUnknownSection(t *testing.T) {
	data := append(append([]byte{}, ir.Magic...), ir.Version, 9, 0)
	_, err := ir.DecodeLazy("bad", data)
	if err == nil {
		t.Error("expected error for unknown section")
	}
}
