package ir_test

import (
	"testing"

	"github.com/irlink/irlink/ir"
)

func TestUpgradeDebugInfoOldVersion(t *testing.T) {
	m := ir.NewModule("old.irb")
	m.Meta[ir.DebugVersionKey] = "1"

	ir.UpgradeDebugInfo(m)
	if got := m.Meta[ir.DebugVersionKey]; got != "3" {
		t.Errorf("debug.version = %q, want \"3\"", got)
	}
	if !ir.DebugUpgraded(m) {
		t.Error("upgrade flag not set")
	}
}

func TestUpgradeDebugInfoRunsOnce(t *testing.T) {
	m := ir.NewModule("once.irb")
	m.Meta[ir.DebugVersionKey] = "1"

	ir.UpgradeDebugInfo(m)
	// A later downgrade of the metadata must not be touched again.
	m.Meta[ir.DebugVersionKey] = "2"
	ir.UpgradeDebugInfo(m)
	if got := m.Meta[ir.DebugVersionKey]; got != "2" {
		t.Errorf("second upgrade ran: debug.version = %q", got)
	}
}

func TestUpgradeDebugInfoStripsUnreadable(t *testing.T) {
	m := ir.NewModule("junk.irb")
	m.Meta[ir.DebugVersionKey] = "not-a-number"
	m.Meta["debug.cu"] = "main.c"
	m.Meta["producer"] = "frontc"

	ir.UpgradeDebugInfo(m)
	if _, ok := m.Meta[ir.DebugVersionKey]; ok {
		t.Error("unreadable debug.version not stripped")
	}
	if _, ok := m.Meta["debug.cu"]; ok {
		t.Error("stale debug metadata not stripped")
	}
	if m.Meta["producer"] != "frontc" {
		t.Error("non-debug metadata clobbered")
	}
}

func TestUpgradeDebugInfoNoDebugInfo(t *testing.T) {
	m := ir.NewModule("plain.irb")
	ir.UpgradeDebugInfo(m)
	if len(m.Meta) != 0 {
		t.Errorf("metadata appeared from nowhere: %v", m.Meta)
	}
}
