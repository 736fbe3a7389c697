package driver_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"

	"github.com/irlink/irlink/driver"
	"github.com/irlink/irlink/ir"
	"github.com/irlink/irlink/summary"
)

type fixture struct {
	t    *testing.T
	fs   afs.Service
	base string
	diag bytes.Buffer
	out  bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		t:    t,
		fs:   afs.New(),
		base: "mem://localhost/" + strings.ToLower(t.Name()),
	}
}

func (f *fixture) url(name string) string {
	return f.base + "/" + name
}

// add uploads a source file and returns its URL.
func (f *fixture) add(name, content string) string {
	f.t.Helper()
	url := f.url(name)
	if err := f.fs.Upload(context.Background(), url, 0644, strings.NewReader(content)); err != nil {
		f.t.Fatalf("upload %s: %v", url, err)
	}
	return url
}

func (f *fixture) config() driver.Config {
	cfg := driver.DefaultConfig()
	cfg.Diagnostics = &f.diag
	cfg.Stdout = &f.out
	return cfg
}

func (f *fixture) run(cfg driver.Config) (*driver.Driver, error) {
	d := driver.New(cfg)
	return d, d.Run(context.Background())
}

func (f *fixture) outputExists(cfg driver.Config) bool {
	f.t.Helper()
	if cfg.Output == "-" {
		return f.out.Len() > 0
	}
	ok, err := f.fs.Exists(context.Background(), cfg.Output)
	if err != nil {
		f.t.Fatalf("exists %s: %v", cfg.Output, err)
	}
	return ok
}

func TestSingletonPrimaryListReproducesModule(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.Inputs = []string{f.add("a.irt", `(module
  (func $f external (call $g) (ret))
  (func $g internal (const 1) (ret)))`)}
	cfg.Textual = true

	d, err := f.run(cfg)
	assert.Nil(t, err)

	dest := d.Destination()
	assert.Equal(t, 2, len(dest.Globals))
	fGlobal := dest.Global("f")
	if assert.NotNil(t, fGlobal) {
		assert.Equal(t, ir.External, fGlobal.Linkage)
		assert.Equal(t, "g", fGlobal.Body.Instrs[0].Sym, "no override-style self-replacement on the first file")
	}
	gGlobal := dest.Global("g")
	if assert.NotNil(t, gGlobal) {
		assert.Equal(t, ir.Internal, gGlobal.Linkage)
	}

	assert.Contains(t, f.out.String(), "(func $f external (call $g) (ret))")
}

func TestConflictingStrongDefinitionsFatal(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.Inputs = []string{
		f.add("a.irt", `(module (var $x external (const 1)))`),
		f.add("b.irt", `(module (var $x external (const 2)))`),
	}
	cfg.Output = f.url("out.irb")

	_, err := f.run(cfg)
	assert.ErrorIs(t, err, driver.ErrFailed)
	assert.Contains(t, f.diag.String(), "ERROR:")
	assert.Contains(t, f.diag.String(), "x")
	assert.False(t, f.outputExists(cfg), "no artifact may be written on failure")
}

func TestOverrideListWins(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.Inputs = []string{f.add("a.irt", `(module (var $x link_once (const 1)))`)}
	cfg.Overrides = []string{f.add("c.irt", `(module (var $x external (const 9)))`)}

	d, err := f.run(cfg)
	assert.Nil(t, err)
	x := d.Destination().Global("x")
	if assert.NotNil(t, x) {
		assert.EqualValues(t, 9, x.Body.Instrs[0].Val, "override definition must win")
	}
}

func TestOverrideAppliesToFirstOverrideElement(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	// Both define strong x; without override semantics on the FIRST
	// override element this would be a duplicate definition error.
	cfg.Inputs = []string{f.add("a.irt", `(module (var $x external (const 1)))`)}
	cfg.Overrides = []string{f.add("c.irt", `(module (var $x external (const 7)))`)}

	d, err := f.run(cfg)
	assert.Nil(t, err)
	assert.EqualValues(t, 7, d.Destination().Global("x").Body.Instrs[0].Val)
}

func TestInternalizeSparesFirstModule(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.Internalize = true
	cfg.Inputs = []string{
		f.add("a.irt", `(module (var $x external (const 1)))`),
		f.add("b.irt", `(module (var $y external (const 2)))`),
	}

	d, err := f.run(cfg)
	assert.Nil(t, err)
	assert.Equal(t, ir.External, d.Destination().Global("x").Linkage,
		"flags other than override must not apply to the first file")
	assert.Equal(t, ir.Internal, d.Destination().Global("y").Linkage)
}

func TestEmptyPrimaryListFatal(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()

	_, err := f.run(cfg)
	assert.ErrorIs(t, err, driver.ErrFailed)
	assert.Contains(t, f.diag.String(), "no input files")
}

func TestBinaryOutputRoundTrips(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.Inputs = []string{f.add("a.irt", `(module (func $f external (ret)))`)}
	cfg.Output = f.url("out.irb")

	_, err := f.run(cfg)
	assert.Nil(t, err)

	data, err := f.fs.DownloadWithURL(context.Background(), cfg.Output)
	assert.Nil(t, err)
	m, err := ir.Decode(cfg.Output, data)
	assert.Nil(t, err)
	assert.NotNil(t, m.Global("f"))
}

const peerModule = `(module
  (meta "debug.version" "1")
  (func $wanted external (call $local_dep) (ret))
  (func $local_dep internal (const 1) (ret))
  (func $weak_fn weak_any (ret))
  (func $unrelated external (ret)))`

const peerSummary = `
globals:
  - {name: wanted, module: peer.irt, linkage: external}
  - {name: local_dep, module: peer.irt, linkage: internal}
  - {name: weak_fn, module: peer.irt, linkage: weak_any}
  - {name: unrelated, module: peer.irt, linkage: external}
`

func importFixture(t *testing.T) (*fixture, driver.Config) {
	f := newFixture(t)
	cfg := f.config()
	cfg.Inputs = []string{f.add("main.irt", `(module (func $main external (call $wanted) (ret)) (func $wanted external declare))`)}
	cfg.SummaryURL = f.add("summary.yaml", peerSummary)
	return f, cfg
}

func TestImportFunction(t *testing.T) {
	f, cfg := importFixture(t)
	peer := f.add("peer.irt", peerModule)
	cfg.Imports = []string{"wanted:" + peer}

	d, err := f.run(cfg)
	assert.Nil(t, err)

	dest := d.Destination()
	wanted := dest.Global("wanted")
	if assert.NotNil(t, wanted) {
		assert.False(t, wanted.IsDeclaration(), "imported definition must resolve the declaration")
	}
	// The local dependency travels along, promoted and renamed.
	promoted := summary.PromotedName("local_dep", peer)
	if assert.NotNil(t, dest.Global(promoted)) {
		assert.Equal(t, ir.External, dest.Global(promoted).Linkage)
		assert.Equal(t, promoted, wanted.Body.Instrs[0].Sym, "caller must reference the promoted name")
	}
	assert.Nil(t, dest.Global("unrelated"), "only requested symbols may cross")
}

func TestImportNonExistentFunctionWarns(t *testing.T) {
	f, cfg := importFixture(t)
	peer := f.add("peer.irt", peerModule)
	cfg.Imports = []string{"ghost:" + peer}

	d, err := f.run(cfg)
	assert.Nil(t, err, "missing function is a warning, not a failure")
	assert.Equal(t, 1, strings.Count(f.diag.String(), "WARNING:"))
	assert.Contains(t, f.diag.String(), "non-existent function ghost")
	assert.True(t, d.Destination().Global("wanted").IsDeclaration(), "nothing imported")
}

func TestImportWeakAnyFunctionSkipped(t *testing.T) {
	f, cfg := importFixture(t)
	peer := f.add("peer.irt", peerModule)
	cfg.Imports = []string{"weak_fn:" + peer, "wanted:" + peer}

	d, err := f.run(cfg)
	assert.Nil(t, err)
	assert.Equal(t, 1, strings.Count(f.diag.String(), "WARNING:"))
	assert.Contains(t, f.diag.String(), "weak-any function weak_fn")

	dest := d.Destination()
	assert.Nil(t, dest.Global("weak_fn"), "weak-any must not be imported")
	assert.False(t, dest.Global("wanted").IsDeclaration(), "other directives from the same source still import")
}

func TestImportMalformedDirectiveFatal(t *testing.T) {
	f, cfg := importFixture(t)
	f.add("peer.irt", peerModule)
	cfg.Imports = []string{"foo"}
	cfg.Output = f.url("out.irb")

	_, err := f.run(cfg)
	assert.ErrorIs(t, err, driver.ErrFailed)
	assert.Contains(t, f.diag.String(), "import parameter bad format: foo")
	assert.False(t, f.outputExists(cfg))
}

func TestImportWithoutSummaryDisabled(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.Inputs = []string{f.add("main.irt", `(module (func $main external (ret)))`)}
	// A directive is configured but no summary: the phase is disabled and
	// the malformed directive is never even inspected.
	cfg.Imports = []string{"foo"}

	_, err := f.run(cfg)
	assert.Nil(t, err)
}

func TestImportEmptySummaryAbortsPromotionEarly(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.Inputs = []string{f.add("main.irt", `(module (func $main external (ret)))`)}
	cfg.SummaryURL = f.add("empty.yaml", "")
	peer := f.add("peer.irt", peerModule)
	cfg.Imports = []string{"wanted:" + peer}

	d, err := f.run(cfg)
	assert.Nil(t, err, "unusable summary ends the import phase successfully")
	assert.Nil(t, d.Destination().Global("wanted"), "aborted import merges nothing")
}

func TestImportDirectivesGroupedPerSource(t *testing.T) {
	f, cfg := importFixture(t)
	peer := f.add("peer.irt", peerModule)
	cfg.Imports = []string{"wanted:" + peer, "unrelated:" + peer, "wanted:" + peer}

	d, err := f.run(cfg)
	assert.Nil(t, err)
	dest := d.Destination()
	assert.NotNil(t, dest.Global("unrelated"))
	assert.False(t, dest.Global("wanted").IsDeclaration())
}

func TestSuppressWarnings(t *testing.T) {
	f, cfg := importFixture(t)
	peer := f.add("peer.irt", peerModule)
	cfg.Imports = []string{"ghost:" + peer}
	cfg.SuppressWarnings = true

	_, err := f.run(cfg)
	assert.Nil(t, err)
	assert.NotContains(t, f.diag.String(), "WARNING:")
}

func TestSummaryPromotionDuringSequencing(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	moduleURL := f.add("a.irt", `(module
  (func $f external (call $helper) (ret))
  (func $helper internal (ret)))`)
	cfg.Inputs = []string{moduleURL}
	cfg.SummaryURL = f.add("summary.yaml", fmt.Sprintf(`
globals:
  - {name: f, module: %s, linkage: external}
  - {name: helper, module: %s, linkage: internal}
`, moduleURL, moduleURL))

	d, err := f.run(cfg)
	assert.Nil(t, err)

	dest := d.Destination()
	promoted := summary.PromotedName("helper", moduleURL)
	if assert.NotNil(t, dest.Global(promoted), "locals in the summary are conservatively promoted") {
		assert.Equal(t, ir.External, dest.Global(promoted).Linkage)
	}
	assert.Nil(t, dest.Global("helper"))
}

func TestVerifyFailureBlocksOutput(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.DisableTypeUniquing = true
	cfg.Inputs = []string{f.add("a.irt", `(module (func $f external (call $missing) (ret)))`)}
	cfg.Output = f.url("out.irb")

	_, err := f.run(cfg)
	assert.ErrorIs(t, err, driver.ErrFailed)
	assert.Contains(t, f.diag.String(), "broken")
	assert.False(t, f.outputExists(cfg))
}

func TestDumpAfterLink(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.Inputs = []string{f.add("a.irt", `(module (func $f external (ret)))`)}
	cfg.DumpAfterLink = true

	_, err := f.run(cfg)
	assert.Nil(t, err)
	assert.Contains(t, f.diag.String(), "(func $f external (ret))")
}
