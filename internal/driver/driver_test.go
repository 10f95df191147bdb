package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"litho/internal/ast"
	"litho/internal/diag"
	"litho/internal/source"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Cache.Dir = t.TempDir()
	return cfg
}

// writeFixture encodes a small program to an .astc file. The module
// contains one bad call so resolution produces a diagnostic.
func writeFixture(t *testing.T, dir string) string {
	t.Helper()
	b := ast.NewBuilder(nil)

	xFormal := b.Formal("x", ast.IntentDefault, b.Ident("int"), ast.NoNodeID)
	body := b.Block(b.Return(b.Ident("x")))
	fn := b.Function(ast.FnSpec{Name: "f", Formals: []ast.NodeID{xFormal}, Body: body})

	good := b.Variable("a", ast.IntentVar, ast.NoNodeID, b.Call(b.Ident("f"), b.IntLit(1)))
	bad := b.Variable("b", ast.IntentVar, ast.NoNodeID, b.Call(b.Ident("g")))
	b.Module("M", source.Span{}, fn, good, bad)
	prog := b.Finish()

	path := filepath.Join(dir, "m.astc")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()
	if err := ast.EncodeSnapshot(f, prog); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return path
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestResolveFilesReportsDiagnostics(t *testing.T) {
	path := writeFixture(t, t.TempDir())
	s, err := NewSession(testConfig(t))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	reports, err := s.ResolveFiles(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("ResolveFiles: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	rep := reports[0]
	if rep.FromCache {
		t.Fatalf("first resolve should not hit the cache")
	}
	if rep.Modules != 1 {
		t.Fatalf("got %d modules, want 1", rep.Modules)
	}
	if !rep.Broken {
		t.Fatalf("expected a broken report for the unresolved call")
	}
	if !hasCode(rep.Diags, diag.ResNoMatchingCall) {
		t.Fatalf("missing no-matching-call diagnostic, got %v", rep.Diags.Items())
	}
}

func TestResolveFilesReplaysFromCache(t *testing.T) {
	path := writeFixture(t, t.TempDir())
	s, err := NewSession(testConfig(t))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	first, err := s.ResolveFiles(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("first ResolveFiles: %v", err)
	}
	second, err := s.ResolveFiles(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("second ResolveFiles: %v", err)
	}

	if !second[0].FromCache {
		t.Fatalf("second resolve should replay from cache")
	}
	if second[0].Broken != first[0].Broken {
		t.Fatalf("cache changed broken status: %v vs %v", second[0].Broken, first[0].Broken)
	}
	if got, want := second[0].Diags.Len(), first[0].Diags.Len(); got != want {
		t.Fatalf("cache replayed %d diagnostics, want %d", got, want)
	}
	if second[0].Digest != first[0].Digest {
		t.Fatalf("digest changed between runs")
	}
}

func TestResolveFilesMissingInput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = false
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	reports, err := s.ResolveFiles(context.Background(), []string{"/no/such/file.astc"})
	if err != nil {
		t.Fatalf("ResolveFiles: %v", err)
	}
	rep := reports[0]
	if !rep.Broken {
		t.Fatalf("missing input should be broken")
	}
	if !hasCode(rep.Diags, diag.IOLoadFileError) {
		t.Fatalf("missing load diagnostic, got %v", rep.Diags.Items())
	}
}

func TestResolveFilesCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "junk.astc")
	if err := os.WriteFile(path, []byte("not msgpack"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	cfg := testConfig(t)
	cfg.Cache.Enabled = false
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	reports, err := s.ResolveFiles(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("ResolveFiles: %v", err)
	}
	if !hasCode(reports[0].Diags, diag.IOSnapshotDecode) {
		t.Fatalf("missing decode diagnostic, got %v", reports[0].Diags.Items())
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	cache, err := OpenDiskCache("litho-test", t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCache: %v", err)
	}
	key := Digest{1, 2, 3}
	in := &diskPayload{
		Schema: diskCacheSchemaVersion,
		Path:   "m.astc",
		Broken: true,
		Diags: []diskDiag{{
			Severity: uint8(diag.SevError),
			Code:     uint16(diag.ResNoMatchingCall),
			Start:    4, End: 9,
			Message: "no matching candidate for g",
		}},
	}
	if err := cache.Put(key, in); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var out diskPayload
	hit, err := cache.Get(key, &out)
	if err != nil || !hit {
		t.Fatalf("Get: hit=%v err=%v", hit, err)
	}
	if out.Path != in.Path || out.Broken != in.Broken || len(out.Diags) != 1 {
		t.Fatalf("payload mismatch: %+v", out)
	}
	if out.Diags[0].Message != in.Diags[0].Message {
		t.Fatalf("message mismatch: %q", out.Diags[0].Message)
	}

	var miss diskPayload
	hit, err = cache.Get(Digest{9, 9}, &miss)
	if err != nil || hit {
		t.Fatalf("expected a clean miss, hit=%v err=%v", hit, err)
	}
}

func TestLoadConfigDefaultsAndOverrides(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadConfig absent: %v", err)
	}
	if cfg.Diagnostics.Max != 100 || cfg.Diagnostics.Color != "auto" {
		t.Fatalf("unexpected defaults: %+v", cfg.Diagnostics)
	}

	path := filepath.Join(t.TempDir(), "litho.toml")
	data := "[diagnostics]\nmax = 7\ncolor = \"off\"\n\n[cache]\nenabled = false\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Diagnostics.Max != 7 || cfg.Diagnostics.Color != "off" || cfg.Cache.Enabled {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[diagnostics]\ncolor = \"purple\"\n"), 0o644); err != nil {
		t.Fatalf("write bad config: %v", err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Fatalf("expected a validation error for bad color")
	}
}
