package ui

import (
	"strings"
	"testing"

	"litho/internal/diag"
	"litho/internal/source"
)

func TestRenderWithLocationAndCaret(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.litho", []byte("var b = g()\n"))

	bag := diag.NewBag(8)
	bag.Add(diag.NewError(diag.ResNoMatchingCall,
		source.Span{File: id, Start: 8, End: 11},
		"no matching candidate for g"))

	var out strings.Builder
	Render(&out, bag, fs, RenderOpts{ShowNotes: true})
	got := out.String()

	if !strings.Contains(got, "m.litho:1:9: ERROR [RES3001]: no matching candidate for g") {
		t.Fatalf("missing header line:\n%s", got)
	}
	if !strings.Contains(got, "var b = g()") {
		t.Fatalf("missing context line:\n%s", got)
	}
	if !strings.Contains(got, "        ^~~") {
		t.Fatalf("missing caret underline:\n%s", got)
	}
}

func TestRenderNotesAndUnknownFile(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.litho", []byte("record R {}\n"))

	bag := diag.NewBag(8)
	bag.Add(diag.NewError(diag.ResForwardingCycle,
		source.Span{File: id, Start: 0, End: 6},
		"forwarding cycle through R").
		WithNote(source.Span{File: id, Start: 7, End: 8}, "cycle enters here"))
	// a span pointing past the file set renders without a location
	bag.Add(diag.NewError(diag.IOLoadFileError,
		source.Span{File: 42}, "cannot read other.astc"))

	var out strings.Builder
	Render(&out, bag, fs, RenderOpts{ShowNotes: true})
	got := out.String()

	if !strings.Contains(got, "note: m.litho:1:8: cycle enters here") {
		t.Fatalf("missing note:\n%s", got)
	}
	if !strings.Contains(got, "ERROR [IO4001]: cannot read other.astc") {
		t.Fatalf("missing locationless diagnostic:\n%s", got)
	}
	if strings.Contains(got, ":0:0") {
		t.Fatalf("rendered a bogus zero location:\n%s", got)
	}
}

func TestRenderHonorsMax(t *testing.T) {
	fs := source.NewFileSet()
	bag := diag.NewBag(8)
	for i := 0; i < 5; i++ {
		bag.Add(diag.NewError(diag.ResNoMatchingCall, source.Span{File: 42}, "boom"))
	}

	var out strings.Builder
	Render(&out, bag, fs, RenderOpts{Max: 2})
	got := out.String()

	if n := strings.Count(got, "boom"); n != 2 {
		t.Fatalf("rendered %d diagnostics, want 2:\n%s", n, got)
	}
	if !strings.Contains(got, "... and 3 more") {
		t.Fatalf("missing overflow line:\n%s", got)
	}
}
