package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"litho/internal/diag"
	"litho/internal/source"
)

// RenderOpts configures diagnostic rendering.
type RenderOpts struct {
	Color     bool
	ShowNotes bool
	// Max caps the number of rendered diagnostics, 0 means no cap.
	Max int
}

type styles struct {
	err   lipgloss.Style
	warn  lipgloss.Style
	info  lipgloss.Style
	code  lipgloss.Style
	loc   lipgloss.Style
	caret lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		s := lipgloss.NewStyle()
		return styles{err: s, warn: s, info: s, code: s, loc: s, caret: s}
	}
	return styles{
		err:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		info:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		code:  lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		loc:   lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		caret: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
	}
}

func (s styles) severity(sev diag.Severity) lipgloss.Style {
	switch sev {
	case diag.SevError:
		return s.err
	case diag.SevWarning:
		return s.warn
	default:
		return s.info
	}
}

// Render pretty-prints a bag of diagnostics:
//
//	<path>:<line>:<col>: <SEV> [<CODE>]: <message>
//
// followed by the source line with a ^~~~ underline when the file set
// carries the span's file, then any notes indented below.
func Render(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts RenderOpts) {
	st := newStyles(opts.Color)
	shown := 0
	for _, d := range bag.Items() {
		if opts.Max > 0 && shown >= opts.Max {
			fmt.Fprintf(w, "... and %d more\n", bag.Len()-shown)
			return
		}
		renderOne(w, d, fs, st, opts)
		shown++
	}
}

func renderOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, st styles, opts RenderOpts) {
	sev := st.severity(d.Severity).Render(d.Severity.String())
	code := st.code.Render("[" + d.Code.ID() + "]")
	if loc, ok := location(fs, d.Primary); ok {
		fmt.Fprintf(w, "%s: %s %s: %s\n", st.loc.Render(loc), sev, code, d.Message)
		renderContext(w, fs, d.Primary, st)
	} else {
		fmt.Fprintf(w, "%s %s: %s\n", sev, code, d.Message)
	}
	if !opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		if loc, ok := location(fs, n.Span); ok {
			fmt.Fprintf(w, "  note: %s: %s\n", st.loc.Render(loc), n.Msg)
		} else {
			fmt.Fprintf(w, "  note: %s\n", n.Msg)
		}
	}
}

func location(fs *source.FileSet, sp source.Span) (string, bool) {
	if fs == nil || int(sp.File) >= fs.Len() {
		return "", false
	}
	f := fs.Get(sp.File)
	start, _ := fs.Resolve(sp)
	if start.Line == 0 {
		return "", false
	}
	return fmt.Sprintf("%s:%d:%d", f.Path, start.Line, start.Col), true
}

// renderContext prints the offending line with a caret underline.
// Column math uses display width so tabs and wide runes line up.
func renderContext(w io.Writer, fs *source.FileSet, sp source.Span, st styles) {
	f := fs.Get(sp.File)
	start, end := fs.Resolve(sp)
	line := f.GetLine(start.Line)
	if line == "" {
		return
	}
	fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(line, "\t", " "))

	prefix := line
	if int(start.Col-1) <= len(line) {
		prefix = line[:start.Col-1]
	}
	pad := runewidth.StringWidth(strings.ReplaceAll(prefix, "\t", " "))

	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		seg := line
		if int(end.Col-1) <= len(line) {
			seg = line[start.Col-1 : end.Col-1]
		}
		if wd := runewidth.StringWidth(seg); wd > 1 {
			width = wd
		}
	}
	marker := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", pad), st.caret.Render(marker))
}
