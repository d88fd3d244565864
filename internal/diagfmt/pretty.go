package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"graft/internal/diag"
	"graft/internal/source"
)

type palette struct {
	err, warn, info *color.Color
	code, path      *color.Color
	gutter, caret   *color.Color
	note            *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan),
		code:   color.New(color.Faint),
		path:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgRed, color.Bold),
		note:   color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.path, p.gutter, p.caret, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty writes diags in a human readable form:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// followed by the source line and a caret run under the primary span, then
// the notes when enabled. Diagnostics whose file cannot be found are printed
// without context.
func Pretty(w io.Writer, diags []diag.Diagnostic, files FileLookup, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range diags {
		if opts.Max > 0 && i >= opts.Max {
			fmt.Fprintf(w, "... %d more\n", len(diags)-i)
			return
		}
		file, _ := lookup(files, d.Primary.Path)
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.path.Sprint(locationString(d.Primary, file, opts.PathMode, opts.BaseDir)),
			p.severity(d.Severity).Sprint(d.Severity.String()),
			p.code.Sprint(d.Code.ID()),
			d.Message,
		)
		if file != nil {
			writeContext(w, p, file, d.Primary.Span)
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			nf, _ := lookup(files, n.Location.Path)
			fmt.Fprintf(w, "  %s %s: %s\n",
				p.note.Sprint("note:"),
				locationString(n.Location, nf, opts.PathMode, opts.BaseDir),
				n.Msg,
			)
		}
	}
}

func lookup(files FileLookup, path string) (*source.File, bool) {
	if files == nil || path == "" {
		return nil, false
	}
	return files(path)
}

func locationString(loc source.Location, file *source.File, mode PathMode, base string) string {
	path := formatPath(loc.Path, mode, base)
	if file == nil {
		return path
	}
	lc := file.LineColAt(loc.Span.Start)
	return fmt.Sprintf("%s:%d:%d", path, lc.Line, lc.Col)
}

func writeContext(w io.Writer, p palette, file *source.File, span source.Span) {
	start, end := file.Resolve(span)
	line := file.GetLine(start.Line)
	num := fmt.Sprintf("%d", start.Line)
	pad := strings.Repeat(" ", len(num))

	fmt.Fprintf(w, " %s %s %s\n", p.gutter.Sprint(num), p.gutter.Sprint("|"), expandTabs(line))

	col := int(start.Col) - 1
	if col > len(line) {
		col = len(line)
	}
	stop := len(line)
	if end.Line == start.Line {
		stop = min(int(end.Col)-1, len(line))
	}
	indent := runewidth.StringWidth(expandTabs(line[:col]))
	width := max(runewidth.StringWidth(expandTabs(line[col:max(stop, col)])), 1)
	marker := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, " %s %s %s%s\n", pad, p.gutter.Sprint("|"), strings.Repeat(" ", indent), p.caret.Sprint(marker))
}

// expandTabs renders a tab as one cell.
func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", " ")
}
