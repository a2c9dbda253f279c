package backupdiff

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is how many unchanged lines surround each change.
const contextLines = 3

type palette struct {
	header func(string, ...any) string
	add    func(string, ...any) string
	del    func(string, ...any) string
	dim    func(string, ...any) string
}

func newPalette(colored bool) palette {
	if !colored {
		plain := fmt.Sprintf
		return palette{header: plain, add: plain, del: plain, dim: plain}
	}
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	faint := color.New(color.Faint)
	for _, c := range []*color.Color{bold, green, red, faint} {
		c.EnableColor()
	}
	return palette{
		header: bold.SprintfFunc(),
		add:    green.SprintfFunc(),
		del:    red.SprintfFunc(),
		dim:    faint.SprintfFunc(),
	}
}

// Render writes a readable report of r.
func Render(w io.Writer, r *Result, colored bool) error {
	p := newPalette(colored)
	var b strings.Builder
	if r.Empty() {
		b.WriteString("backups are identical\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	if len(r.Settings) > 0 {
		b.WriteString(p.header("settings") + "\n")
		for _, s := range r.Settings {
			switch s.Change {
			case Added:
				b.WriteString(p.add("+ %s = %q", s.Key, s.New) + "\n")
			case Removed:
				b.WriteString(p.del("- %s = %q", s.Key, s.Old) + "\n")
			default:
				b.WriteString(p.del("- %s = %q", s.Key, s.Old) + "\n")
				b.WriteString(p.add("+ %s = %q", s.Key, s.New) + "\n")
			}
		}
	}
	for _, v := range r.Values {
		renderText(&b, p, "value "+v.Name, v)
	}
	if r.Code != nil {
		renderText(&b, p, "code", *r.Code)
	}
	if r.Deps != nil {
		renderText(&b, p, "dependencies", *r.Deps)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderText(b *strings.Builder, p palette, title string, d TextDiff) {
	b.WriteString(p.header("%s (%s)", title, d.Change) + "\n")
	if d.Binary {
		b.WriteString(p.dim("  binary content differs") + "\n")
		return
	}
	for i, diff := range d.Lines {
		lines := splitLines(diff.Text)
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			for _, l := range lines {
				b.WriteString(p.add("+ %s", l) + "\n")
			}
		case diffmatchpatch.DiffDelete:
			for _, l := range lines {
				b.WriteString(p.del("- %s", l) + "\n")
			}
		default:
			writeContext(b, p, lines, i > 0, i < len(d.Lines)-1)
		}
	}
}

// writeContext prints unchanged lines, keeping only those near a change.
func writeContext(b *strings.Builder, p palette, lines []string, after, before bool) {
	keepHead, keepTail := 0, 0
	if after {
		keepHead = contextLines
	}
	if before {
		keepTail = contextLines
	}
	if keepHead+keepTail >= len(lines) {
		for _, l := range lines {
			b.WriteString(p.dim("  %s", l) + "\n")
		}
		return
	}
	for _, l := range lines[:keepHead] {
		b.WriteString(p.dim("  %s", l) + "\n")
	}
	b.WriteString(p.dim("  ...") + "\n")
	for _, l := range lines[len(lines)-keepTail:] {
		b.WriteString(p.dim("  %s", l) + "\n")
	}
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
