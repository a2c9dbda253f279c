package stash

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/list"
)

// printTree writes the saved figure and the backup layout to w.
func printTree(w io.Writer, rep *Report) {
	fmt.Fprintf(w, "Saved figure: %s\n", rep.Figure)
	fmt.Fprintln(w, "Saving backup data to:")
	fmt.Fprintln(w, renderTree(rep.Target, rep.Paths()))
}

func renderTree(root string, paths []string) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedLight)
	l.AppendItem(root)
	l.Indent()

	var open []string
	for _, p := range sorted {
		parts := strings.Split(p, "/")
		dirs := parts[:len(parts)-1]
		common := 0
		for common < len(open) && common < len(dirs) && open[common] == dirs[common] {
			common++
		}
		for range len(open) - common {
			l.UnIndent()
		}
		open = open[:common]
		for _, d := range dirs[common:] {
			l.AppendItem(d + "/")
			l.Indent()
			open = append(open, d)
		}
		l.AppendItem(parts[len(parts)-1])
	}
	return l.Render()
}
