package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"figstash/stash"
)

type showArtifact struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
	Size  int64  `json:"size"`
}

type showOutput struct {
	Dir       string          `json:"dir"`
	ID        string          `json:"id,omitempty"`
	Figure    string          `json:"figure,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	Codec     string          `json:"codec,omitempty"`
	Function  string          `json:"function,omitempty"`
	Artifacts []showArtifact  `json:"artifacts"`
	Failures  []stash.Failure `json:"failures,omitempty"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <figure|backup|id>",
		Short: "Describe a figure backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.openBackup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			view := buildShowOutput(b)
			if jsonOut {
				return writeJSON(cmd, view)
			}
			renderShow(cmd, view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func buildShowOutput(b *stash.Backup) showOutput {
	view := showOutput{Dir: b.Dir()}
	if meta, ok := b.Metadata(); ok {
		created := meta.CreatedAt
		view.ID = meta.ID
		view.Figure = meta.Figure
		view.CreatedAt = &created
		view.Codec = meta.Codec
		view.Failures = meta.Failures
		if meta.Function != nil {
			view.Function = meta.Function.Name
		}
	}
	for _, a := range b.Artifacts() {
		view.Artifacts = append(view.Artifacts, showArtifact{
			Path:  a.Path,
			Kind:  string(a.Kind),
			Value: a.Value,
			Size:  a.Size,
		})
	}
	return view
}

func renderShow(cmd *cobra.Command, view showOutput) {
	out := cmd.OutOrStdout()
	title := cases.Title(language.English)

	fmt.Fprintf(out, "Backup:   %s\n", view.Dir)
	if view.ID != "" {
		fmt.Fprintf(out, "ID:       %s\n", view.ID)
		fmt.Fprintf(out, "Figure:   %s\n", view.Figure)
		fmt.Fprintf(out, "Saved:    %s (%s)\n", view.CreatedAt.Local().Format(time.DateTime), humanize.Time(*view.CreatedAt))
		fmt.Fprintf(out, "Codec:    %s\n", view.Codec)
	}
	if view.Function != "" {
		fmt.Fprintf(out, "Function: %s\n", view.Function)
	}

	rows := make([][]string, 0, len(view.Artifacts))
	var total int64
	for _, a := range view.Artifacts {
		kind := a.Kind
		if kind == "" {
			kind = "other"
		}
		rows = append(rows, []string{a.Path, title.String(kind), a.Value, humanize.Bytes(uint64(a.Size))})
		total += a.Size
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Artifact", "Kind", "Value", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))
	fmt.Fprintf(out, "%s artifacts, %s\n", strconv.Itoa(len(rows)), humanize.Bytes(uint64(total)))

	if len(view.Failures) > 0 {
		fmt.Fprintln(out, "\nSkipped artifacts:")
		for _, f := range view.Failures {
			subject := f.Value
			if subject == "" {
				subject = f.Path
			}
			fmt.Fprintf(out, "  %s %s: %s\n", title.String(string(f.Kind)), subject, f.Message)
		}
	}
}
