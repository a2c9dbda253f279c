package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/plotter"

	"figstash/gonumplot"
	"figstash/stash"
)

// csvPlot is everything renderCSV needs; its fields are captured into the
// backup when the figure is saved.
type csvPlot struct {
	Source  string               `stash:"source"`
	Kind    string               `stash:"kind"`
	Title   string               `stash:"title"`
	XLabel  string               `stash:"x_label"`
	X       []float64            `stash:"x"`
	Series  map[string][]float64 `stash:"series"`
	Columns []string             `stash:"columns"`
}

func newPlotCommand(ctx *commandContext) *cobra.Command {
	var (
		output  string
		kind    string
		title   string
		xColumn string
		yCols   []string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "plot <data.csv>",
		Short: "Plot CSV columns and back up the inputs next to the figure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source := args[0]
			params, err := loadCSVPlot(source, xColumn, yCols)
			if err != nil {
				return err
			}
			params.Kind = kind
			params.Title = title
			if params.Title == "" {
				params.Title = cfg.Plot.Title
			}

			target := strings.TrimSpace(output)
			if target == "" {
				base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
				target = filepath.Join(filepath.Dir(source), base+"."+cfg.Plot.Format)
			}

			opts, err := ctx.backupOptions(cmd.OutOrStdout(), verbose)
			if err != nil {
				return err
			}
			fig, err := stash.Wrap(renderCSV, opts...)(params)
			if err != nil {
				return err
			}
			rep, err := fig.SaveContext(cmd.Context(), target)
			if err != nil {
				return fmt.Errorf("save figure: %w", err)
			}
			printSaveSummary(cmd, rep)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Figure path (default: next to the CSV)")
	cmd.Flags().StringVar(&kind, "kind", "line", "Series style: line or scatter")
	cmd.Flags().StringVar(&title, "title", "", "Plot title")
	cmd.Flags().StringVarP(&xColumn, "x", "x", "", "X column (default: first column)")
	cmd.Flags().StringSliceVarP(&yCols, "y", "y", nil, "Y columns (default: all other columns)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the backup layout")
	return cmd
}

// renderCSV draws every series of p on one figure.
func renderCSV(p csvPlot) (*gonumplot.Figure, error) {
	fig, err := gonumplot.New(p.Title)
	if err != nil {
		return nil, err
	}
	if fig.Plot.X.Label.Text == "" {
		fig.Plot.X.Label.Text = p.XLabel
	}
	for _, name := range p.Columns {
		ys := p.Series[name]
		xys := make(plotter.XYs, len(ys))
		for i, y := range ys {
			xys[i] = plotter.XY{X: p.X[i], Y: y}
		}
		switch p.Kind {
		case "scatter":
			err = fig.AddScatter(name, xys)
		case "line", "":
			err = fig.AddLine(name, xys)
		default:
			return nil, fmt.Errorf("unknown plot kind %q", p.Kind)
		}
		if err != nil {
			return nil, err
		}
	}
	return fig, nil
}

func loadCSVPlot(path, xColumn string, yColumns []string) (csvPlot, error) {
	f, err := os.Open(path)
	if err != nil {
		return csvPlot{}, fmt.Errorf("open data: %w", err)
	}
	defer f.Close()
	return parseCSVPlot(f, path, xColumn, yColumns)
}

func parseCSVPlot(r io.Reader, source, xColumn string, yColumns []string) (csvPlot, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return csvPlot{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) < 2 {
		return csvPlot{}, errors.New("csv needs a header row and at least one data row")
	}
	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	col := func(name string) (int, error) {
		idx := slices.Index(header, name)
		if idx < 0 {
			return 0, fmt.Errorf("column %q not in header %v", name, header)
		}
		return idx, nil
	}

	xIdx := 0
	if xColumn != "" {
		if xIdx, err = col(xColumn); err != nil {
			return csvPlot{}, err
		}
	}
	if len(yColumns) == 0 {
		for i, h := range header {
			if i != xIdx {
				yColumns = append(yColumns, h)
			}
		}
	}
	if len(yColumns) == 0 {
		return csvPlot{}, errors.New("csv has no y columns")
	}
	yIdx := make([]int, len(yColumns))
	for i, name := range yColumns {
		if yIdx[i], err = col(name); err != nil {
			return csvPlot{}, err
		}
	}

	p := csvPlot{
		Source:  source,
		XLabel:  header[xIdx],
		Series:  make(map[string][]float64, len(yColumns)),
		Columns: yColumns,
	}
	for line, rec := range records[1:] {
		x, err := parseCell(rec, xIdx, line+2)
		if err != nil {
			return csvPlot{}, err
		}
		p.X = append(p.X, x)
		for i, name := range yColumns {
			y, err := parseCell(rec, yIdx[i], line+2)
			if err != nil {
				return csvPlot{}, err
			}
			p.Series[name] = append(p.Series[name], y)
		}
	}
	return p, nil
}

func parseCell(rec []string, idx, line int) (float64, error) {
	if idx >= len(rec) {
		return 0, fmt.Errorf("line %d: missing column %d", line, idx+1)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: %w", line, err)
	}
	return v, nil
}

func printSaveSummary(cmd *cobra.Command, rep *stash.Report) {
	out := cmd.OutOrStdout()
	if rep == nil {
		return
	}
	if rep.Fatal != nil {
		fmt.Fprintf(out, "Saved %s; backup failed: %v\n", rep.Figure, rep.Fatal)
		return
	}
	fmt.Fprintf(out, "Saved %s (backup %s, %d artifacts)\n", rep.Figure, rep.Target, len(rep.Artifacts))
	for _, f := range rep.Failures {
		fmt.Fprintf(out, "  skipped: %v\n", f)
	}
}
