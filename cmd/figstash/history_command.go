package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"figstash/internal/index"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		figure    string
		limit     int
		since     time.Duration
		olderThan time.Duration
		prune     bool
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded figure backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureIndex()
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("backup index is disabled (set [index] enabled = true)")
			}
			out := cmd.OutOrStdout()

			if prune {
				removed, err := store.PruneMissing(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d entries whose backups no longer exist\n", removed)
			}
			if olderThan > 0 {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d entries older than %s\n", removed, olderThan)
			}
			if prune || olderThan > 0 {
				return nil
			}

			opts := index.ListOptions{Figure: figure, Limit: limit}
			if since > 0 {
				opts.Since = time.Now().Add(-since)
			}
			entries, err := store.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No backups recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					shortID(e.ID),
					humanize.Time(e.CreatedAt),
					e.Figure,
					fmt.Sprintf("%d", e.Artifacts),
					fmt.Sprintf("%d", e.Failures),
					humanize.Bytes(uint64(e.Bytes)),
					yesNo(e.Zipped),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Saved", "Figure", "Artifacts", "Failed", "Size", "Zip"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&figure, "figure", "f", "", "Only show backups of this figure")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	cmd.Flags().DurationVar(&since, "since", 0, "Only show backups newer than this duration")
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Remove entries older than this duration")
	cmd.Flags().BoolVar(&prune, "prune-missing", false, "Remove entries whose backup is gone")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
