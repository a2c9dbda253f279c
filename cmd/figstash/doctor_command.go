package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"figstash/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that backups can be written and recorded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				if dir, err = os.Getwd(); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n\n", ctx.configPath)

			failed := 0
			var rows [][]string
			for _, r := range preflight.RunAll(cmd.Context(), cfg, dir) {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
					failed++
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			for _, s := range preflight.CheckSystemDeps() {
				status := "ok"
				if !s.Available {
					status = "missing"
					if !s.Optional {
						failed++
					}
				}
				rows = append(rows, []string{s.Name, status, s.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			if failed > 0 {
				return fmt.Errorf("%d checks failed", failed)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory figures will be saved into (default: working directory)")
	return cmd
}
