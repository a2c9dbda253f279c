package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"figstash/internal/backupdiff"
)

func newDiffCommand(ctx *commandContext) *cobra.Command {
	var colorMode string

	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compare two figure backups",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			colored, err := wantColor(cmd, colorMode)
			if err != nil {
				return err
			}
			a, err := ctx.openBackup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			b, err := ctx.openBackup(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			res, cmpErr := backupdiff.Compare(a, b)
			if err := backupdiff.Render(cmd.OutOrStdout(), res, colored); err != nil {
				return err
			}
			return cmpErr
		},
	}
	cmd.Flags().StringVar(&colorMode, "color", "auto", "Colorize output: auto, always or never")
	return cmd
}

func wantColor(cmd *cobra.Command, mode string) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		if os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		f, ok := cmd.OutOrStdout().(*os.File)
		return ok && isatty.IsTerminal(f.Fd()), nil
	default:
		return false, fmt.Errorf("invalid --color %q (want auto, always or never)", mode)
	}
}
