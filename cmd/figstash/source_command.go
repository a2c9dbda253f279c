package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"figstash/internal/fileutil"
	"figstash/stash"
)

func newSourceCommand(ctx *commandContext) *cobra.Command {
	var (
		full   bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "source <figure|backup|id>",
		Short: "Print or restore the plotting code saved with a figure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.openBackup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output != "" {
				return restoreSource(cmd, b, output)
			}
			read := b.Source
			if full {
				read = b.ModuleSource
			}
			src, err := read()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(src)
			return err
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Print the whole source file instead of the function")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Copy the source file to this path")
	return cmd
}

func restoreSource(cmd *cobra.Command, b *stash.Backup, dst string) error {
	meta, ok := b.Metadata()
	if !ok || meta.Function == nil || meta.Function.ModuleFile == "" {
		return errors.New("backup records no source file to restore")
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%s already exists", dst)
	}
	src := filepath.Join(b.Dir(), filepath.FromSlash(meta.Function.ModuleFile))
	if err := fileutil.CopyFile(src, dst); err != nil {
		return fmt.Errorf("restore source: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Restored %s to %s\n", meta.Function.ModuleFile, dst)
	return nil
}
