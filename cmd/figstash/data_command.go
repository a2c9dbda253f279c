package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newDataCommand(ctx *commandContext) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "data <figure|backup|id> [name]",
		Short: "Print the values captured with a figure as JSON",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.openBackup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if list {
				for _, name := range b.Names() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}
			if len(args) == 2 {
				var v any
				if err := b.Value(args[1], &v); err != nil {
					return err
				}
				return writeJSON(cmd, v)
			}
			data, err := b.Data()
			if err != nil && len(data) == 0 {
				return err
			}
			if writeErr := writeJSON(cmd, data); writeErr != nil {
				return errors.Join(err, writeErr)
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List value names only")
	return cmd
}
