package main

import (
	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the selected ranking",
		Long: "Show the selected ranking in rank order. When the backend cannot be reached\n" +
			"the last confirmed copy is shown and marked as possibly out of date.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, false, func(ws *workspace) error {
				l, err := loadListing(cmd, ws, offline)
				if err != nil {
					return err
				}
				return ctx.printListing(cmd, l)
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Show the cached copy without contacting the backend")
	return cmd
}
