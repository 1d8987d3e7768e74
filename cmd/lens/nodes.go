package main

import (
	"context"

	"github.com/spf13/cobra"
)

func nodesCommand() *cobra.Command {
	var (
		kind       string
		onlineOnly bool
	)

	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List nodes on the bus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.ListNodes(ctx, kind, onlineOnly)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "filter by node kind")
	cmd.Flags().BoolVar(&onlineOnly, "online", false, "only nodes currently present")

	return cmd
}
