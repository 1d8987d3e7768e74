package main

import (
	"context"

	"github.com/spf13/cobra"
)

func lsCommand() *cobra.Command {
	var (
		browser   string
		start     int64
		count     int64
		fullPaths bool
	)

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List the browser's directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.List(ctx, browser, start, count, fullPaths)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
	cmd.Flags().StringVar(&browser, "browser", "", "browser selector")
	cmd.Flags().Int64Var(&start, "start", 0, "first entry offset")
	cmd.Flags().Int64Var(&count, "count", 0, "page size (0 for all)")
	cmd.Flags().BoolVar(&fullPaths, "full", false, "print full paths")

	return cmd
}
