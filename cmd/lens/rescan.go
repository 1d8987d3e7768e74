package main

import (
	"context"

	"github.com/spf13/cobra"
)

func rescanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rescan [browser]",
		Short: "Rescan the browser's directory",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			selector := ""
			if len(args) == 1 {
				selector = args[0]
			}
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.Rescan(ctx, selector)
			if err != nil {
				return err
			}
			if app.quiet {
				return nil
			}
			return app.printer.Print(result)
		},
	}
}
