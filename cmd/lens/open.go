package main

import (
	"context"

	"github.com/spf13/cobra"
)

func openCommand() *cobra.Command {
	var browser string

	cmd := &cobra.Command{
		Use:   "open PATH",
		Short: "Point a browser at a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.Open(ctx, browser, args[0])
			if err != nil {
				return err
			}
			if app.quiet {
				return nil
			}
			return app.printer.Print(result)
		},
	}
	cmd.Flags().StringVar(&browser, "browser", "", "browser selector")

	return cmd
}
