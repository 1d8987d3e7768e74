package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Bawycle/lens/internal/core"
)

func nextCommand() *cobra.Command {
	return navCommand("next", "Show the next entry", func(app *app, ctx context.Context, selector string, imagesOnly bool) (core.NavigateResult, error) {
		return app.service.Next(ctx, selector, imagesOnly)
	})
}

func prevCommand() *cobra.Command {
	return navCommand("prev", "Show the previous entry", func(app *app, ctx context.Context, selector string, imagesOnly bool) (core.NavigateResult, error) {
		return app.service.Prev(ctx, selector, imagesOnly)
	})
}

func navCommand(use string, short string, run func(*app, context.Context, string, bool) (core.NavigateResult, error)) *cobra.Command {
	var imagesOnly bool

	cmd := &cobra.Command{
		Use:   use + " [browser]",
		Short: short,
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			selector := ""
			if len(args) == 1 {
				selector = args[0]
			}
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := run(app, ctx, selector, imagesOnly)
			if err != nil {
				return err
			}
			if app.quiet {
				return nil
			}
			return app.printer.Print(result)
		},
	}
	cmd.Flags().BoolVar(&imagesOnly, "images", false, "skip videos while navigating")

	return cmd
}
