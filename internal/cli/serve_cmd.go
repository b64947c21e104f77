package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"duck-rollup/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Serves the optimizer pipeline over HTTP: route, run, catalog, stats, and run-history endpoints.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer cancel()
			return app.Serve(ctx)
		},
	}
}
