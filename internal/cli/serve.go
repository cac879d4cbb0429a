package cli

import (
	"context"

	"aci2netbox/ioc"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled syncs and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd.Flags())
			if err != nil {
				return fail(ExitFailure, err)
			}
			ctx := cmd.Context()
			srv, cleanup, err := ioc.InitApp(ctx, cfg)
			if err != nil {
				return fail(ExitFailure, err)
			}
			defer cleanup()
			defer srv.Shutdown(context.Background())

			if err := srv.Run(ctx); err != nil {
				return fail(ExitFailure, err)
			}
			return nil
		},
	}
}
