package cli

import (
	"github.com/spf13/cobra"

	httpserver "schemabridge/internal/http"
	"schemabridge/internal/logging"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Serve the collections JSON API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The server always logs; --verbose only matters for batch commands.
			opts := *rootOpts
			opts.Verbose = true
			a, err := bootstrap(&opts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.Config
			if addr != "" {
				cfg.HTTPAddress = addr
			}
			logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
			return httpserver.New(cfg, logger, a.Registry, a.Audit).Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http_address)")
	return cmd
}
