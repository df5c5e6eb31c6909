package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"schemabridge/internal/app"
	"schemabridge/internal/config"
	"schemabridge/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	Verbose    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the schemabridge CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "schemabridge",
		Short: "Schema-validated queries and migrations over SQL and document stores",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $SCHEMABRIDGE_CONFIG or config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log to stderr while running")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSchemasCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewDiffCommand(opts))
	cmd.AddCommand(NewInitConfigCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// commandLogger logs JSON to stderr when --verbose is set and discards
// otherwise, so command output stays parseable.
func commandLogger(opts *RootOptions, cmd *cobra.Command, level string) *slog.Logger {
	if !opts.Verbose {
		return logging.New(io.Discard, level)
	}
	return logging.New(cmd.ErrOrStderr(), level)
}

// bootstrap loads the configuration and opens every connection.
func bootstrap(opts *RootOptions, cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	return app.Bootstrap(cmd.Context(), cfg, commandLogger(opts, cmd, cfg.LogLevel))
}
