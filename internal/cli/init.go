package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"schemabridge/internal/config"
)

// NewInitConfigCommand creates the init-config command.
func NewInitConfigCommand(rootOpts *RootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:           "init-config",
		Short:         "Write a starter config.yaml",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.Sample), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "config.yaml", "where to write the sample config")
	return cmd
}
