package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create the table of every schema that lacks one",
		Long: `Issue CREATE TABLE IF NOT EXISTS for every declared schema on its own
connection. Schemas bound to the memory store are skipped. With --dry-run
the statements are printed and nothing runs.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			results, syncErr := a.Sync(cmd.Context(), dryRun)
			out := newFormatter(rootOpts, cmd.OutOrStdout())
			if err := out.Emit(map[string]any{"dry_run": dryRun, "results": results}, func(w io.Writer) error {
				for _, r := range results {
					for _, stmt := range r.Statements {
						fmt.Fprintf(w, "-- %s\n%s;\n", r.Schema, stmt)
					}
					for _, failed := range r.Report.Failed() {
						fmt.Fprintf(w, "-- failed: %v\n", failed.Err)
					}
				}
				return nil
			}); err != nil {
				return err
			}
			return syncErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print statements without executing them")
	return cmd
}
