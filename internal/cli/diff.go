package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"schemabridge/internal/diff"
)

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	var failOnDrift bool

	cmd := &cobra.Command{
		Use:           "diff",
		Short:         "Compare declared collections with the tables on each connection",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			report := diff.Check(cmd.Context(), a.Registry)
			if err := newFormatter(rootOpts, cmd.OutOrStdout()).Emit(report, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, diff.Describe(report))
				return err
			}); err != nil {
				return err
			}
			if failOnDrift && report.HasChanges() {
				return fmt.Errorf("schema drift detected")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failOnDrift, "fail", false, "exit non-zero when drift is found")
	return cmd
}
