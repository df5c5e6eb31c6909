package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var connectionName string

	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show the migration plans applied to a connection",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			applied, err := a.Migrator.Applied(cmd.Context(), connectionName)
			if err != nil {
				return err
			}
			return newFormatter(rootOpts, cmd.OutOrStdout()).Emit(map[string]any{
				"connection": a.Conns.ResolveName(connectionName),
				"applied":    applied,
			}, func(w io.Writer) error {
				if len(applied) == 0 {
					fmt.Fprintln(w, "no plans applied")
					return nil
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PLAN\tAPPLIED AT\tCHECKSUM")
				for _, p := range applied {
					fmt.Fprintf(tw, "%s\t%s\t%.12s\n", p.Name, p.AppliedAt, p.Checksum)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&connectionName, "connection", "default", "connection whose history is listed")
	return cmd
}
