package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type schemaRow struct {
	Name       string `json:"name"`
	Connection string `json:"connection"`
	Collection string `json:"collection"`
	Fields     int    `json:"fields"`
	DeleteType string `json:"delete_type"`
}

// NewSchemasCommand creates the schemas command.
func NewSchemasCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "schemas",
		Short:         "List the schemas declared in the configuration",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rows := []schemaRow{}
			for _, name := range a.Registry.Names() {
				def, ok := a.Registry.Get(name)
				if !ok {
					continue
				}
				rows = append(rows, schemaRow{
					Name:       def.Name,
					Connection: a.Conns.ResolveName(def.ConnectionName),
					Collection: def.CollectionName,
					Fields:     len(def.Fields),
					DeleteType: string(def.DeleteType),
				})
			}

			return newFormatter(rootOpts, cmd.OutOrStdout()).Emit(map[string]any{"schemas": rows}, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tCONNECTION\tCOLLECTION\tFIELDS\tDELETE")
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.Name, r.Connection, r.Collection, r.Fields, r.DeleteType)
				}
				return tw.Flush()
			})
		},
	}
}
