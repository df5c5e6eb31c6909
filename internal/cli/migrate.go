package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"schemabridge/internal/dialect"
	"schemabridge/internal/migrate"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dryRun      bool
		dialectName string
	)

	cmd := &cobra.Command{
		Use:   "migrate <plan.yaml|dir>...",
		Short: "Apply migration plans",
		Long: `Apply YAML migration plans in the order given; a directory stands for its
plan files sorted by name. Each plan is recorded in
the history table of its connection and skipped when applied again.

With --dry-run the plans are compiled for --dialect and printed; no
configuration or connection is needed.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := migrate.LoadPlans(args...)
			if err != nil {
				return err
			}
			out := newFormatter(rootOpts, cmd.OutOrStdout())
			if dryRun {
				return printPlans(out, plans, dialect.Normalize(dialectName))
			}

			a, err := bootstrap(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			type planResult struct {
				Plan    string           `json:"plan"`
				Reports []migrate.Report `json:"reports"`
				Skipped bool             `json:"skipped"`
			}
			var results []planResult
			var applyErr error
			for _, plan := range plans {
				reports, err := plan.Apply(cmd.Context(), a.Migrator)
				results = append(results, planResult{Plan: plan.Name, Reports: reports, Skipped: err == nil && reports == nil})
				if err != nil {
					applyErr = err
					break
				}
			}

			if err := out.Emit(map[string]any{"plans": results}, func(w io.Writer) error {
				for _, r := range results {
					if r.Skipped {
						fmt.Fprintf(w, "%s: already applied\n", r.Plan)
						continue
					}
					applied, failed := 0, 0
					for _, rep := range r.Reports {
						failed += len(rep.Failed())
						applied += len(rep.Results) - len(rep.Failed())
					}
					fmt.Fprintf(w, "%s: %d statement(s) applied, %d failed\n", r.Plan, applied, failed)
				}
				return nil
			}); err != nil {
				return err
			}
			return applyErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the compiled statements without connecting")
	cmd.Flags().StringVar(&dialectName, "dialect", "mysql", "dialect used by --dry-run (mysql|postgres|sqlite)")
	return cmd
}

func printPlans(out *OutputFormatter, plans []*migrate.Plan, d dialect.Name) error {
	type compiledPlan struct {
		Plan       string   `json:"plan"`
		Checksum   string   `json:"checksum"`
		Statements []string `json:"statements"`
	}
	compiled := make([]compiledPlan, 0, len(plans))
	for _, plan := range plans {
		stmts, err := plan.Statements(d)
		if err != nil {
			return fmt.Errorf("plan %s: %w", plan.Name, err)
		}
		compiled = append(compiled, compiledPlan{Plan: plan.Name, Checksum: plan.Checksum(), Statements: stmts})
	}
	return out.Emit(map[string]any{"dialect": d, "plans": compiled}, func(w io.Writer) error {
		for _, c := range compiled {
			fmt.Fprintf(w, "-- %s (%s)\n", c.Plan, d)
			for _, stmt := range c.Statements {
				fmt.Fprintf(w, "%s;\n", stmt)
			}
		}
		return nil
	})
}
