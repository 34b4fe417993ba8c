package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:         "migrate",
		Short:       "Apply pending database migrations",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{AnnotationDatabaseOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			applied, err := app.Postgres.RunMigrations(app.Ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintf(out, "\nDatabase is up to date.\n\n")
				return nil
			}

			fmt.Fprintf(out, "\n✓ Applied %d migrations:\n", len(applied))
			for _, name := range applied {
				fmt.Fprintf(out, "  - %s\n", name)
			}
			fmt.Fprintln(out)

			return nil
		},
	}
}
