package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RematchRequestCmd creates the rematchRequest command
func RematchRequestCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rematchRequest <request_id>",
		Short: "Re-run matching for an open request and notify newly listed donors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Engine.RematchRequest(app.Ctx, app.Database, app.Logger, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(result.Added) == 0 {
				fmt.Fprintf(out, "\nNo new donors found for request %s.\n\n", result.Request.ID)
				return nil
			}

			fmt.Fprintf(out, "\n✓ Added %d donors to request %s:\n\n", len(result.Added), result.Request.ID)
			printCandidates(out, result.Added)
			fmt.Fprintln(out)

			return nil
		},
	}
}
