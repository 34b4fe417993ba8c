package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CancelRequestCmd creates the cancelRequest command
func CancelRequestCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancelRequest <request_id>",
		Short: "Cancel a pending or matching blood request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := app.Engine.CancelRequest(app.Ctx, app.Database, app.Logger, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Request %s cancelled (%d/%d units had been fulfilled)\n\n",
				req.ID, req.UnitsFulfilled, req.UnitsNeeded)
			return nil
		},
	}
}
