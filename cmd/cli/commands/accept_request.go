package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

// AcceptRequestCmd creates the acceptRequest command
func AcceptRequestCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "acceptRequest <request_id> <donor_id>",
		Short: "Record that a matched donor accepts to donate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := app.Engine.AcceptRequest(app.Ctx, app.Database, app.Logger, args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Donor %s accepted request %s\n\n", args[1], req.ID)
			fmt.Fprintf(out, "Units:  %d/%d fulfilled\n", req.UnitsFulfilled, req.UnitsNeeded)
			fmt.Fprintf(out, "Status: %s\n", req.Status)
			if req.Status == model.RequestStatusFulfilled {
				fmt.Fprintf(out, "\n%sRequest fulfilled.%s\n", colorGreen, colorReset)
			}
			fmt.Fprintln(out)

			return nil
		},
	}
}
