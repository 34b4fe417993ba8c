package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifeline-network/bloodmatch/pkg/core/services"
)

// ViewRequestCmd creates the viewRequest command
func ViewRequestCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "viewRequest <request_id>",
		Short: "Show a blood request with its ranked candidates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := services.ViewRequest(app.Ctx, app.Database, app.Logger, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			printRequest(out, req)
			fmt.Fprintln(out)

			return nil
		},
	}
}
