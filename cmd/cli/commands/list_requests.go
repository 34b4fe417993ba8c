package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/core/services"
	"github.com/lifeline-network/bloodmatch/pkg/db"
)

// ListRequestsCmd creates the listRequests command
func ListRequestsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listRequests",
		Short: "List blood requests, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := db.RequestFilter{}
			filter.RequesterID, _ = cmd.Flags().GetString("requester")
			filter.CandidateDonorID, _ = cmd.Flags().GetString("donor")
			filter.Limit, _ = cmd.Flags().GetInt("limit")
			statuses, _ := cmd.Flags().GetStringSlice("status")
			for _, s := range statuses {
				filter.Statuses = append(filter.Statuses, model.RequestStatus(s))
			}

			requests, err := services.ListRequests(app.Ctx, app.Database, app.Logger, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nFound %d requests:\n\n", len(requests))
			for _, r := range requests {
				hospital := r.HospitalName
				if hospital == "" {
					hospital = "-"
				}
				fmt.Fprintf(out, "- %s  %-4s %d/%d  %-9s %-10s %-20s %s%s%s\n",
					r.ID, r.BloodType, r.UnitsFulfilled, r.UnitsNeeded, r.Urgency, r.Status,
					truncate(hospital, 20), colorDim, r.CreatedAt.Format("2006-01-02 15:04"), colorReset)
			}
			fmt.Fprintln(out)

			return nil
		},
	}

	cmd.Flags().String("requester", "", "Only requests created by this requester")
	cmd.Flags().String("donor", "", "Only requests listing this donor as a candidate")
	cmd.Flags().StringSlice("status", nil, "Only requests in these statuses (pending, matching, fulfilled, cancelled)")
	cmd.Flags().Int("limit", services.RequestListLimit, "Maximum number of requests")

	return cmd
}
