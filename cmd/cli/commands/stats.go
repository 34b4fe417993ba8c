package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifeline-network/bloodmatch/pkg/core/services"
)

// StatsCmd creates the stats command
func StatsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <user_id>",
		Short: "Show dashboard statistics for a donor, requester or administrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")

			stats, err := services.GetDashboardStats(app.Ctx, app.Database, app.Logger, args[0], services.Role(role))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nDashboard (%s)\n\n", stats.Role)

			switch {
			case stats.Donor != nil:
				fmt.Fprintf(out, "Total Donations:   %d\n", stats.Donor.TotalDonations)
				fmt.Fprintf(out, "Lives Saved:       %d\n", stats.Donor.LivesSaved)
				fmt.Fprintf(out, "Open Requests:     %d\n", stats.Donor.PendingRequests)
				fmt.Fprintf(out, "Available:         %t\n", stats.Donor.IsAvailable)
			case stats.Requester != nil:
				fmt.Fprintf(out, "Total Requests:    %d\n", stats.Requester.TotalRequests)
				fmt.Fprintf(out, "Fulfilled:         %d\n", stats.Requester.FulfilledRequests)
				fmt.Fprintf(out, "Open:              %d\n", stats.Requester.PendingRequests)
			case stats.Network != nil:
				fmt.Fprintf(out, "Donors:            %d (%d available)\n", stats.Network.TotalDonors, stats.Network.ActiveDonors)
				fmt.Fprintf(out, "Requests:          %d\n", stats.Network.TotalRequests)
				fmt.Fprintf(out, "Fulfilled:         %d\n", stats.Network.FulfilledRequests)
				fmt.Fprintf(out, "Fulfillment Rate:  %.1f%%\n", stats.Network.FulfillmentRate)
			}
			fmt.Fprintf(out, "Unread:            %d\n\n", stats.UnreadNotifications)

			return nil
		},
	}

	cmd.Flags().String("role", string(services.RoleDonor), "Dashboard view: donor, requester or admin")

	return cmd
}
