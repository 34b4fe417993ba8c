package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifeline-network/bloodmatch/pkg/core/services"
)

// NotificationsCmd creates the notifications command
func NotificationsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications <user_id>",
		Short: "Show a user's notification inbox or mark notifications read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]
			markRead, _ := cmd.Flags().GetString("mark-read")
			markAll, _ := cmd.Flags().GetBool("mark-all-read")
			out := cmd.OutOrStdout()

			switch {
			case markAll:
				count, err := services.MarkAllNotificationsRead(app.Ctx, app.Database, app.Logger, userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\n✓ Marked %d notifications read\n\n", count)
				return nil

			case markRead != "":
				if err := services.MarkNotificationRead(app.Ctx, app.Database, app.Logger, userID, markRead); err != nil {
					return err
				}
				fmt.Fprintf(out, "\n✓ Notification %s marked read\n\n", markRead)
				return nil
			}

			inbox, err := services.ListNotifications(app.Ctx, app.Database, app.Logger, userID)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\n%d notifications for %s:\n\n", len(inbox), userID)
			for _, n := range inbox {
				marker := colorYellow + "●" + colorReset
				if n.IsRead {
					marker = " "
				}
				fmt.Fprintf(out, "%s %s%s%s  %s\n", marker, colorDim, n.CreatedAt.Format("2006-01-02 15:04"), colorReset, n.Title)
				fmt.Fprintf(out, "    %s\n", n.Message)
				fmt.Fprintf(out, "    %s[%s]%s\n", colorDim, n.ID, colorReset)
			}
			fmt.Fprintln(out)

			return nil
		},
	}

	cmd.Flags().String("mark-read", "", "Mark the notification with this ID as read")
	cmd.Flags().Bool("mark-all-read", false, "Mark every notification as read")
	cmd.MarkFlagsMutuallyExclusive("mark-read", "mark-all-read")

	return cmd
}
