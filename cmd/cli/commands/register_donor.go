package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/matcher"
	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/core/services"
)

// RegisterDonorCmd creates the registerDonor command.
// Only the flags given on the command line are changed on an existing profile.
func RegisterDonorCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registerDonor <donor_id>",
		Short: "Create or update a donor profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update, err := profileUpdateFromFlags(cmd, args[0])
			if err != nil {
				return err
			}

			app.Logger.Debug("registerDonor command", zap.String("donor_id", update.ID))

			donor, err := services.UpdateDonorProfile(app.Ctx, app.Database, matcher.SystemClock{}, app.Logger, update)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Donor profile saved!\n\n")
			fmt.Fprintf(out, "Donor ID:      %s\n", donor.ID)
			fmt.Fprintf(out, "Name:          %s\n", donor.FullName)
			fmt.Fprintf(out, "Blood Type:    %s\n", donor.BloodType)
			fmt.Fprintf(out, "Available:     %t\n", donor.IsAvailable)
			if donor.Location != nil {
				fmt.Fprintf(out, "Location:      %.5f, %.5f\n", donor.Location.Latitude, donor.Location.Longitude)
			}
			if donor.LastDonationDate != "" {
				fmt.Fprintf(out, "Last Donation: %s\n", donor.LastDonationDate)
			}
			fmt.Fprintln(out)

			return nil
		},
	}

	cmd.Flags().String("name", "", "Full name")
	cmd.Flags().String("email", "", "Email address")
	cmd.Flags().String("phone", "", "Phone number")
	cmd.Flags().String("blood-type", "", "Blood type (e.g. A+, O-)")
	cmd.Flags().Bool("available", true, "Whether the donor can currently donate")
	cmd.Flags().String("last-donation", "", "Last donation date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().String("address", "", "Postal address")
	cmd.Flags().Float64("weight", 0, "Weight in kg")
	cmd.Flags().String("dob", "", "Date of birth (YYYY-MM-DD)")
	cmd.Flags().StringSlice("condition", nil, "Medical condition (repeatable)")
	addLocationFlags(cmd)

	return cmd
}

func profileUpdateFromFlags(cmd *cobra.Command, id string) (services.DonorProfileUpdate, error) {
	flags := cmd.Flags()
	update := services.DonorProfileUpdate{ID: id}

	stringFlag := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}

	update.FullName = stringFlag("name")
	update.Email = stringFlag("email")
	update.Phone = stringFlag("phone")
	update.LastDonationDate = stringFlag("last-donation")
	update.Address = stringFlag("address")
	update.DateOfBirth = stringFlag("dob")

	if raw := stringFlag("blood-type"); raw != nil {
		bt := model.BloodType(*raw)
		update.BloodType = &bt
	}
	if flags.Changed("available") {
		v, _ := flags.GetBool("available")
		update.IsAvailable = &v
	}
	if flags.Changed("weight") {
		v, _ := flags.GetFloat64("weight")
		update.Weight = &v
	}
	if flags.Changed("condition") {
		update.MedicalConditions, _ = flags.GetStringSlice("condition")
	}

	location, err := locationFromFlags(cmd)
	if err != nil {
		return services.DonorProfileUpdate{}, err
	}
	update.Location = location

	return update, nil
}
