package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/core/services"
)

// FindDonorsCmd creates the findDonors command
func FindDonorsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "findDonors",
		Short: "Rank compatible donors around a location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rawType, _ := cmd.Flags().GetString("blood-type")
			bloodType, err := model.ParseBloodType(rawType)
			if err != nil {
				return err
			}

			location, err := locationFromFlags(cmd)
			if err != nil {
				return err
			}
			if location == nil {
				return fmt.Errorf("%w: --lat and --lon are required", model.ErrInvalidInput)
			}

			radius, _ := cmd.Flags().GetFloat64("radius")

			candidates, err := app.Engine.FindNearbyDonors(app.Ctx, app.Database, app.Logger, services.NearbyDonorsQuery{
				BloodType: bloodType,
				Location:  *location,
				RadiusKm:  radius,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nFound %d donors compatible with %s:\n\n", len(candidates), bloodType)
			printCandidates(out, candidates)
			fmt.Fprintln(out)

			return nil
		},
	}

	cmd.Flags().String("blood-type", "", "Blood type needed (e.g. A+, O-)")
	cmd.Flags().Float64("radius", 0, "Search radius in km (defaults to the configured discovery radius)")
	addLocationFlags(cmd)
	cmd.MarkFlagRequired("blood-type")

	return cmd
}
