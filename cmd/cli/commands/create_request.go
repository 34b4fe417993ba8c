package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/core/services"
)

// CreateRequestCmd creates the createRequest command
func CreateRequestCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createRequest",
		Short: "Create a blood request and match it against the donor pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := requestInputFromFlags(cmd)
			if err != nil {
				return err
			}

			app.Logger.Debug("createRequest command",
				zap.String("requester_id", input.RequesterID),
				zap.String("blood_type", string(input.BloodType)))

			req, err := app.Engine.CreateRequest(app.Ctx, app.Database, app.Logger, input)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Blood request created!\n\n")
			printRequest(out, req)
			fmt.Fprintln(out)

			return nil
		},
	}

	addRequestFlags(cmd)
	cmd.MarkFlagRequired("requester")
	cmd.MarkFlagRequired("blood-type")

	return cmd
}

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("requester", "", "Requester user ID")
	cmd.Flags().String("requester-name", "", "Requester display name")
	cmd.Flags().String("requester-email", "", "Requester email for acceptance notices")
	cmd.Flags().String("blood-type", "", "Blood type needed (e.g. A+, O-)")
	cmd.Flags().Int("units", 1, "Units of blood needed")
	cmd.Flags().String("urgency", string(model.UrgencyNormal), "Urgency: emergency, urgent or normal")
	cmd.Flags().String("hospital", "", "Hospital name")
	cmd.Flags().String("hospital-address", "", "Hospital address")
	cmd.Flags().String("patient", "", "Patient name")
	cmd.Flags().String("notes", "", "Free-text notes")
	addLocationFlags(cmd)
}

func requestInputFromFlags(cmd *cobra.Command) (services.CreateRequestInput, error) {
	flags := cmd.Flags()

	rawType, _ := flags.GetString("blood-type")
	bloodType, err := model.ParseBloodType(rawType)
	if err != nil {
		return services.CreateRequestInput{}, err
	}

	location, err := locationFromFlags(cmd)
	if err != nil {
		return services.CreateRequestInput{}, err
	}

	input := services.CreateRequestInput{
		BloodType: bloodType,
		Location:  location,
	}
	input.RequesterID, _ = flags.GetString("requester")
	input.RequesterName, _ = flags.GetString("requester-name")
	input.RequesterEmail, _ = flags.GetString("requester-email")
	input.UnitsNeeded, _ = flags.GetInt("units")
	urgency, _ := flags.GetString("urgency")
	input.Urgency = model.Urgency(urgency)
	input.HospitalName, _ = flags.GetString("hospital")
	input.HospitalAddress, _ = flags.GetString("hospital-address")
	input.PatientName, _ = flags.GetString("patient")
	input.Notes, _ = flags.GetString("notes")

	return input, nil
}
