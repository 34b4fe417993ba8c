package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lifeline-network/bloodmatch/pkg/core/geo"
	"github.com/lifeline-network/bloodmatch/pkg/core/matcher"
	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/core/services"
	"github.com/lifeline-network/bloodmatch/pkg/db"
	"github.com/lifeline-network/bloodmatch/pkg/notify"
)

// Scenario is an offline donor pool plus the requests to run against it
type Scenario struct {
	Donors   []ScenarioDonor   `yaml:"donors" validate:"dive"`
	Requests []ScenarioRequest `yaml:"requests" validate:"required,min=1,dive"`
}

type ScenarioDonor struct {
	ID           string          `yaml:"id" validate:"required"`
	Name         string          `yaml:"name"`
	Email        string          `yaml:"email" validate:"omitempty,email"`
	BloodType    string          `yaml:"bloodType" validate:"required"`
	Available    *bool           `yaml:"available"`
	Location     *geo.Coordinate `yaml:"location"`
	LastDonation string          `yaml:"lastDonation"`
}

type ScenarioRequest struct {
	Requester string          `yaml:"requester" validate:"required"`
	BloodType string          `yaml:"bloodType" validate:"required"`
	Units     int             `yaml:"units" validate:"gte=1"`
	Urgency   string          `yaml:"urgency" validate:"required"`
	Hospital  string          `yaml:"hospital"`
	Location  *geo.Coordinate `yaml:"location"`

	// Accept lists donors who accept after matching, in order
	Accept []string `yaml:"accept"`
}

// LoadScenario reads and validates a scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	if err := validator.New().Struct(scenario); err != nil {
		return nil, fmt.Errorf("%w: scenario validation failed: %v", model.ErrInvalidInput, err)
	}

	return &scenario, nil
}

// SimulateCmd creates the simulate command
func SimulateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:         "simulate <scenario.yaml>",
		Short:       "Run requests against a donor pool from a file, without a database",
		Long:        "Loads donors into an in-memory store and runs matching, notification and acceptance end to end. Notifications are written to the log; the advisory note always uses the fallback text.",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{AnnotationOffline: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := LoadScenario(args[0])
			if err != nil {
				return err
			}

			app.Logger.Info("Running simulation",
				zap.Int("donors", len(scenario.Donors)),
				zap.Int("requests", len(scenario.Requests)))

			return RunScenario(app, scenario, cmd.OutOrStdout())
		},
	}
}

// RunScenario plays a scenario against a fresh in-memory store
func RunScenario(app *AppContext, scenario *Scenario, out io.Writer) error {
	store := db.NewMemoryDB()

	for _, d := range scenario.Donors {
		bloodType := model.BloodType(d.BloodType)
		available := true
		if d.Available != nil {
			available = *d.Available
		}
		update := services.DonorProfileUpdate{
			ID:          d.ID,
			FullName:    &d.Name,
			BloodType:   &bloodType,
			IsAvailable: &available,
			Location:    d.Location,
		}
		if d.Email != "" {
			update.Email = &d.Email
		}
		if d.LastDonation != "" {
			update.LastDonationDate = &d.LastDonation
		}
		if _, err := services.UpdateDonorProfile(app.Ctx, store, matcher.SystemClock{}, app.Logger, update); err != nil {
			return fmt.Errorf("failed to load donor %s: %w", d.ID, err)
		}
	}

	dispatcher := notify.NewDispatcher(store, app.Logger, app.Metrics, notify.Options{
		QueueSize: app.Cfg.Notifications.QueueSize,
		Workers:   app.Cfg.Notifications.Workers,
	}, notify.NewLogSink(app.Logger))
	defer dispatcher.Close()

	advisorCfg := app.Cfg.Advisor
	advisorCfg.Enabled = false
	annotator := NewAnnotator(advisorCfg, app.Logger, app.Metrics)

	engine := NewEngine(app.Cfg, dispatcher, annotator, app.Logger, app.Metrics)

	for i, r := range scenario.Requests {
		bloodType, err := model.ParseBloodType(r.BloodType)
		if err != nil {
			return fmt.Errorf("request %d: %w", i+1, err)
		}

		req, err := engine.CreateRequest(app.Ctx, store, app.Logger, services.CreateRequestInput{
			RequesterID:  r.Requester,
			BloodType:    bloodType,
			UnitsNeeded:  r.Units,
			Urgency:      model.Urgency(r.Urgency),
			HospitalName: r.Hospital,
			Location:     r.Location,
		})
		if err != nil {
			return fmt.Errorf("request %d: %w", i+1, err)
		}

		fmt.Fprintf(out, "\n=== Request %d: %d x %s (%s) ===\n\n", i+1, r.Units, bloodType, r.Urgency)
		printCandidates(out, req.Candidates)

		for _, donorID := range r.Accept {
			accepted, err := engine.AcceptRequest(app.Ctx, store, app.Logger, req.ID, donorID)
			if err != nil {
				if !errors.Is(err, model.ErrConflict) && !errors.Is(err, model.ErrNotFound) {
					return err
				}
				fmt.Fprintf(out, "  ✗ %s: %s\n", donorID, UserMessage(err))
				continue
			}
			fmt.Fprintf(out, "  ✓ %s accepted (%d/%d)\n", donorID, accepted.UnitsFulfilled, accepted.UnitsNeeded)
		}

		final, err := store.GetRequest(app.Ctx, req.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n  Final status: %s\n", final.Status)
	}

	stats, err := services.GetDashboardStats(app.Ctx, store, app.Logger, "simulation", services.RoleAdmin)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n=== Summary ===\n\n")
	fmt.Fprintf(out, "Donors:           %d (%d still available)\n", stats.Network.TotalDonors, stats.Network.ActiveDonors)
	fmt.Fprintf(out, "Requests:         %d\n", stats.Network.TotalRequests)
	fmt.Fprintf(out, "Fulfilled:        %d\n", stats.Network.FulfilledRequests)
	fmt.Fprintf(out, "Fulfillment Rate: %.1f%%\n\n", stats.Network.FulfillmentRate)

	return nil
}
