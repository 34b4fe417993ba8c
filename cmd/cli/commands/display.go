package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lifeline-network/bloodmatch/pkg/core/geo"
	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

// scoreColor picks a colour band for a 0-100 score
func scoreColor(score float64, high, medium, low string) string {
	switch {
	case score >= 80:
		return high
	case score >= 50:
		return medium
	default:
		return low
	}
}

func addLocationFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("lat", 0, "Latitude in decimal degrees")
	cmd.Flags().Float64("lon", 0, "Longitude in decimal degrees")
}

// locationFromFlags returns nil when neither --lat nor --lon is set.
// Setting only one of them is an error.
func locationFromFlags(cmd *cobra.Command) (*geo.Coordinate, error) {
	latSet := cmd.Flags().Changed("lat")
	lonSet := cmd.Flags().Changed("lon")
	if !latSet && !lonSet {
		return nil, nil
	}
	if latSet != lonSet {
		return nil, fmt.Errorf("%w: --lat and --lon must be given together", model.ErrInvalidInput)
	}

	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	return &geo.Coordinate{Latitude: lat, Longitude: lon}, nil
}

func printCandidates(out io.Writer, candidates []model.Candidate) {
	if len(candidates) == 0 {
		fmt.Fprintln(out, "  No candidates.")
		return
	}

	fmt.Fprintf(out, "  %-3s %-24s %-5s %9s %6s  %-9s %s\n", "#", "Donor", "Type", "Distance", "Score", "Available", "Status")
	fmt.Fprintf(out, "  %s\n", strings.Repeat("-", 72))
	for i, c := range candidates {
		name := c.DonorName
		if name == "" {
			name = c.DonorID
		}
		available := "yes"
		if !c.IsAvailable {
			available = "no"
		}
		color := scoreColor(c.Score, colorGreen, colorYellow, colorRed)
		fmt.Fprintf(out, "  %-3d %-24s %-5s %7.2fkm %s%6.0f%s  %-9s %s\n",
			i+1, truncate(name, 24), c.BloodType, c.DistanceKm, color, c.Score, colorReset, available, c.Status)
	}
}

func printRequest(out io.Writer, req *model.BloodRequest) {
	fmt.Fprintf(out, "Request ID:   %s\n", req.ID)
	fmt.Fprintf(out, "Status:       %s\n", req.Status)
	fmt.Fprintf(out, "Blood Type:   %s\n", req.BloodType)
	fmt.Fprintf(out, "Units:        %d/%d fulfilled\n", req.UnitsFulfilled, req.UnitsNeeded)
	fmt.Fprintf(out, "Urgency:      %s\n", req.Urgency)
	if req.HospitalName != "" {
		fmt.Fprintf(out, "Hospital:     %s\n", req.HospitalName)
	}
	if req.Location != nil {
		fmt.Fprintf(out, "Location:     %.5f, %.5f\n", req.Location.Latitude, req.Location.Longitude)
	} else {
		fmt.Fprintf(out, "Location:     %snot set%s\n", colorDim, colorReset)
	}
	fmt.Fprintf(out, "Created:      %s\n", req.CreatedAt.Format("2006-01-02 15:04"))

	fmt.Fprintf(out, "\nCandidates (%d):\n", len(req.Candidates))
	printCandidates(out, req.Candidates)

	if req.Advisory != "" {
		fmt.Fprintf(out, "\nAdvisory:\n  %s\n", req.Advisory)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
