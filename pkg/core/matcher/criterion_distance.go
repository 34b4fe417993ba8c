package matcher

import (
	"slices"
)

// DistanceCriterion penalises donors by how far they are from the request.
//
// Bands do not stack: the penalty of the farthest band the donor exceeds
// is applied and the nearer bands are ignored. A donor at or inside the
// nearest band's threshold receives no penalty.
type DistanceCriterion struct {
	bands []DistanceBand // sorted farthest first
}

// NewDistanceCriterion creates a DistanceCriterion from the configured bands
func NewDistanceCriterion(bands []DistanceBand) *DistanceCriterion {
	sorted := slices.Clone(bands)
	slices.SortFunc(sorted, func(a, b DistanceBand) int {
		switch {
		case a.BeyondKm > b.BeyondKm:
			return -1
		case a.BeyondKm < b.BeyondKm:
			return 1
		}
		return 0
	})

	return &DistanceCriterion{bands: sorted}
}

func (c *DistanceCriterion) Name() string {
	return "Distance"
}

func (c *DistanceCriterion) Adjust(input ScoringInput) float64 {
	for _, band := range c.bands {
		if input.DistanceKm > band.BeyondKm {
			return -band.Penalty
		}
	}
	return 0
}
