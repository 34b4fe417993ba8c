package matcher

import (
	"time"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

// ScoringInput is everything a criterion may look at when scoring one donor
type ScoringInput struct {
	Donor         model.Donor
	RequestedType model.BloodType
	DistanceKm    float64
	Now           time.Time
}

// Criterion defines one factor of the eligibility score
type Criterion interface {
	// Name returns a human-readable identifier for this criterion
	Name() string

	// Adjust returns the signed number of points this criterion adds to the score.
	// Penalties are negative, bonuses positive, and 0 means the criterion does not apply.
	Adjust(input ScoringInput) float64
}

// Adjustment records the contribution of a single criterion
type Adjustment struct {
	Criterion string
	Points    float64
}

// ScoreBreakdown explains how a score was reached
type ScoreBreakdown struct {
	Base        float64
	Adjustments []Adjustment
	Raw         float64 // before clamping
	Final       float64
}
