package matcher

// DistanceBand applies Penalty when a donor is farther than BeyondKm
type DistanceBand struct {
	BeyondKm float64 `yaml:"beyondKm" validate:"gte=0"`
	Penalty  float64 `yaml:"penalty" validate:"gte=0"`
}

// Weights holds the tunable magnitudes used by the eligibility scorer.
// The defaults reproduce the established heuristic; none of them are derived.
type Weights struct {
	// BaseScore is the starting score before any adjustment
	BaseScore float64 `yaml:"baseScore" validate:"gt=0"`

	// DistanceBands are non-stacking: only the farthest band the donor exceeds applies
	DistanceBands []DistanceBand `yaml:"distanceBands" validate:"dive"`

	// UnavailablePenalty is subtracted when the donor is not marked available
	UnavailablePenalty float64 `yaml:"unavailablePenalty" validate:"gte=0"`

	// IneligibleWindowDays is the minimum interval between donations.
	// Donors inside it lose IneligiblePenalty.
	IneligibleWindowDays int     `yaml:"ineligibleWindowDays" validate:"gte=0"`
	IneligiblePenalty    float64 `yaml:"ineligiblePenalty" validate:"gte=0"`

	// RecentWindowDays deprioritises donors who donated recently but are eligible again
	RecentWindowDays int     `yaml:"recentWindowDays" validate:"gtefield=IneligibleWindowDays"`
	RecentPenalty    float64 `yaml:"recentPenalty" validate:"gte=0"`

	// ExactTypeBonus is added when the donor's type equals the requested type
	ExactTypeBonus float64 `yaml:"exactTypeBonus" validate:"gte=0"`
}

// DefaultWeights returns the standard scoring weights
func DefaultWeights() Weights {
	return Weights{
		BaseScore: 100,
		DistanceBands: []DistanceBand{
			{BeyondKm: 50, Penalty: 40},
			{BeyondKm: 20, Penalty: 25},
			{BeyondKm: 10, Penalty: 15},
			{BeyondKm: 5, Penalty: 5},
		},
		UnavailablePenalty:   30,
		IneligibleWindowDays: 56,
		IneligiblePenalty:    50,
		RecentWindowDays:     84,
		RecentPenalty:        10,
		ExactTypeBonus:       10,
	}
}

const (
	// MinScore and MaxScore bound every candidate score
	MinScore = 0.0
	MaxScore = 100.0
)
