package matcher

// AvailabilityCriterion penalises donors who have not marked themselves available
type AvailabilityCriterion struct {
	penalty float64
}

func NewAvailabilityCriterion(penalty float64) *AvailabilityCriterion {
	return &AvailabilityCriterion{penalty: penalty}
}

func (c *AvailabilityCriterion) Name() string {
	return "Availability"
}

func (c *AvailabilityCriterion) Adjust(input ScoringInput) float64 {
	if !input.Donor.IsAvailable {
		return -c.penalty
	}
	return 0
}
