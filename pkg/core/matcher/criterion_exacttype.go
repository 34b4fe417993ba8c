package matcher

// ExactTypeCriterion rewards donors whose blood type equals the requested type.
// Merely compatible types get nothing.
type ExactTypeCriterion struct {
	bonus float64
}

func NewExactTypeCriterion(bonus float64) *ExactTypeCriterion {
	return &ExactTypeCriterion{bonus: bonus}
}

func (c *ExactTypeCriterion) Name() string {
	return "ExactType"
}

func (c *ExactTypeCriterion) Adjust(input ScoringInput) float64 {
	if input.Donor.BloodType == input.RequestedType {
		return c.bonus
	}
	return 0
}
