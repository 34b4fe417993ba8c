package matcher

import (
	"time"

	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

// Scorer computes the 0-100 eligibility score of a donor for a request.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	base     float64
	criteria []Criterion
	clock    Clock
}

// NewScorer creates a Scorer applying the standard criteria in order:
// distance, availability, donation recency, exact type.
func NewScorer(weights Weights, clock Clock, logger *zap.Logger) *Scorer {
	criteria := []Criterion{
		NewDistanceCriterion(weights.DistanceBands),
		NewAvailabilityCriterion(weights.UnavailablePenalty),
		NewRecencyCriterion(weights, logger),
		NewExactTypeCriterion(weights.ExactTypeBonus),
	}
	return NewScorerWithCriteria(weights.BaseScore, criteria, clock)
}

// NewScorerWithCriteria creates a Scorer with a custom criterion set
func NewScorerWithCriteria(base float64, criteria []Criterion, clock Clock) *Scorer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scorer{
		base:     base,
		criteria: criteria,
		clock:    clock,
	}
}

// Now returns the scorer's notion of the current time
func (s *Scorer) Now() time.Time {
	return s.clock.Now()
}

// Score returns the donor's eligibility score for the requested type at the given distance
func (s *Scorer) Score(donor model.Donor, requested model.BloodType, distanceKm float64) float64 {
	return s.scoreAt(donor, requested, distanceKm, s.clock.Now())
}

// Explain scores the donor and reports each criterion's contribution
func (s *Scorer) Explain(donor model.Donor, requested model.BloodType, distanceKm float64) ScoreBreakdown {
	input := ScoringInput{
		Donor:         donor,
		RequestedType: requested,
		DistanceKm:    distanceKm,
		Now:           s.clock.Now(),
	}

	breakdown := ScoreBreakdown{
		Base:        s.base,
		Adjustments: make([]Adjustment, 0, len(s.criteria)),
	}

	raw := s.base
	for _, criterion := range s.criteria {
		points := criterion.Adjust(input)
		raw += points
		breakdown.Adjustments = append(breakdown.Adjustments, Adjustment{
			Criterion: criterion.Name(),
			Points:    points,
		})
	}

	breakdown.Raw = raw
	breakdown.Final = clampScore(raw)

	return breakdown
}

func (s *Scorer) scoreAt(donor model.Donor, requested model.BloodType, distanceKm float64, now time.Time) float64 {
	input := ScoringInput{
		Donor:         donor,
		RequestedType: requested,
		DistanceKm:    distanceKm,
		Now:           now,
	}

	score := s.base
	for _, criterion := range s.criteria {
		score += criterion.Adjust(input)
	}

	return clampScore(score)
}

func clampScore(score float64) float64 {
	return max(MinScore, min(MaxScore, score))
}
