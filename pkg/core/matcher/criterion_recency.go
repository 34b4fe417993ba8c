package matcher

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

// lastDonationLayouts are the formats a recorded last-donation date may take
var lastDonationLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// RecencyCriterion penalises donors by time since their last donation.
//
// Behaviour:
//   - Inside the ineligible window (default 56 days) the donor cannot donate yet
//   - Inside the recent window (default 84 days) the donor is deprioritised
//   - No recorded date means never donated or unknown, so no penalty
//   - An unparseable date is treated as absent and logged as a data quality issue
type RecencyCriterion struct {
	ineligibleDays    int
	ineligiblePenalty float64
	recentDays        int
	recentPenalty     float64
	logger            *zap.Logger
}

func NewRecencyCriterion(weights Weights, logger *zap.Logger) *RecencyCriterion {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecencyCriterion{
		ineligibleDays:    weights.IneligibleWindowDays,
		ineligiblePenalty: weights.IneligiblePenalty,
		recentDays:        weights.RecentWindowDays,
		recentPenalty:     weights.RecentPenalty,
		logger:            logger,
	}
}

func (c *RecencyCriterion) Name() string {
	return "Recency"
}

func (c *RecencyCriterion) Adjust(input ScoringInput) float64 {
	raw := strings.TrimSpace(input.Donor.LastDonationDate)
	if raw == "" {
		return 0
	}

	lastDonation, err := ParseLastDonation(raw)
	if err != nil {
		c.logger.Warn("Ignoring unparseable last donation date",
			zap.String("donor_id", input.Donor.ID),
			zap.String("last_donation_date", raw),
			zap.Error(err))
		return 0
	}

	days := DaysSince(lastDonation, input.Now)
	switch {
	case days < c.ineligibleDays:
		return -c.ineligiblePenalty
	case days < c.recentDays:
		return -c.recentPenalty
	}
	return 0
}

// ParseLastDonation parses a recorded last-donation date.
// Values without a zone are read as UTC.
func ParseLastDonation(raw string) (time.Time, error) {
	for _, layout := range lastDonationLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date format %q", raw)
}

// DaysSince returns the number of whole days from then to now, rounded down.
// A date in the future gives a negative count.
func DaysSince(then, now time.Time) int {
	return int(math.Floor(now.Sub(then).Hours() / 24))
}
