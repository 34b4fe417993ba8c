package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/metrics"
)

// FallbackText is attached to a request whenever no advisory note could be produced
const FallbackText = "AI recommendation unavailable. Please review matches manually based on distance and compatibility."

const systemPrompt = `You are an assistant for a blood donation matching system.
Analyze blood requests and donor matches to provide recommendations.
Be concise and helpful. Focus on urgency, compatibility and logistics.`

// Options bounds the advisory call
type Options struct {
	Timeout          time.Duration
	TopCandidates    int
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultOptions returns the standard advisory bounds
func DefaultOptions() Options {
	return Options{
		Timeout:          10 * time.Second,
		TopCandidates:    5,
		FailureThreshold: 3,
		OpenTimeout:      30 * time.Second,
	}
}

// Annotator produces a short strategy note for a ranked candidate list.
// It never fails: any provider error, timeout or open circuit yields FallbackText.
type Annotator struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
	opts     Options
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewAnnotator(provider Provider, opts Options, logger *zap.Logger, m *metrics.Metrics) *Annotator {
	if opts.TopCandidates <= 0 {
		opts.TopCandidates = 5
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 3
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "advisor",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Advisor circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Annotator{
		provider: provider,
		breaker:  breaker,
		opts:     opts,
		logger:   logger,
		metrics:  m,
	}
}

// Annotate returns an advisory note for the request and its ranked candidates
func (a *Annotator) Annotate(ctx context.Context, req model.BloodRequest, candidates []model.Candidate) string {
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	prompt := BuildPrompt(req, candidates, a.opts.TopCandidates)

	result, err := a.breaker.Execute(func() (interface{}, error) {
		text, err := a.provider.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, errors.New("empty advisory response")
		}
		return text, nil
	})
	if err != nil {
		a.logger.Warn("Advisory note unavailable, using fallback",
			zap.String("request_id", req.ID),
			zap.Error(err))
		a.metrics.IncrementAdvisory("fallback")
		return FallbackText
	}

	a.metrics.IncrementAdvisory("ok")
	return result.(string)
}

// BuildPrompt describes the request and at most top candidates
func BuildPrompt(req model.BloodRequest, candidates []model.Candidate, top int) string {
	hospital := req.HospitalName
	if hospital == "" {
		hospital = "Not specified"
	}

	var b strings.Builder
	b.WriteString("Blood Request Analysis:\n")
	fmt.Fprintf(&b, "- Blood Type Needed: %s\n", req.BloodType)
	fmt.Fprintf(&b, "- Units Needed: %d\n", req.UnitsNeeded)
	fmt.Fprintf(&b, "- Urgency: %s\n", req.Urgency)
	fmt.Fprintf(&b, "- Hospital: %s\n\n", hospital)
	fmt.Fprintf(&b, "Matched Donors (%d found):\n", len(candidates))

	for i, c := range candidates {
		if i == top {
			break
		}
		name := c.DonorName
		if name == "" {
			name = "Unknown"
		}
		available := "No"
		if c.IsAvailable {
			available = "Yes"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
		fmt.Fprintf(&b, "   - Blood Type: %s\n", c.BloodType)
		fmt.Fprintf(&b, "   - Distance: %.1f km\n", c.DistanceKm)
		fmt.Fprintf(&b, "   - Compatibility Score: %.0f/100\n", c.Score)
		fmt.Fprintf(&b, "   - Available: %s\n", available)
	}

	b.WriteString("\nProvide a brief recommendation (2-3 sentences) on the best matching strategy.")
	return b.String()
}
