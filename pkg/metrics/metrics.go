package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for matching and delivery.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Duration of a full matching run (pool fetch, ranking, persist)
	MatchDuration prometheus.Histogram

	// Number of candidates persisted per run
	CandidatesPerRun prometheus.Histogram

	// Matching runs by outcome: matched, no_candidates, no_location, conflict, error
	MatchOutcome *prometheus.CounterVec

	// Acceptance attempts by result: accepted, fulfilled, conflict, not_found, error
	Acceptances *prometheus.CounterVec

	// Advisory calls by result: ok, fallback
	Advisories *prometheus.CounterVec

	// Notification deliveries by sink and result
	Deliveries *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		MatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodmatch_match_duration_seconds",
			Help:    "Duration of matching runs",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		CandidatesPerRun: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodmatch_match_candidates",
			Help:    "Number of candidates persisted per matching run",
			Buckets: []float64{0, 1, 2, 5, 10, 15, 20, 50},
		}),

		MatchOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodmatch_match_runs_total",
			Help: "Matching runs by outcome",
		}, []string{"outcome"}),

		Acceptances: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodmatch_acceptances_total",
			Help: "Donor acceptance attempts by result",
		}, []string{"result"}),

		Advisories: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodmatch_advisories_total",
			Help: "Advisory annotations by result",
		}, []string{"result"}),

		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodmatch_notification_deliveries_total",
			Help: "Notification deliveries by sink and result",
		}, []string{"sink", "result"}),
	}
}

// Registry exposes the underlying registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveMatch records one matching run
func (m *Metrics) ObserveMatch(outcome string, candidates int, d time.Duration) {
	if m != nil {
		m.MatchOutcome.WithLabelValues(outcome).Inc()
		m.CandidatesPerRun.Observe(float64(candidates))
		m.MatchDuration.Observe(d.Seconds())
	}
}

// IncrementAcceptance records an acceptance attempt
func (m *Metrics) IncrementAcceptance(result string) {
	if m != nil {
		m.Acceptances.WithLabelValues(result).Inc()
	}
}

// IncrementAdvisory records an advisory annotation
func (m *Metrics) IncrementAdvisory(result string) {
	if m != nil {
		m.Advisories.WithLabelValues(result).Inc()
	}
}

// IncrementDelivery records a notification delivery attempt
func (m *Metrics) IncrementDelivery(sink, result string) {
	if m != nil {
		m.Deliveries.WithLabelValues(sink, result).Inc()
	}
}

// WriteTextfile writes the registry in the node-exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
