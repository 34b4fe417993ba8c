package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/matcher"
	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/metrics"
)

// Notifier delivers notification events. notify.Dispatcher implements it.
type Notifier interface {
	Notify(ctx context.Context, event model.NotificationEvent) error
}

// Annotator produces the advisory note for a ranked list. advisor.Annotator implements it.
type Annotator interface {
	Annotate(ctx context.Context, req model.BloodRequest, candidates []model.Candidate) string
}

// Engine bundles the collaborators of a matching run
type Engine struct {
	Ranker    *matcher.Ranker
	Clock     matcher.Clock
	Notifier  Notifier
	Annotator Annotator
	Metrics   *metrics.Metrics

	// AutoMatch bounds the candidate list stored on a request
	AutoMatch matcher.RankOptions
	// Discovery bounds nearby donor searches
	Discovery matcher.RankOptions
	// PoolLimit caps the donors fetched for one auto-match run. Zero means no cap.
	PoolLimit int
	// DiscoveryPoolLimit caps the donors fetched for one nearby search. Zero means no cap.
	DiscoveryPoolLimit int
}

// NewEngine wires an engine with the standard ranking presets
func NewEngine(ranker *matcher.Ranker, clock matcher.Clock, notifier Notifier, annotator Annotator, m *metrics.Metrics) *Engine {
	return &Engine{
		Ranker:    ranker,
		Clock:     clock,
		Notifier:  notifier,
		Annotator: annotator,
		Metrics:   m,
		AutoMatch: matcher.AutoMatchOptions,
		Discovery: matcher.DiscoveryOptions,
		PoolLimit: 100,

		DiscoveryPoolLimit: 1000,
	}
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now().UTC()
	}
	return e.Clock.Now()
}

// notify sends one event and logs a failure instead of returning it
func (e *Engine) notify(ctx context.Context, logger *zap.Logger, event model.NotificationEvent) {
	if e.Notifier == nil {
		return
	}
	if err := e.Notifier.Notify(ctx, event); err != nil {
		logger.Warn("Failed to notify",
			zap.String("recipient_id", event.RecipientID),
			zap.String("request_id", event.RequestID),
			zap.Error(err))
	}
}

// annotate attaches the advisory note as a follow-up update. Failures are logged.
func (e *Engine) annotate(ctx context.Context, store advisoryStore, logger *zap.Logger, req *model.BloodRequest) {
	if e.Annotator == nil {
		return
	}

	note := e.Annotator.Annotate(ctx, *req, req.Candidates)
	if err := store.SetAdvisory(ctx, req.ID, note); err != nil {
		logger.Warn("Failed to store advisory note", zap.String("request_id", req.ID), zap.Error(err))
		return
	}
	req.Advisory = note
}

type advisoryStore interface {
	SetAdvisory(ctx context.Context, id, advisory string) error
}

// candidateRequestEvent is the notification sent to each newly listed donor
func candidateRequestEvent(req *model.BloodRequest, c model.Candidate) model.NotificationEvent {
	hospital := req.HospitalName
	if hospital == "" {
		hospital = "nearby hospital"
	}

	return model.NotificationEvent{
		RecipientID:    c.DonorID,
		RecipientEmail: c.DonorEmail,
		Title:          "Blood Donation Request",
		Message: fmt.Sprintf("Emergency %s request for %s blood at %s. You are %.1fkm away.",
			req.Urgency, req.BloodType, hospital, c.DistanceKm),
		Type:      model.NotificationTypeRequest,
		RequestID: req.ID,
		Data: map[string]string{
			"urgency":     string(req.Urgency),
			"blood_type":  string(req.BloodType),
			"distance_km": fmt.Sprintf("%.2f", c.DistanceKm),
		},
	}
}

// notifyCandidates sends one request notification per candidate
func (e *Engine) notifyCandidates(ctx context.Context, logger *zap.Logger, req *model.BloodRequest, candidates []model.Candidate) {
	for _, c := range candidates {
		e.notify(ctx, logger, candidateRequestEvent(req, c))
	}
	logger.Debug("Notified candidates", zap.String("request_id", req.ID), zap.Int("count", len(candidates)))
}
