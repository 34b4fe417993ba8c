package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/db"
)

// RematchResult represents the outcome of re-running matching on a request
type RematchResult struct {
	Request *model.BloodRequest
	// Added lists the donors that were not on the candidate list before
	Added []model.Candidate
}

type RematchRequestStore interface {
	GetRequest(ctx context.Context, id string) (*model.BloodRequest, error)
	FetchDonorPool(ctx context.Context, query db.DonorPoolQuery) ([]model.Donor, error)
	MergeMatch(ctx context.Context, id string, ranked []model.Candidate, limit int) (*model.BloodRequest, []model.Candidate, error)
	SetAdvisory(ctx context.Context, id, advisory string) error
}

// RematchRequest re-runs matching for an open request against the current pool.
//
// Existing candidates keep their entry and status. Newly ranked donors fill
// the list up to the auto-match limit and the result is re-sorted. Only newly
// listed donors are notified.
func (e *Engine) RematchRequest(ctx context.Context, store RematchRequestStore, logger *zap.Logger, requestID string) (*RematchResult, error) {
	if requestID == "" {
		return nil, fmt.Errorf("%w: request id is required", model.ErrInvalidInput)
	}

	logger = logger.With(zap.String("request_id", requestID))
	start := time.Now()

	req, err := store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	if !req.Status.IsOpen() {
		e.Metrics.ObserveMatch("conflict", 0, time.Since(start))
		return nil, fmt.Errorf("%w: request %s is %s and cannot be rematched", model.ErrConflict, req.ID, req.Status)
	}
	if req.Location == nil {
		e.Metrics.ObserveMatch("no_location", 0, time.Since(start))
		logger.Info("Request has no location, nothing to rematch")
		return &RematchResult{Request: req}, nil
	}

	saved, added, err := e.runMatch(ctx, store, logger, req)
	if err != nil {
		return nil, err
	}

	e.notifyCandidates(ctx, logger, saved, added)
	if len(added) > 0 {
		e.annotate(ctx, store, logger, saved)
	}

	logger.Info("Blood request rematched",
		zap.Int("candidates", len(saved.Candidates)),
		zap.Int("added", len(added)))

	return &RematchResult{Request: saved, Added: added}, nil
}
