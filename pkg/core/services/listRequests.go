package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/db"
)

// RequestListLimit caps the requests returned by ListRequests
const RequestListLimit = 100

type ListRequestsStore interface {
	ListRequests(ctx context.Context, filter db.RequestFilter) ([]model.BloodRequest, error)
}

// ListRequests returns requests matching the filter, newest first.
// The limit is clamped to RequestListLimit.
func ListRequests(ctx context.Context, store ListRequestsStore, logger *zap.Logger, filter db.RequestFilter) ([]model.BloodRequest, error) {
	for _, s := range filter.Statuses {
		switch s {
		case model.RequestStatusPending, model.RequestStatusMatching, model.RequestStatusFulfilled, model.RequestStatusCancelled:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, s)
		}
	}

	if filter.Limit <= 0 || filter.Limit > RequestListLimit {
		filter.Limit = RequestListLimit
	}

	logger.Debug("Listing requests",
		zap.String("requester_id", filter.RequesterID),
		zap.String("candidate_donor_id", filter.CandidateDonorID),
		zap.Int("statuses", len(filter.Statuses)))

	requests, err := store.ListRequests(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	logger.Debug("Listed requests", zap.Int("count", len(requests)))
	return requests, nil
}

type ViewRequestStore interface {
	GetRequest(ctx context.Context, id string) (*model.BloodRequest, error)
}

// ViewRequest returns a single request with its candidate list
func ViewRequest(ctx context.Context, store ViewRequestStore, logger *zap.Logger, requestID string) (*model.BloodRequest, error) {
	if requestID == "" {
		return nil, fmt.Errorf("%w: request id is required", model.ErrInvalidInput)
	}

	req, err := store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	logger.Debug("Fetched request", zap.String("request_id", requestID), zap.String("status", string(req.Status)))
	return req, nil
}
