package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

type AcceptRequestStore interface {
	AcceptCandidate(ctx context.Context, id, donorID string, donation model.Donation) (*model.BloodRequest, error)
}

// AcceptRequest records that a listed donor has accepted to donate.
// The candidate update, unit count, donation record and donor availability
// change are applied by the store as one operation. The requester is then
// notified.
func (e *Engine) AcceptRequest(ctx context.Context, store AcceptRequestStore, logger *zap.Logger, requestID, donorID string) (*model.BloodRequest, error) {
	if requestID == "" || donorID == "" {
		return nil, fmt.Errorf("%w: request id and donor id are required", model.ErrInvalidInput)
	}

	logger = logger.With(zap.String("request_id", requestID), zap.String("donor_id", donorID))
	logger.Debug("Accepting blood request")

	donation := model.Donation{
		ID:        uuid.New().String(),
		DonorID:   donorID,
		RequestID: requestID,
		Status:    model.DonationStatusScheduled,
		CreatedAt: e.now(),
	}

	req, err := store.AcceptCandidate(ctx, requestID, donorID, donation)
	if err != nil {
		e.Metrics.IncrementAcceptance(acceptanceResult(err))
		return nil, fmt.Errorf("failed to accept request: %w", err)
	}

	result := "accepted"
	if req.Status == model.RequestStatusFulfilled {
		result = "fulfilled"
	}
	e.Metrics.IncrementAcceptance(result)

	logger.Info("Donor accepted request",
		zap.Int("units_fulfilled", req.UnitsFulfilled),
		zap.Int("units_needed", req.UnitsNeeded),
		zap.String("status", string(req.Status)))

	if req.RequesterID != "" {
		e.notify(ctx, logger, acceptedEvent(req, donorID))
	}

	return req, nil
}

func acceptanceResult(err error) string {
	switch {
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func acceptedEvent(req *model.BloodRequest, donorID string) model.NotificationEvent {
	name := "A donor"
	if idx := req.FindCandidate(donorID); idx >= 0 && req.Candidates[idx].DonorName != "" {
		name = req.Candidates[idx].DonorName
	}

	return model.NotificationEvent{
		RecipientID:    req.RequesterID,
		RecipientEmail: req.RequesterEmail,
		Title:          "Donor Accepted",
		Message:        fmt.Sprintf("%s has accepted to donate for your blood request.", name),
		Type:           model.NotificationTypeMatch,
		RequestID:      req.ID,
		Data: map[string]string{
			"donor_id":        donorID,
			"units_fulfilled": fmt.Sprintf("%d", req.UnitsFulfilled),
			"units_needed":    fmt.Sprintf("%d", req.UnitsNeeded),
		},
	}
}
