package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

type CancelRequestStore interface {
	CancelRequest(ctx context.Context, id string, at time.Time) (*model.BloodRequest, error)
}

// CancelRequest moves a pending or matching request to cancelled
func (e *Engine) CancelRequest(ctx context.Context, store CancelRequestStore, logger *zap.Logger, requestID string) (*model.BloodRequest, error) {
	if requestID == "" {
		return nil, fmt.Errorf("%w: request id is required", model.ErrInvalidInput)
	}

	req, err := store.CancelRequest(ctx, requestID, e.now())
	if err != nil {
		return nil, fmt.Errorf("failed to cancel request: %w", err)
	}

	logger.Info("Blood request cancelled", zap.String("request_id", requestID))
	return req, nil
}
