package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

// createMatchedRequest creates a request with the given units and donors d1..dn as candidates
func createMatchedRequest(t *testing.T, env *testEnv, units, donors int) *model.BloodRequest {
	t.Helper()
	for i := 1; i <= donors; i++ {
		env.addDonor(t, fmt.Sprintf("d%d", i), model.BloodTypeONeg, at(0, float64(i)*0.01), true)
	}

	req, err := env.engine.CreateRequest(context.Background(), env.store, zap.NewNop(), requestInput(model.BloodTypeAPos, units, at(0, 0)))
	require.NoError(t, err)
	require.Len(t, req.Candidates, donors)
	env.notifier.reset()
	return req
}

func TestAcceptRequest_CountsUnitAndUpdatesDonor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := createMatchedRequest(t, env, 2, 2)

	updated, err := env.engine.AcceptRequest(ctx, env.store, zap.NewNop(), req.ID, "d1")
	require.NoError(t, err)

	assert.Equal(t, 1, updated.UnitsFulfilled)
	assert.Equal(t, model.RequestStatusMatching, updated.Status)
	assert.Equal(t, model.CandidateStatusAccepted, updated.Candidates[updated.FindCandidate("d1")].Status)
	assert.Equal(t, model.CandidateStatusPending, updated.Candidates[updated.FindCandidate("d2")].Status)

	donor, err := env.store.GetDonor(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, donor.IsAvailable)
	assert.Equal(t, testNow.Format(time.RFC3339), donor.LastDonationDate)

	donations, err := env.store.CountDonations(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, donations)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Acceptances.WithLabelValues("accepted")))
}

func TestAcceptRequest_NotifiesRequester(t *testing.T) {
	env := newTestEnv(t)
	req := createMatchedRequest(t, env, 1, 1)

	_, err := env.engine.AcceptRequest(context.Background(), env.store, zap.NewNop(), req.ID, "d1")
	require.NoError(t, err)

	require.Len(t, env.notifier.events, 1)
	event := env.notifier.events[0]
	assert.Equal(t, "requester-1", event.RecipientID)
	assert.Equal(t, "ward7@example.com", event.RecipientEmail)
	assert.Equal(t, "Donor Accepted", event.Title)
	assert.Equal(t, "Donor d1 has accepted to donate for your blood request.", event.Message)
	assert.Equal(t, model.NotificationTypeMatch, event.Type)
	assert.Equal(t, req.ID, event.RequestID)
}

func TestAcceptRequest_FulfilsOnLastUnit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := createMatchedRequest(t, env, 2, 3)

	_, err := env.engine.AcceptRequest(ctx, env.store, zap.NewNop(), req.ID, "d1")
	require.NoError(t, err)
	updated, err := env.engine.AcceptRequest(ctx, env.store, zap.NewNop(), req.ID, "d2")
	require.NoError(t, err)

	assert.Equal(t, 2, updated.UnitsFulfilled)
	assert.Equal(t, model.RequestStatusFulfilled, updated.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Acceptances.WithLabelValues("fulfilled")))

	// Fulfilled is terminal
	_, err = env.engine.AcceptRequest(ctx, env.store, zap.NewNop(), req.ID, "d3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConflict))

	stored, err := env.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.UnitsFulfilled)

	donor, err := env.store.GetDonor(ctx, "d3")
	require.NoError(t, err)
	assert.True(t, donor.IsAvailable)
}

func TestAcceptRequest_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := createMatchedRequest(t, env, 3, 2)
	env.addDonor(t, "outsider", model.BloodTypeONeg, nil, true)

	_, err := env.engine.AcceptRequest(ctx, env.store, zap.NewNop(), req.ID, "d1")
	require.NoError(t, err)

	tests := []struct {
		name      string
		requestID string
		donorID   string
		want      error
		metric    string
	}{
		{"double acceptance", req.ID, "d1", model.ErrConflict, "conflict"},
		{"donor not listed", req.ID, "outsider", model.ErrNotFound, "not_found"},
		{"unknown request", "missing", "d1", model.ErrNotFound, "not_found"},
		{"empty donor", req.ID, "", model.ErrInvalidInput, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.AcceptRequest(ctx, env.store, zap.NewNop(), tt.requestID, tt.donorID)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Acceptances.WithLabelValues("conflict")))
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.Acceptances.WithLabelValues("not_found")))

	stored, err := env.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UnitsFulfilled)
	assert.Empty(t, env.notifier.events[1:])
}

func TestAcceptRequest_CancelledRequestIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := createMatchedRequest(t, env, 1, 1)

	_, err := env.engine.CancelRequest(ctx, env.store, zap.NewNop(), req.ID)
	require.NoError(t, err)

	_, err = env.engine.AcceptRequest(ctx, env.store, zap.NewNop(), req.ID, "d1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConflict))
}

func TestAcceptRequest_ConcurrentAcceptancesNeverOverfill(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := createMatchedRequest(t, env, 3, 15)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 1; i <= 15; i++ {
		wg.Add(1)
		go func(donorID string) {
			defer wg.Done()
			if _, err := env.engine.AcceptRequest(ctx, env.store, zap.NewNop(), req.ID, donorID); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(fmt.Sprintf("d%d", i))
	}
	wg.Wait()

	assert.Equal(t, 3, accepted)

	stored, err := env.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.UnitsFulfilled)
	assert.Equal(t, model.RequestStatusFulfilled, stored.Status)
}
