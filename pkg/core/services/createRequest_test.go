package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/db"
)

func TestCreateRequest_MatchesCompatibleDonorsOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addDonor(t, "o-neg", model.BloodTypeONeg, at(0, 0), true)
	env.addDonor(t, "ab-pos", model.BloodTypeABPos, at(0, 0), true)

	req, err := env.engine.CreateRequest(ctx, env.store, zap.NewNop(), requestInput(model.BloodTypeAPos, 1, at(0, 0)))
	require.NoError(t, err)

	require.Len(t, req.Candidates, 1)
	c := req.Candidates[0]
	assert.Equal(t, "o-neg", c.DonorID)
	assert.Equal(t, 0.0, c.DistanceKm)
	assert.Equal(t, 100.0, c.Score)
	assert.Equal(t, model.CandidateStatusPending, c.Status)
	assert.Equal(t, model.RequestStatusMatching, req.Status)
	assert.Equal(t, "Contact the closest donor first.", req.Advisory)

	stored, err := env.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusMatching, stored.Status)
	assert.Equal(t, "Contact the closest donor first.", stored.Advisory)
	assert.Equal(t, []string{"o-neg"}, candidateIDs(stored.Candidates))

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.MatchOutcome.WithLabelValues("matched")))
}

func TestCreateRequest_NotifiesEachCandidateOnce(t *testing.T) {
	env := newTestEnv(t)
	env.addDonor(t, "d1", model.BloodTypeONeg, at(0, 0), true)
	env.addDonor(t, "d2", model.BloodTypeAPos, at(0.01, 0), true)

	input := requestInput(model.BloodTypeAPos, 1, at(0, 0))
	input.HospitalName = "St Mary's"
	req, err := env.engine.CreateRequest(context.Background(), env.store, zap.NewNop(), input)
	require.NoError(t, err)

	require.Len(t, env.notifier.events, 2)
	assert.ElementsMatch(t, []string{"d1", "d2"}, env.notifier.recipients())

	for _, event := range env.notifier.events {
		assert.Equal(t, req.ID, event.RequestID)
		assert.Equal(t, "Blood Donation Request", event.Title)
		assert.Equal(t, model.NotificationTypeRequest, event.Type)
		assert.Equal(t, event.RecipientID+"@example.com", event.RecipientEmail)
	}

	byRecipient := map[string]string{}
	for _, event := range env.notifier.events {
		byRecipient[event.RecipientID] = event.Message
	}
	assert.Equal(t, "Emergency emergency request for A+ blood at St Mary's. You are 0.0km away.", byRecipient["d1"])
	assert.Equal(t, "Emergency emergency request for A+ blood at St Mary's. You are 1.1km away.", byRecipient["d2"])
}

func TestCreateRequest_DefaultHospitalName(t *testing.T) {
	env := newTestEnv(t)
	env.addDonor(t, "d1", model.BloodTypeONeg, at(0, 0), true)

	input := requestInput(model.BloodTypeONeg, 1, at(0, 0))
	input.Urgency = model.UrgencyNormal
	_, err := env.engine.CreateRequest(context.Background(), env.store, zap.NewNop(), input)
	require.NoError(t, err)

	require.Len(t, env.notifier.events, 1)
	assert.Equal(t, "Emergency normal request for O- blood at nearby hospital. You are 0.0km away.", env.notifier.events[0].Message)
}

func TestCreateRequest_CandidateListIsBounded(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 30; i++ {
		env.addDonor(t, fmt.Sprintf("d%02d", i), model.BloodTypeONeg, at(0, float64(i)*0.01), true)
	}

	req, err := env.engine.CreateRequest(context.Background(), env.store, zap.NewNop(), requestInput(model.BloodTypeABPos, 2, at(0, 0)))
	require.NoError(t, err)

	assert.Len(t, req.Candidates, 20)
	assert.Len(t, env.notifier.events, 20)
	assert.Equal(t, "d00", req.Candidates[0].DonorID)
}

func TestCreateRequest_SkipsUnavailableAndUnlocatedDonors(t *testing.T) {
	env := newTestEnv(t)
	env.addDonor(t, "available", model.BloodTypeONeg, at(0, 0), true)
	env.addDonor(t, "unavailable", model.BloodTypeONeg, at(0, 0), false)
	env.addDonor(t, "no-location", model.BloodTypeONeg, nil, true)
	env.addDonor(t, "far-away", model.BloodTypeONeg, at(10, 10), true)

	req, err := env.engine.CreateRequest(context.Background(), env.store, zap.NewNop(), requestInput(model.BloodTypeONeg, 1, at(0, 0)))
	require.NoError(t, err)

	assert.Equal(t, []string{"available"}, candidateIDs(req.Candidates))
}

func TestCreateRequest_NoLocationStaysPending(t *testing.T) {
	env := newTestEnv(t)
	env.addDonor(t, "d1", model.BloodTypeONeg, at(0, 0), true)

	req, err := env.engine.CreateRequest(context.Background(), env.store, zap.NewNop(), requestInput(model.BloodTypeAPos, 1, nil))
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusPending, req.Status)
	assert.Empty(t, req.Candidates)
	assert.Empty(t, env.notifier.events)
	assert.Equal(t, 0, env.annotator.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.MatchOutcome.WithLabelValues("no_location")))

	stored, err := env.store.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, stored.Status)
}

func TestCreateRequest_NoCandidatesStaysPending(t *testing.T) {
	env := newTestEnv(t)
	env.addDonor(t, "ab-pos", model.BloodTypeABPos, at(0, 0), true)

	req, err := env.engine.CreateRequest(context.Background(), env.store, zap.NewNop(), requestInput(model.BloodTypeONeg, 1, at(0, 0)))
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusPending, req.Status)
	assert.Empty(t, req.Candidates)
	assert.Empty(t, env.notifier.events)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.MatchOutcome.WithLabelValues("no_candidates")))
}

func TestCreateRequest_NotificationFailureDoesNotFailRun(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.err = errors.New("inbox unavailable")
	env.addDonor(t, "d1", model.BloodTypeONeg, at(0, 0), true)

	req, err := env.engine.CreateRequest(context.Background(), env.store, zap.NewNop(), requestInput(model.BloodTypeONeg, 1, at(0, 0)))
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusMatching, req.Status)
}

func TestCreateRequest_PoolFailureIsReturned(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.CreateRequest(context.Background(), failingPoolStore{env.store}, zap.NewNop(), requestInput(model.BloodTypeONeg, 1, at(0, 0)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch donor pool")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.MatchOutcome.WithLabelValues("error")))
}

func TestCreateRequest_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRequestInput)
	}{
		{"missing requester", func(in *CreateRequestInput) { in.RequesterID = "" }},
		{"unknown blood type", func(in *CreateRequestInput) { in.BloodType = "C+" }},
		{"zero units", func(in *CreateRequestInput) { in.UnitsNeeded = 0 }},
		{"unknown urgency", func(in *CreateRequestInput) { in.Urgency = "whenever" }},
		{"bad email", func(in *CreateRequestInput) { in.RequesterEmail = "not-an-email" }},
		{"latitude out of range", func(in *CreateRequestInput) { in.Location = at(91, 0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			input := requestInput(model.BloodTypeAPos, 1, at(0, 0))
			tt.mutate(&input)

			_, err := env.engine.CreateRequest(context.Background(), env.store, zap.NewNop(), input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrInvalidInput), err.Error())

			count, err := env.store.CountRequests(context.Background(), db.RequestFilter{})
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}
