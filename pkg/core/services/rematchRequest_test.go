package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/db"
)

func TestCancelRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := createMatchedRequest(t, env, 1, 1)

	cancelled, err := env.engine.CancelRequest(ctx, env.store, zap.NewNop(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCancelled, cancelled.Status)

	_, err = env.engine.CancelRequest(ctx, env.store, zap.NewNop(), req.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConflict))

	_, err = env.engine.CancelRequest(ctx, env.store, zap.NewNop(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestRematchRequest_AddsNewDonorsAndNotifiesOnlyThem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := createMatchedRequest(t, env, 2, 2)

	_, err := env.engine.AcceptRequest(ctx, env.store, zap.NewNop(), req.ID, "d1")
	require.NoError(t, err)
	env.notifier.reset()

	env.addDonor(t, "late", model.BloodTypeAPos, at(0, 0), true)

	result, err := env.engine.RematchRequest(ctx, env.store, zap.NewNop(), req.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"late"}, candidateIDs(result.Added))
	assert.ElementsMatch(t, []string{"d1", "d2", "late"}, candidateIDs(result.Request.Candidates))
	assert.Equal(t, "late", result.Request.Candidates[0].DonorID)
	assert.Equal(t, model.CandidateStatusAccepted, result.Request.Candidates[result.Request.FindCandidate("d1")].Status)
	assert.Equal(t, 1, result.Request.UnitsFulfilled)
	assert.Equal(t, model.RequestStatusMatching, result.Request.Status)

	assert.Equal(t, []string{"late"}, env.notifier.recipients())
}

func TestRematchRequest_NothingNew(t *testing.T) {
	env := newTestEnv(t)
	req := createMatchedRequest(t, env, 1, 2)
	calls := env.annotator.calls

	result, err := env.engine.RematchRequest(context.Background(), env.store, zap.NewNop(), req.ID)
	require.NoError(t, err)

	assert.Empty(t, result.Added)
	assert.Len(t, result.Request.Candidates, 2)
	assert.Empty(t, env.notifier.events)
	assert.Equal(t, calls, env.annotator.calls)
}

func TestRematchRequest_PendingRequestBecomesMatching(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.engine.CreateRequest(ctx, env.store, zap.NewNop(), requestInput(model.BloodTypeONeg, 1, at(0, 0)))
	require.NoError(t, err)
	require.Equal(t, model.RequestStatusPending, req.Status)

	env.addDonor(t, "d1", model.BloodTypeONeg, at(0, 0), true)

	result, err := env.engine.RematchRequest(ctx, env.store, zap.NewNop(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusMatching, result.Request.Status)
	assert.Equal(t, []string{"d1"}, candidateIDs(result.Added))
	assert.Equal(t, []string{"d1"}, env.notifier.recipients())
}

func TestRematchRequest_TerminalRequestsAreRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fulfilled := createMatchedRequest(t, env, 1, 1)
	_, err := env.engine.AcceptRequest(ctx, env.store, zap.NewNop(), fulfilled.ID, "d1")
	require.NoError(t, err)

	cancelled, err := env.engine.CreateRequest(ctx, env.store, zap.NewNop(), requestInput(model.BloodTypeAPos, 1, at(0, 0)))
	require.NoError(t, err)
	_, err = env.engine.CancelRequest(ctx, env.store, zap.NewNop(), cancelled.ID)
	require.NoError(t, err)

	env.addDonor(t, "late", model.BloodTypeONeg, at(0, 0), true)

	for _, id := range []string{fulfilled.ID, cancelled.ID} {
		_, err := env.engine.RematchRequest(ctx, env.store, zap.NewNop(), id)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrConflict), err.Error())

		stored, err := env.store.GetRequest(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, -1, stored.FindCandidate("late"))
	}
}

// acceptWhileRankingStore lets a donor accept the first time the donor pool
// is fetched, between the rematch's read of the request and its write
type acceptWhileRankingStore struct {
	*db.MemoryDB
	engine    *Engine
	requestID string
	donorID   string

	once      sync.Once
	acceptErr error
}

func (s *acceptWhileRankingStore) FetchDonorPool(ctx context.Context, query db.DonorPoolQuery) ([]model.Donor, error) {
	s.once.Do(func() {
		_, s.acceptErr = s.engine.AcceptRequest(ctx, s.MemoryDB, zap.NewNop(), s.requestID, s.donorID)
	})
	return s.MemoryDB.FetchDonorPool(ctx, query)
}

func TestRematchRequest_KeepsAcceptanceMadeWhileRanking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := createMatchedRequest(t, env, 2, 2)
	env.addDonor(t, "late", model.BloodTypeONeg, at(0, 0), true)

	store := &acceptWhileRankingStore{MemoryDB: env.store, engine: env.engine, requestID: req.ID, donorID: "d1"}

	result, err := env.engine.RematchRequest(ctx, store, zap.NewNop(), req.ID)
	require.NoError(t, err)
	require.NoError(t, store.acceptErr)

	assert.Equal(t, []string{"late"}, candidateIDs(result.Added))
	assert.Equal(t, model.CandidateStatusAccepted, result.Request.Candidates[result.Request.FindCandidate("d1")].Status)
	assert.Equal(t, 1, result.Request.UnitsFulfilled)

	_, err = env.engine.AcceptRequest(ctx, env.store, zap.NewNop(), req.ID, "d1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConflict), err.Error())

	stored, err := env.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UnitsFulfilled)
	assert.Equal(t, model.RequestStatusMatching, stored.Status)
}
