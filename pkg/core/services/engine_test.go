package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/geo"
	"github.com/lifeline-network/bloodmatch/pkg/core/matcher"
	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/db"
	"github.com/lifeline-network/bloodmatch/pkg/metrics"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// recordingNotifier captures every event it is asked to deliver
type recordingNotifier struct {
	mu     sync.Mutex
	events []model.NotificationEvent
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, event model.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, len(n.events))
	for i, e := range n.events {
		ids[i] = e.RecipientID
	}
	return ids
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

type stubAnnotator struct {
	note  string
	calls int
}

func (a *stubAnnotator) Annotate(ctx context.Context, req model.BloodRequest, candidates []model.Candidate) string {
	a.calls++
	return a.note
}

// failingPoolStore wraps a MemoryDB and fails pool fetches
type failingPoolStore struct {
	*db.MemoryDB
}

func (failingPoolStore) FetchDonorPool(ctx context.Context, query db.DonorPoolQuery) ([]model.Donor, error) {
	return nil, errors.New("connection reset")
}

type testEnv struct {
	engine    *Engine
	store     *db.MemoryDB
	notifier  *recordingNotifier
	annotator *stubAnnotator
	metrics   *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := matcher.FixedClock(testNow)
	scorer := matcher.NewScorer(matcher.DefaultWeights(), clock, zap.NewNop())
	notifier := &recordingNotifier{}
	annotator := &stubAnnotator{note: "Contact the closest donor first."}
	m := metrics.New()

	return &testEnv{
		engine:    NewEngine(matcher.NewRanker(scorer), clock, notifier, annotator, m),
		store:     db.NewMemoryDB(),
		notifier:  notifier,
		annotator: annotator,
		metrics:   m,
	}
}

func (env *testEnv) addDonor(t *testing.T, id string, bloodType model.BloodType, loc *geo.Coordinate, available bool) {
	t.Helper()
	require.NoError(t, env.store.UpsertDonor(context.Background(), &model.Donor{
		ID:          id,
		FullName:    "Donor " + id,
		Email:       id + "@example.com",
		BloodType:   bloodType,
		IsAvailable: available,
		Location:    loc,
	}))
}

func at(lat, lon float64) *geo.Coordinate {
	return &geo.Coordinate{Latitude: lat, Longitude: lon}
}

func requestInput(bloodType model.BloodType, units int, loc *geo.Coordinate) CreateRequestInput {
	return CreateRequestInput{
		RequesterID:    "requester-1",
		RequesterName:  "Ward 7",
		RequesterEmail: "ward7@example.com",
		BloodType:      bloodType,
		UnitsNeeded:    units,
		Urgency:        model.UrgencyEmergency,
		Location:       loc,
	}
}

func candidateIDs(candidates []model.Candidate) []string {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.DonorID
	}
	return ids
}
