package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/compatibility"
	"github.com/lifeline-network/bloodmatch/pkg/core/geo"
	"github.com/lifeline-network/bloodmatch/pkg/core/matcher"
	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/db"
)

var validate = validator.New()

// CreateRequestInput holds the fields a requester supplies for a new blood request
type CreateRequestInput struct {
	RequesterID     string          `validate:"required"`
	RequesterName   string          `validate:"omitempty,max=200"`
	RequesterEmail  string          `validate:"omitempty,email"`
	BloodType       model.BloodType `validate:"required"`
	UnitsNeeded     int             `validate:"gte=1"`
	Urgency         model.Urgency   `validate:"required"`
	HospitalName    string
	HospitalAddress string
	Location        *geo.Coordinate
	PatientName     string
	Notes           string
}

// CreateRequestStore is the subset of the database a request creation needs
type CreateRequestStore interface {
	InsertRequest(ctx context.Context, request *model.BloodRequest) error
	FetchDonorPool(ctx context.Context, query db.DonorPoolQuery) ([]model.Donor, error)
	MergeMatch(ctx context.Context, id string, ranked []model.Candidate, limit int) (*model.BloodRequest, []model.Candidate, error)
	SetAdvisory(ctx context.Context, id, advisory string) error
}

// CreateRequest stores a new blood request and, when it has a location, runs
// the initial match against the live donor pool.
//
// The returned request reflects the stored state after matching and annotation.
func (e *Engine) CreateRequest(ctx context.Context, store CreateRequestStore, logger *zap.Logger, input CreateRequestInput) (*model.BloodRequest, error) {
	if err := validateRequestInput(input); err != nil {
		return nil, err
	}

	now := e.now()
	req := &model.BloodRequest{
		ID:              uuid.New().String(),
		RequesterID:     input.RequesterID,
		RequesterName:   input.RequesterName,
		RequesterEmail:  input.RequesterEmail,
		BloodType:       input.BloodType,
		UnitsNeeded:     input.UnitsNeeded,
		Urgency:         input.Urgency,
		Status:          model.RequestStatusPending,
		HospitalName:    input.HospitalName,
		HospitalAddress: input.HospitalAddress,
		Location:        copyCoordinate(input.Location),
		PatientName:     input.PatientName,
		Notes:           input.Notes,
		Candidates:      []model.Candidate{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	logger = logger.With(zap.String("request_id", req.ID))
	logger.Debug("Creating blood request",
		zap.String("blood_type", string(req.BloodType)),
		zap.Int("units_needed", req.UnitsNeeded),
		zap.String("urgency", string(req.Urgency)))

	if err := store.InsertRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to insert request: %w", err)
	}

	if req.Location == nil {
		logger.Info("Request has no location, leaving it pending")
		e.Metrics.ObserveMatch("no_location", 0, 0)
		return req, nil
	}

	matched, added, err := e.runMatch(ctx, store, logger, req)
	if err != nil {
		return nil, err
	}
	req = matched

	e.notifyCandidates(ctx, logger, req, added)
	e.annotate(ctx, store, logger, req)

	logger.Info("Blood request created",
		zap.String("status", string(req.Status)),
		zap.Int("candidates", len(req.Candidates)))

	return req, nil
}

// MatchStore is the subset of the database a matching run writes through
type MatchStore interface {
	DonorPoolStore
	MergeMatch(ctx context.Context, id string, ranked []model.Candidate, limit int) (*model.BloodRequest, []model.Candidate, error)
}

// runMatch ranks the compatible pool for req and merges the ranking into the
// stored candidate list. The merge reads the list as stored at write time.
func (e *Engine) runMatch(ctx context.Context, store MatchStore, logger *zap.Logger, req *model.BloodRequest) (*model.BloodRequest, []model.Candidate, error) {
	start := time.Now()

	ranked, err := e.rankPool(ctx, store, logger, req, e.AutoMatch, true, e.PoolLimit)
	if err != nil {
		e.Metrics.ObserveMatch("error", 0, time.Since(start))
		return nil, nil, err
	}

	saved, added, err := store.MergeMatch(ctx, req.ID, ranked, e.AutoMatch.MaxResults)
	if err != nil {
		outcome := "error"
		if errors.Is(err, model.ErrConflict) {
			outcome = "conflict"
		}
		e.Metrics.ObserveMatch(outcome, len(ranked), time.Since(start))
		return nil, nil, fmt.Errorf("failed to save match: %w", err)
	}

	outcome := "matched"
	if len(saved.Candidates) == 0 {
		outcome = "no_candidates"
	}
	e.Metrics.ObserveMatch(outcome, len(saved.Candidates), time.Since(start))
	logger.Debug("Match saved",
		zap.String("outcome", outcome),
		zap.Int("candidates", len(saved.Candidates)),
		zap.Int("added", len(added)))

	return saved, added, nil
}

// DonorPoolStore fetches the donors a ranking pass considers
type DonorPoolStore interface {
	FetchDonorPool(ctx context.Context, query db.DonorPoolQuery) ([]model.Donor, error)
}

// rankPool fetches the compatible donors for req and ranks them
func (e *Engine) rankPool(ctx context.Context, store DonorPoolStore, logger *zap.Logger, req *model.BloodRequest, opts matcher.RankOptions, availableOnly bool, poolLimit int) ([]model.Candidate, error) {
	query := db.DonorPoolQuery{
		BloodTypes:      compatibility.CompatibleDonorTypes(req.BloodType),
		AvailableOnly:   availableOnly,
		RequireLocation: true,
		Limit:           poolLimit,
	}

	logger.Debug("Fetching donor pool",
		zap.Int("compatible_types", len(query.BloodTypes)),
		zap.Bool("available_only", availableOnly),
		zap.Int("pool_limit", poolLimit))

	pool, err := store.FetchDonorPool(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donor pool: %w", err)
	}

	candidates := e.Ranker.Rank(pool, matcher.RankTarget{BloodType: req.BloodType, Location: *req.Location}, opts)
	logger.Debug("Ranked donor pool", zap.Int("pool", len(pool)), zap.Int("candidates", len(candidates)))

	return candidates, nil
}

func validateRequestInput(input CreateRequestInput) error {
	if err := validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	if !input.BloodType.IsValid() {
		return fmt.Errorf("%w: unknown blood type %q", model.ErrInvalidInput, input.BloodType)
	}
	if !input.Urgency.IsValid() {
		return fmt.Errorf("%w: unknown urgency %q", model.ErrInvalidInput, input.Urgency)
	}
	if input.Location != nil {
		if err := validateCoordinate(*input.Location); err != nil {
			return err
		}
	}
	return nil
}

func validateCoordinate(c geo.Coordinate) error {
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: coordinate (%g, %g) is out of range", model.ErrInvalidInput, c.Latitude, c.Longitude)
	}
	return nil
}

func copyCoordinate(c *geo.Coordinate) *geo.Coordinate {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}
