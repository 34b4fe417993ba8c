package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/geo"
	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

// NearbyDonorsQuery describes an ad-hoc donor search
type NearbyDonorsQuery struct {
	BloodType model.BloodType
	Location  geo.Coordinate
	// RadiusKm overrides the discovery radius when positive
	RadiusKm float64
}

// FindNearbyDonors ranks every compatible donor with a known location around
// the given point. Unavailable donors are included with the availability
// penalty applied to their score.
func (e *Engine) FindNearbyDonors(ctx context.Context, store DonorPoolStore, logger *zap.Logger, query NearbyDonorsQuery) ([]model.Candidate, error) {
	if !query.BloodType.IsValid() {
		return nil, fmt.Errorf("%w: unknown blood type %q", model.ErrInvalidInput, query.BloodType)
	}
	if err := validateCoordinate(query.Location); err != nil {
		return nil, err
	}
	if query.RadiusKm < 0 {
		return nil, fmt.Errorf("%w: radius must not be negative", model.ErrInvalidInput)
	}

	opts := e.Discovery
	if query.RadiusKm > 0 {
		opts.RadiusKm = query.RadiusKm
	}

	target := &model.BloodRequest{BloodType: query.BloodType, Location: &query.Location}
	candidates, err := e.rankPool(ctx, store, logger, target, opts, false, e.DiscoveryPoolLimit)
	if err != nil {
		return nil, err
	}

	logger.Info("Found nearby donors",
		zap.String("blood_type", string(query.BloodType)),
		zap.Float64("radius_km", opts.RadiusKm),
		zap.Int("count", len(candidates)))

	return candidates, nil
}
