package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/geo"
	"github.com/lifeline-network/bloodmatch/pkg/core/matcher"
	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

// DonorProfileUpdate carries the fields to change. Nil fields are left as they are.
type DonorProfileUpdate struct {
	ID                string `validate:"required"`
	FullName          *string
	Email             *string `validate:"omitempty,email"`
	Phone             *string
	BloodType         *model.BloodType
	IsAvailable       *bool
	Location          *geo.Coordinate
	LastDonationDate  *string
	Address           *string
	Weight            *float64 `validate:"omitempty,gte=0"`
	DateOfBirth       *string
	MedicalConditions []string
}

type DonorProfileStore interface {
	GetDonor(ctx context.Context, id string) (*model.Donor, error)
	UpsertDonor(ctx context.Context, donor *model.Donor) error
}

// UpdateDonorProfile creates the donor profile if it does not exist and merges
// the supplied fields into it. A new profile needs a blood type.
func UpdateDonorProfile(ctx context.Context, store DonorProfileStore, clock matcher.Clock, logger *zap.Logger, update DonorProfileUpdate) (*model.Donor, error) {
	if err := validate.Struct(update); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	if clock != nil {
		now = clock.Now()
	}

	logger = logger.With(zap.String("donor_id", update.ID))

	donor, err := store.GetDonor(ctx, update.ID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		logger.Debug("Donor not found, creating profile")
		donor = &model.Donor{ID: update.ID, IsAvailable: true, CreatedAt: now}
	case err != nil:
		return nil, fmt.Errorf("failed to get donor: %w", err)
	}

	if err := applyProfileUpdate(donor, update); err != nil {
		return nil, err
	}
	if !donor.BloodType.IsValid() {
		return nil, fmt.Errorf("%w: donor %s needs a valid blood type", model.ErrInvalidInput, donor.ID)
	}
	donor.UpdatedAt = now

	if err := store.UpsertDonor(ctx, donor); err != nil {
		return nil, fmt.Errorf("failed to save donor: %w", err)
	}

	logger.Info("Donor profile saved",
		zap.String("blood_type", string(donor.BloodType)),
		zap.Bool("is_available", donor.IsAvailable),
		zap.Bool("has_location", donor.Location != nil))

	return donor, nil
}

func applyProfileUpdate(donor *model.Donor, update DonorProfileUpdate) error {
	if update.FullName != nil {
		donor.FullName = strings.TrimSpace(*update.FullName)
	}
	if update.Email != nil {
		donor.Email = *update.Email
	}
	if update.Phone != nil {
		donor.Phone = *update.Phone
	}
	if update.BloodType != nil {
		bt, err := model.ParseBloodType(string(*update.BloodType))
		if err != nil {
			return err
		}
		donor.BloodType = bt
	}
	if update.IsAvailable != nil {
		donor.IsAvailable = *update.IsAvailable
	}
	if update.Location != nil {
		if err := validateCoordinate(*update.Location); err != nil {
			return err
		}
		loc := *update.Location
		donor.Location = &loc
	}
	if update.LastDonationDate != nil {
		donor.LastDonationDate = *update.LastDonationDate
	}
	if update.Address != nil {
		donor.Address = *update.Address
	}
	if update.Weight != nil {
		donor.Weight = *update.Weight
	}
	if update.DateOfBirth != nil {
		donor.DateOfBirth = *update.DateOfBirth
	}
	if update.MedicalConditions != nil {
		donor.MedicalConditions = append([]string(nil), update.MedicalConditions...)
	}
	return nil
}
