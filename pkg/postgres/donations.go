package postgres

import (
	"context"
	"fmt"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

func insertDonation(ctx context.Context, q querier, donation model.Donation) error {
	_, err := q.Exec(ctx, `
		INSERT INTO donations (id, donor_id, request_id, blood_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, donation.ID, donation.DonorID, donation.RequestID, string(donation.BloodType), donation.Status, donation.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: donor %s already has a donation for request %s", model.ErrConflict, donation.DonorID, donation.RequestID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert donation: %w", err)
	}
	return nil
}

// CountDonations counts the donation records of a donor
func (d *DB) CountDonations(ctx context.Context, donorID string) (int, error) {
	var count int
	err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM donations WHERE donor_id = $1`, donorID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count donations: %w", err)
	}
	return count, nil
}
