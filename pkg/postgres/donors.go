package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lifeline-network/bloodmatch/pkg/core/geo"
	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/db"
)

const donorColumns = `
	id, full_name, email, phone, blood_type, is_available, latitude, longitude,
	last_donation_date, address, weight, date_of_birth, medical_conditions,
	created_at, updated_at`

func scanDonor(row pgx.Row) (model.Donor, error) {
	var d model.Donor
	var bloodType string
	var lat, lon *float64
	err := row.Scan(
		&d.ID, &d.FullName, &d.Email, &d.Phone, &bloodType, &d.IsAvailable, &lat, &lon,
		&d.LastDonationDate, &d.Address, &d.Weight, &d.DateOfBirth, &d.MedicalConditions,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return d, err
	}
	d.BloodType = model.BloodType(bloodType)
	d.Location = toCoordinate(lat, lon)
	return d, nil
}

// FetchDonorPool retrieves donors of the given blood types in registration order
func (d *DB) FetchDonorPool(ctx context.Context, query db.DonorPoolQuery) ([]model.Donor, error) {
	types := make([]string, len(query.BloodTypes))
	for i, t := range query.BloodTypes {
		types[i] = string(t)
	}

	var limit *int
	if query.Limit > 0 {
		limit = &query.Limit
	}

	rows, err := d.pool.Query(ctx, `
		SELECT `+donorColumns+`
		FROM donors
		WHERE blood_type = ANY($1)
		  AND (NOT $2 OR is_available)
		  AND (NOT $3 OR (latitude IS NOT NULL AND longitude IS NOT NULL))
		ORDER BY seq
		LIMIT $4
	`, types, query.AvailableOnly, query.RequireLocation, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query donor pool: %w", err)
	}
	defer rows.Close()

	var donors []model.Donor
	for rows.Next() {
		donor, err := scanDonor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donor: %w", err)
		}
		donors = append(donors, donor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donors: %w", err)
	}

	return donors, nil
}

// GetDonor retrieves a single donor profile
func (d *DB) GetDonor(ctx context.Context, id string) (*model.Donor, error) {
	donor, err := scanDonor(d.pool.QueryRow(ctx, `SELECT `+donorColumns+` FROM donors WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: donor %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get donor %s: %w", id, err)
	}
	return &donor, nil
}

// UpsertDonor inserts a donor or replaces the stored profile
func (d *DB) UpsertDonor(ctx context.Context, donor *model.Donor) error {
	var lat, lon *float64
	if donor.Location != nil {
		lat, lon = &donor.Location.Latitude, &donor.Location.Longitude
	}

	conditions := donor.MedicalConditions
	if conditions == nil {
		conditions = []string{}
	}

	createdAt := donor.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := donor.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO donors (`+donorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			blood_type = EXCLUDED.blood_type,
			is_available = EXCLUDED.is_available,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			last_donation_date = EXCLUDED.last_donation_date,
			address = EXCLUDED.address,
			weight = EXCLUDED.weight,
			date_of_birth = EXCLUDED.date_of_birth,
			medical_conditions = EXCLUDED.medical_conditions,
			updated_at = EXCLUDED.updated_at
	`, donor.ID, donor.FullName, donor.Email, donor.Phone, string(donor.BloodType), donor.IsAvailable, lat, lon,
		donor.LastDonationDate, donor.Address, donor.Weight, donor.DateOfBirth, conditions,
		createdAt, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert donor %s: %w", donor.ID, err)
	}
	return nil
}

// CountDonors counts registered donors, optionally only those available
func (d *DB) CountDonors(ctx context.Context, availableOnly bool) (int, error) {
	var count int
	err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM donors WHERE (NOT $1 OR is_available)`, availableOnly).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count donors: %w", err)
	}
	return count, nil
}

// markDonated records that a donor has just committed to donating
func markDonated(ctx context.Context, q querier, donorID string, at time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE donors
		SET last_donation_date = $2, is_available = FALSE, updated_at = $3
		WHERE id = $1
	`, donorID, at.UTC().Format(time.RFC3339), at.UTC())
	if err != nil {
		return fmt.Errorf("failed to update donor %s after acceptance: %w", donorID, err)
	}
	return nil
}

func toCoordinate(lat, lon *float64) *geo.Coordinate {
	if lat == nil || lon == nil {
		return nil
	}
	return &geo.Coordinate{Latitude: *lat, Longitude: *lon}
}
