package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/db"
)

const requestColumns = `
	id, requester_id, requester_name, requester_email, blood_type, units_needed,
	units_fulfilled, urgency, status, hospital_name, hospital_address, latitude,
	longitude, patient_name, notes, candidates, advisory, created_at, updated_at`

func scanRequest(row pgx.Row) (model.BloodRequest, error) {
	var r model.BloodRequest
	var bloodType, urgency, status string
	var lat, lon *float64
	var candidates []byte
	err := row.Scan(
		&r.ID, &r.RequesterID, &r.RequesterName, &r.RequesterEmail, &bloodType, &r.UnitsNeeded,
		&r.UnitsFulfilled, &urgency, &status, &r.HospitalName, &r.HospitalAddress, &lat,
		&lon, &r.PatientName, &r.Notes, &candidates, &r.Advisory, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return r, err
	}
	r.BloodType = model.BloodType(bloodType)
	r.Urgency = model.Urgency(urgency)
	r.Status = model.RequestStatus(status)
	r.Location = toCoordinate(lat, lon)
	if err := json.Unmarshal(candidates, &r.Candidates); err != nil {
		return r, fmt.Errorf("failed to decode candidates: %w", err)
	}
	return r, nil
}

func encodeCandidates(candidates []model.Candidate) (string, error) {
	if candidates == nil {
		candidates = []model.Candidate{}
	}
	b, err := json.Marshal(candidates)
	if err != nil {
		return "", fmt.Errorf("failed to encode candidates: %w", err)
	}
	return string(b), nil
}

// InsertRequest stores a new blood request
func (d *DB) InsertRequest(ctx context.Context, request *model.BloodRequest) error {
	candidates, err := encodeCandidates(request.Candidates)
	if err != nil {
		return err
	}

	var lat, lon *float64
	if request.Location != nil {
		lat, lon = &request.Location.Latitude, &request.Location.Longitude
	}

	updatedAt := request.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = request.CreatedAt
	}

	_, err = d.pool.Exec(ctx, `
		INSERT INTO blood_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16::jsonb, $17, $18, $19)
	`, request.ID, request.RequesterID, request.RequesterName, request.RequesterEmail, string(request.BloodType), request.UnitsNeeded,
		request.UnitsFulfilled, string(request.Urgency), string(request.Status), request.HospitalName, request.HospitalAddress, lat,
		lon, request.PatientName, request.Notes, candidates, request.Advisory, request.CreatedAt.UTC(), updatedAt.UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: request %s already exists", model.ErrConflict, request.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

// GetRequest retrieves a blood request with its candidate list
func (d *DB) GetRequest(ctx context.Context, id string) (*model.BloodRequest, error) {
	return getRequest(ctx, d.pool, id, false)
}

func getRequest(ctx context.Context, q querier, id string, forUpdate bool) (*model.BloodRequest, error) {
	sql := `SELECT ` + requestColumns + ` FROM blood_requests WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}

	req, err := scanRequest(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: request %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request %s: %w", id, err)
	}
	return &req, nil
}

// filterClause renders a RequestFilter as a WHERE clause and its arguments
func filterClause(filter db.RequestFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		conds = append(conds, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	if filter.CandidateDonorID != "" {
		args = append(args, filter.CandidateDonorID)
		conds = append(conds, fmt.Sprintf("candidates @> jsonb_build_array(jsonb_build_object('donor_id', $%d::text))", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListRequests retrieves requests matching the filter, newest first
func (d *DB) ListRequests(ctx context.Context, filter db.RequestFilter) ([]model.BloodRequest, error) {
	where, args := filterClause(filter)
	sql := `SELECT ` + requestColumns + ` FROM blood_requests` + where + ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []model.BloodRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}

	return requests, nil
}

// CountRequests counts requests matching the filter. Limit is ignored.
func (d *DB) CountRequests(ctx context.Context, filter db.RequestFilter) (int, error) {
	where, args := filterClause(filter)

	var count int
	if err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM blood_requests`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return count, nil
}

// updateRequest writes back the matching state of a request
func updateRequest(ctx context.Context, q querier, req *model.BloodRequest) error {
	candidates, err := encodeCandidates(req.Candidates)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		UPDATE blood_requests
		SET candidates = $2::jsonb, status = $3, units_fulfilled = $4, updated_at = $5
		WHERE id = $1
	`, req.ID, candidates, string(req.Status), req.UnitsFulfilled, req.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to update request %s: %w", req.ID, err)
	}
	return nil
}

// MergeMatch locks the request row, checks it is still open and merges the
// ranking into the candidate list read under that lock
func (d *DB) MergeMatch(ctx context.Context, id string, ranked []model.Candidate, limit int) (*model.BloodRequest, []model.Candidate, error) {
	var saved *model.BloodRequest
	var added []model.Candidate
	err := d.inTx(ctx, func(tx pgx.Tx) error {
		req, err := getRequest(ctx, tx, id, true)
		if err != nil {
			return err
		}
		added, err = db.ApplyMatch(req, ranked, limit, time.Now().UTC())
		if err != nil {
			return err
		}
		if err := updateRequest(ctx, tx, req); err != nil {
			return err
		}
		saved = req
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return saved, added, nil
}

// SetAdvisory stores the advisory note for a request
func (d *DB) SetAdvisory(ctx context.Context, id, advisory string) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE blood_requests SET advisory = $2, updated_at = NOW() WHERE id = $1
	`, id, advisory)
	if err != nil {
		return fmt.Errorf("failed to set advisory for request %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: request %s", model.ErrNotFound, id)
	}
	return nil
}

// AcceptCandidate locks the request row and, in the same transaction, counts the
// acceptance, records the donation and marks the donor as having donated.
// Concurrent acceptances for one request are serialised by the row lock.
func (d *DB) AcceptCandidate(ctx context.Context, id, donorID string, donation model.Donation) (*model.BloodRequest, error) {
	var saved *model.BloodRequest
	err := d.inTx(ctx, func(tx pgx.Tx) error {
		req, err := getRequest(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := db.ApplyAcceptance(req, donorID, donation.CreatedAt); err != nil {
			return err
		}
		if err := updateRequest(ctx, tx, req); err != nil {
			return err
		}

		donation.BloodType = req.Candidates[req.FindCandidate(donorID)].BloodType
		if err := insertDonation(ctx, tx, donation); err != nil {
			return err
		}
		if err := markDonated(ctx, tx, donorID, donation.CreatedAt); err != nil {
			return err
		}

		saved = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// CancelRequest moves an open request to cancelled
func (d *DB) CancelRequest(ctx context.Context, id string, at time.Time) (*model.BloodRequest, error) {
	var saved *model.BloodRequest
	err := d.inTx(ctx, func(tx pgx.Tx) error {
		req, err := getRequest(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := db.ApplyCancellation(req, at); err != nil {
			return err
		}
		if err := updateRequest(ctx, tx, req); err != nil {
			return err
		}
		saved = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
