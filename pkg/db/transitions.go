package db

import (
	"fmt"
	"slices"
	"time"

	"github.com/lifeline-network/bloodmatch/pkg/core/matcher"
	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

// These functions hold the request state machine. Stores call them inside
// their atomic boundary (a lock or a row-locking transaction) so the check
// and the mutation cannot interleave with another writer.

// ApplyMatch merges a fresh ranking into the current candidate list of an
// open request. Entries already on the list keep their status. A request with
// candidates is matching. added holds the donors listed by this call.
func ApplyMatch(req *model.BloodRequest, ranked []model.Candidate, limit int, at time.Time) (added []model.Candidate, err error) {
	if !req.Status.IsOpen() {
		return nil, fmt.Errorf("%w: request %s is %s and cannot be matched", model.ErrConflict, req.ID, req.Status)
	}

	merged, added := MergeCandidates(req.Candidates, ranked, limit)
	req.Candidates = merged
	if len(merged) > 0 {
		req.Status = model.RequestStatusMatching
	}
	req.UpdatedAt = at
	return added, nil
}

// MergeCandidates combines an existing list with a fresh ranking.
// Every existing entry is kept.
// Fresh donors not yet listed fill the remaining slots up to limit, best
// first, and the combined list is re-sorted. A limit of zero takes every
// fresh donor. added holds the fresh entries that made it into the result.
func MergeCandidates(existing, ranked []model.Candidate, limit int) (merged, added []model.Candidate) {
	listed := make(map[string]bool, len(existing))
	merged = make([]model.Candidate, 0, len(existing)+len(ranked))
	for _, c := range existing {
		listed[c.DonorID] = true
		merged = append(merged, c)
	}

	slots := len(ranked)
	if limit > 0 {
		slots = max(limit-len(existing), 0)
	}

	// ranked is already sorted, so the first unlisted donors are the best ones
	for _, c := range ranked {
		if len(added) == slots {
			break
		}
		if listed[c.DonorID] {
			continue
		}
		listed[c.DonorID] = true
		added = append(added, c)
		merged = append(merged, c)
	}

	matcher.SortCandidates(merged)
	return merged, added
}

// ApplyAcceptance marks the donor's candidate entry accepted and counts one unit.
//
// Rules:
//   - A fulfilled or cancelled request rejects every acceptance (conflict)
//   - The donor must be listed as a candidate (not found otherwise)
//   - A candidate who already accepted cannot accept again (conflict)
//   - Status becomes fulfilled exactly when units fulfilled reaches units needed
func ApplyAcceptance(req *model.BloodRequest, donorID string, at time.Time) error {
	if req.Status.IsTerminal() {
		return fmt.Errorf("%w: request %s is %s", model.ErrConflict, req.ID, req.Status)
	}

	idx := req.FindCandidate(donorID)
	if idx < 0 {
		return fmt.Errorf("%w: donor %s is not matched for request %s", model.ErrNotFound, donorID, req.ID)
	}

	if req.Candidates[idx].Status != model.CandidateStatusPending {
		return fmt.Errorf("%w: donor %s has already accepted request %s", model.ErrConflict, donorID, req.ID)
	}

	if req.Status != model.RequestStatusMatching {
		return fmt.Errorf("%w: request %s is %s and not accepting donors", model.ErrConflict, req.ID, req.Status)
	}

	if req.UnitsFulfilled >= req.UnitsNeeded {
		return fmt.Errorf("%w: request %s already has all %d units", model.ErrConflict, req.ID, req.UnitsNeeded)
	}

	req.Candidates[idx].Status = model.CandidateStatusAccepted
	req.UnitsFulfilled++
	if req.UnitsFulfilled >= req.UnitsNeeded {
		req.Status = model.RequestStatusFulfilled
	}
	req.UpdatedAt = at

	return nil
}

// ApplyCancellation moves an open request to cancelled
func ApplyCancellation(req *model.BloodRequest, at time.Time) error {
	if !req.Status.IsOpen() {
		return fmt.Errorf("%w: request %s is %s and cannot be cancelled", model.ErrConflict, req.ID, req.Status)
	}

	req.Status = model.RequestStatusCancelled
	req.UpdatedAt = at
	return nil
}

// MatchesFilter reports whether a request satisfies the filter
func MatchesFilter(req *model.BloodRequest, filter RequestFilter) bool {
	if filter.RequesterID != "" && req.RequesterID != filter.RequesterID {
		return false
	}
	if filter.CandidateDonorID != "" && req.FindCandidate(filter.CandidateDonorID) < 0 {
		return false
	}
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, req.Status) {
		return false
	}
	return true
}
