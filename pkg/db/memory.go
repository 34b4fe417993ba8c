package db

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

// MemoryDB is an in-process implementation of Database.
// A single mutex serialises writers, which makes every RequestStore mutation atomic.
type MemoryDB struct {
	mu sync.RWMutex

	donors        map[string]*model.Donor
	donorOrder    []string
	requests      map[string]*model.BloodRequest
	notifications []*model.Notification
	donations     []model.Donation

	now func() time.Time
}

// NewMemoryDB creates an empty in-memory database
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		donors:   make(map[string]*model.Donor),
		requests: make(map[string]*model.BloodRequest),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Donor operations

func (m *MemoryDB) FetchDonorPool(ctx context.Context, query DonorPoolQuery) ([]model.Donor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pool []model.Donor
	for _, id := range m.donorOrder {
		donor := m.donors[id]
		if !slices.Contains(query.BloodTypes, donor.BloodType) {
			continue
		}
		if query.AvailableOnly && !donor.IsAvailable {
			continue
		}
		if query.RequireLocation && donor.Location == nil {
			continue
		}
		pool = append(pool, copyDonor(donor))
		if query.Limit > 0 && len(pool) == query.Limit {
			break
		}
	}

	return pool, nil
}

func (m *MemoryDB) GetDonor(ctx context.Context, id string) (*model.Donor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	donor, ok := m.donors[id]
	if !ok {
		return nil, fmt.Errorf("%w: donor %s", model.ErrNotFound, id)
	}
	d := copyDonor(donor)
	return &d, nil
}

func (m *MemoryDB) UpsertDonor(ctx context.Context, donor *model.Donor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.donors[donor.ID]; !exists {
		m.donorOrder = append(m.donorOrder, donor.ID)
	}
	d := copyDonor(donor)
	m.donors[donor.ID] = &d
	return nil
}

func (m *MemoryDB) CountDonors(ctx context.Context, availableOnly bool) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, donor := range m.donors {
		if availableOnly && !donor.IsAvailable {
			continue
		}
		count++
	}
	return count, nil
}

// Request operations

func (m *MemoryDB) InsertRequest(ctx context.Context, request *model.BloodRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.requests[request.ID]; exists {
		return fmt.Errorf("%w: request %s already exists", model.ErrConflict, request.ID)
	}
	r := copyRequest(request)
	m.requests[request.ID] = &r
	return nil
}

func (m *MemoryDB) GetRequest(ctx context.Context, id string) (*model.BloodRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: request %s", model.ErrNotFound, id)
	}
	r := copyRequest(req)
	return &r, nil
}

func (m *MemoryDB) ListRequests(ctx context.Context, filter RequestFilter) ([]model.BloodRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []model.BloodRequest
	for _, req := range m.requests {
		if MatchesFilter(req, filter) {
			result = append(result, copyRequest(req))
		}
	}

	// Newest first
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MemoryDB) CountRequests(ctx context.Context, filter RequestFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, req := range m.requests {
		if MatchesFilter(req, filter) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryDB) MergeMatch(ctx context.Context, id string, ranked []model.Candidate, limit int) (*model.BloodRequest, []model.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: request %s", model.ErrNotFound, id)
	}

	// Apply to a copy so a rejected update leaves the stored request untouched
	updated := copyRequest(req)
	added, err := ApplyMatch(&updated, ranked, limit, m.now())
	if err != nil {
		return nil, nil, err
	}
	m.requests[id] = &updated

	r := copyRequest(&updated)
	return &r, added, nil
}

func (m *MemoryDB) SetAdvisory(ctx context.Context, id, advisory string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return fmt.Errorf("%w: request %s", model.ErrNotFound, id)
	}
	req.Advisory = advisory
	req.UpdatedAt = m.now()
	return nil
}

func (m *MemoryDB) AcceptCandidate(ctx context.Context, id, donorID string, donation model.Donation) (*model.BloodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: request %s", model.ErrNotFound, id)
	}

	updated := copyRequest(req)
	if err := ApplyAcceptance(&updated, donorID, donation.CreatedAt); err != nil {
		return nil, err
	}

	donation.BloodType = updated.Candidates[updated.FindCandidate(donorID)].BloodType
	m.requests[id] = &updated
	m.donations = append(m.donations, donation)

	if donor, ok := m.donors[donorID]; ok {
		donor.LastDonationDate = donation.CreatedAt.UTC().Format(time.RFC3339)
		donor.IsAvailable = false
		donor.UpdatedAt = donation.CreatedAt
	}

	r := copyRequest(&updated)
	return &r, nil
}

func (m *MemoryDB) CancelRequest(ctx context.Context, id string, at time.Time) (*model.BloodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: request %s", model.ErrNotFound, id)
	}

	updated := copyRequest(req)
	if err := ApplyCancellation(&updated, at); err != nil {
		return nil, err
	}
	m.requests[id] = &updated

	r := copyRequest(&updated)
	return &r, nil
}

// Notification operations

func (m *MemoryDB) InsertNotification(ctx context.Context, notification *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := *notification
	m.notifications = append(m.notifications, &n)
	return nil
}

func (m *MemoryDB) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []model.Notification
	// Walk backwards so the newest come first
	for i := len(m.notifications) - 1; i >= 0; i-- {
		n := m.notifications[i]
		if n.UserID != userID {
			continue
		}
		result = append(result, *n)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *MemoryDB) MarkNotificationRead(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range m.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return fmt.Errorf("%w: notification %s", model.ErrNotFound, id)
}

func (m *MemoryDB) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (m *MemoryDB) CountUnread(ctx context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// Donation operations

func (m *MemoryDB) CountDonations(ctx context.Context, donorID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, d := range m.donations {
		if d.DonorID == donorID {
			count++
		}
	}
	return count, nil
}

func copyDonor(d *model.Donor) model.Donor {
	c := *d
	if d.Location != nil {
		loc := *d.Location
		c.Location = &loc
	}
	c.MedicalConditions = slices.Clone(d.MedicalConditions)
	return c
}

func copyRequest(r *model.BloodRequest) model.BloodRequest {
	c := *r
	if r.Location != nil {
		loc := *r.Location
		c.Location = &loc
	}
	c.Candidates = slices.Clone(r.Candidates)
	return c
}
