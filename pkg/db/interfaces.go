package db

import (
	"context"
	"time"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

// DonorPoolQuery selects the donors a matching run considers
type DonorPoolQuery struct {
	BloodTypes      []model.BloodType
	AvailableOnly   bool
	RequireLocation bool
	Limit           int // 0 means no limit
}

// RequestFilter selects blood requests for listing and counting
type RequestFilter struct {
	RequesterID      string
	CandidateDonorID string
	Statuses         []model.RequestStatus
	Limit            int // 0 means no limit
}

// DonorStore defines the interface for donor profile operations
type DonorStore interface {
	FetchDonorPool(ctx context.Context, query DonorPoolQuery) ([]model.Donor, error)
	GetDonor(ctx context.Context, id string) (*model.Donor, error)
	UpsertDonor(ctx context.Context, donor *model.Donor) error
	CountDonors(ctx context.Context, availableOnly bool) (int, error)
}

// RequestStore defines the interface for blood request operations.
// Every mutating method is a single atomic operation against one request.
type RequestStore interface {
	InsertRequest(ctx context.Context, request *model.BloodRequest) error
	GetRequest(ctx context.Context, id string) (*model.BloodRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]model.BloodRequest, error)
	CountRequests(ctx context.Context, filter RequestFilter) (int, error)

	// MergeMatch merges a fresh ranking into the request's current candidate
	// list under the request's lock and moves it to matching once it has
	// candidates. It returns the saved request and the newly listed donors.
	// Fails with model.ErrConflict if the request is no longer open.
	MergeMatch(ctx context.Context, id string, ranked []model.Candidate, limit int) (*model.BloodRequest, []model.Candidate, error)

	// SetAdvisory attaches the advisory note without touching matching state
	SetAdvisory(ctx context.Context, id, advisory string) error

	// AcceptCandidate applies a donor's acceptance, records the donation and
	// marks the donor as having just donated, all in one operation.
	AcceptCandidate(ctx context.Context, id, donorID string, donation model.Donation) (*model.BloodRequest, error)

	// CancelRequest moves an open request to cancelled
	CancelRequest(ctx context.Context, id string, at time.Time) (*model.BloodRequest, error)
}

// NotificationStore defines the interface for the notification inbox
type NotificationStore interface {
	InsertNotification(ctx context.Context, notification *model.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// DonationStore defines the interface for donation records
type DonationStore interface {
	CountDonations(ctx context.Context, donorID string) (int, error)
}

// Database defines the interface for all database operations.
// Both the in-memory db.MemoryDB and postgres.DB implement this interface.
type Database interface {
	DonorStore
	RequestStore
	NotificationStore
	DonationStore
}
