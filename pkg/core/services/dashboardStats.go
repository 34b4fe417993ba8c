package services

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/db"
)

// Role selects which dashboard view is computed
type Role string

const (
	RoleDonor     Role = "donor"
	RoleRequester Role = "requester"
	RoleAdmin     Role = "admin"
)

// DonorStats is the dashboard view for a donor
type DonorStats struct {
	TotalDonations  int
	PendingRequests int // open requests the donor is listed on
	LivesSaved      int
	IsAvailable     bool
}

// RequesterStats is the dashboard view for a requester
type RequesterStats struct {
	TotalRequests     int
	FulfilledRequests int
	PendingRequests   int
}

// NetworkStats is the dashboard view for administrators
type NetworkStats struct {
	TotalDonors       int
	ActiveDonors      int
	TotalRequests     int
	FulfilledRequests int
	FulfillmentRate   float64 // percentage, one decimal
}

// DashboardStats holds exactly one populated view plus the unread count
type DashboardStats struct {
	Role                Role
	Donor               *DonorStats
	Requester           *RequesterStats
	Network             *NetworkStats
	UnreadNotifications int
}

var openStatuses = []model.RequestStatus{model.RequestStatusPending, model.RequestStatusMatching}

// GetDashboardStats computes the dashboard view for a user in the given role
func GetDashboardStats(ctx context.Context, store db.Database, logger *zap.Logger, userID string, role Role) (*DashboardStats, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}

	stats := &DashboardStats{Role: role}
	var err error

	switch role {
	case RoleDonor:
		stats.Donor, err = donorStats(ctx, store, userID)
	case RoleRequester:
		stats.Requester, err = requesterStats(ctx, store, userID)
	case RoleAdmin:
		stats.Network, err = networkStats(ctx, store)
	default:
		return nil, fmt.Errorf("%w: unknown role %q", model.ErrInvalidInput, role)
	}
	if err != nil {
		return nil, err
	}

	stats.UnreadNotifications, err = store.CountUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	logger.Debug("Computed dashboard stats", zap.String("user_id", userID), zap.String("role", string(role)))
	return stats, nil
}

func donorStats(ctx context.Context, store db.Database, donorID string) (*DonorStats, error) {
	donor, err := store.GetDonor(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get donor: %w", err)
	}

	donations, err := store.CountDonations(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to count donations: %w", err)
	}

	pending, err := store.CountRequests(ctx, db.RequestFilter{CandidateDonorID: donorID, Statuses: openStatuses})
	if err != nil {
		return nil, fmt.Errorf("failed to count open requests: %w", err)
	}

	return &DonorStats{
		TotalDonations:  donations,
		PendingRequests: pending,
		LivesSaved:      donations,
		IsAvailable:     donor.IsAvailable,
	}, nil
}

func requesterStats(ctx context.Context, store db.Database, requesterID string) (*RequesterStats, error) {
	total, err := store.CountRequests(ctx, db.RequestFilter{RequesterID: requesterID})
	if err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}

	fulfilled, err := store.CountRequests(ctx, db.RequestFilter{
		RequesterID: requesterID,
		Statuses:    []model.RequestStatus{model.RequestStatusFulfilled},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count fulfilled requests: %w", err)
	}

	pending, err := store.CountRequests(ctx, db.RequestFilter{RequesterID: requesterID, Statuses: openStatuses})
	if err != nil {
		return nil, fmt.Errorf("failed to count open requests: %w", err)
	}

	return &RequesterStats{
		TotalRequests:     total,
		FulfilledRequests: fulfilled,
		PendingRequests:   pending,
	}, nil
}

func networkStats(ctx context.Context, store db.Database) (*NetworkStats, error) {
	donors, err := store.CountDonors(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to count donors: %w", err)
	}

	active, err := store.CountDonors(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to count active donors: %w", err)
	}

	requests, err := store.CountRequests(ctx, db.RequestFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}

	fulfilled, err := store.CountRequests(ctx, db.RequestFilter{
		Statuses: []model.RequestStatus{model.RequestStatusFulfilled},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count fulfilled requests: %w", err)
	}

	return &NetworkStats{
		TotalDonors:       donors,
		ActiveDonors:      active,
		TotalRequests:     requests,
		FulfilledRequests: fulfilled,
		FulfillmentRate:   fulfillmentRate(fulfilled, requests),
	}, nil
}

func fulfillmentRate(fulfilled, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(fulfilled)/float64(total)*1000) / 10
}
