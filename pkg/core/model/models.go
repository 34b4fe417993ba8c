package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/lifeline-network/bloodmatch/pkg/core/geo"
)

type BloodType string

const (
	BloodTypeONeg  BloodType = "O-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeAPos  BloodType = "A+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeABNeg BloodType = "AB-"
	BloodTypeABPos BloodType = "AB+"
)

// AllBloodTypes lists the eight ABO/Rh types in canonical order
var AllBloodTypes = []BloodType{
	BloodTypeONeg, BloodTypeOPos,
	BloodTypeANeg, BloodTypeAPos,
	BloodTypeBNeg, BloodTypeBPos,
	BloodTypeABNeg, BloodTypeABPos,
}

func (b BloodType) IsValid() bool {
	for _, t := range AllBloodTypes {
		if b == t {
			return true
		}
	}
	return false
}

// ParseBloodType normalises user input such as " ab+ " into a BloodType
func ParseBloodType(raw string) (BloodType, error) {
	b := BloodType(strings.ToUpper(strings.TrimSpace(raw)))
	if !b.IsValid() {
		return "", fmt.Errorf("%w: unknown blood type %q", ErrInvalidInput, raw)
	}
	return b, nil
}

type Urgency string

const (
	UrgencyEmergency Urgency = "emergency"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyNormal    Urgency = "normal"
)

func (u Urgency) IsValid() bool {
	return u == UrgencyEmergency || u == UrgencyUrgent || u == UrgencyNormal
}

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusMatching  RequestStatus = "matching"
	RequestStatusFulfilled RequestStatus = "fulfilled"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// IsTerminal returns true for statuses that no matching run or acceptance may change
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusFulfilled || s == RequestStatusCancelled
}

// IsOpen returns true while the request is still looking for donors
func (s RequestStatus) IsOpen() bool {
	return s == RequestStatusPending || s == RequestStatusMatching
}

type CandidateStatus string

const (
	CandidateStatusPending  CandidateStatus = "pending"
	CandidateStatusAccepted CandidateStatus = "accepted"
)

type NotificationType string

const (
	NotificationTypeRequest  NotificationType = "request"
	NotificationTypeMatch    NotificationType = "match"
	NotificationTypeDonation NotificationType = "donation"
	NotificationTypeSystem   NotificationType = "system"
)

const DonationStatusScheduled = "scheduled"

// Donor is a snapshot of a donor profile as seen by the matching engine
type Donor struct {
	ID          string
	FullName    string
	Email       string
	Phone       string
	BloodType   BloodType
	IsAvailable bool
	Location    *geo.Coordinate // nil when the donor has not shared a location

	// LastDonationDate is kept as recorded (ISO-8601 text). Empty means never
	// donated or unknown. Unparseable values are tolerated by the scorer.
	LastDonationDate string

	Address           string
	Weight            float64
	DateOfBirth       string
	MedicalConditions []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BloodRequest is a request for blood units and its matching state
type BloodRequest struct {
	ID              string
	RequesterID     string
	RequesterName   string
	RequesterEmail  string
	BloodType       BloodType
	UnitsNeeded     int
	UnitsFulfilled  int
	Urgency         Urgency
	Status          RequestStatus
	HospitalName    string
	HospitalAddress string
	Location        *geo.Coordinate
	PatientName     string
	Notes           string
	Candidates      []Candidate
	Advisory        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FindCandidate returns the index of the donor in the candidate list, or -1
func (r *BloodRequest) FindCandidate(donorID string) int {
	for i, c := range r.Candidates {
		if c.DonorID == donorID {
			return i
		}
	}
	return -1
}

// Candidate is a donor paired with its distance and score for one request
type Candidate struct {
	DonorID          string          `json:"donor_id"`
	DonorName        string          `json:"donor_name"`
	DonorEmail       string          `json:"donor_email,omitempty"`
	BloodType        BloodType       `json:"blood_type"`
	DistanceKm       float64         `json:"distance_km"`
	Score            float64         `json:"compatibility_score"`
	IsAvailable      bool            `json:"is_available"`
	LastDonationDate string          `json:"last_donation_date,omitempty"`
	Status           CandidateStatus `json:"status"`
}

// NotificationEvent is emitted by the matching engine for delivery
type NotificationEvent struct {
	RecipientID    string
	RecipientEmail string
	Title          string
	Message        string
	Type           NotificationType
	RequestID      string
	Data           map[string]string
}

// Notification is a stored notification in a user's inbox
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      NotificationType
	IsRead    bool
	Data      map[string]string
	CreatedAt time.Time
}

// Donation records a donor's commitment to a request
type Donation struct {
	ID        string
	DonorID   string
	RequestID string
	BloodType BloodType
	Status    string
	CreatedAt time.Time
}
