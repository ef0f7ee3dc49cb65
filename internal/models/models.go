package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ServiceType identifies the family of work a job belongs to. The pricing
// collaborator is keyed by this value.
type ServiceType string

const (
	ServiceHomeCleaning   ServiceType = "home_cleaning"
	ServiceRemovals       ServiceType = "removals"
	ServiceWasteClearance ServiceType = "waste_clearance"
	ServiceGardening      ServiceType = "gardening"
	ServiceHandyman       ServiceType = "handyman"
)

// AccountType segments the requesting customer account. Business segments
// may carry extra credential requirements on top of the job type.
type AccountType string

const (
	AccountConsumer        AccountType = "consumer"
	AccountPropertyManager AccountType = "property_manager"
	AccountLandlord        AccountType = "landlord"
	AccountGovernment      AccountType = "government"
)

type JobStatus string

const (
	JobOpen       JobStatus = "open"
	JobAssigned   JobStatus = "assigned"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

// Terminal reports whether a job can no longer change assignment.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobCancelled
}

type Job struct {
	ID            string      `json:"id"`
	CustomerID    string      `json:"customer_id"`
	AccountID     string      `json:"account_id,omitempty"`
	AccountType   AccountType `json:"account_type"`
	ServiceType   ServiceType `json:"service_type"`
	Pickup        Coord       `json:"pickup"`
	Destination   *Coord      `json:"destination,omitempty"`
	Status        JobStatus   `json:"status"`
	AssignedProID string      `json:"assigned_pro_id,omitempty"`
	ScheduledFor  time.Time   `json:"scheduled_for"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ProCandidate is a read-only snapshot of a pro as seen by the matcher.
// Location is nil when the pro has not reported a position.
type ProCandidate struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Location        *Coord        `json:"location,omitempty"`
	Rating          float64       `json:"rating"` // 0..5
	CompletedJobs   int           `json:"completed_jobs"`
	Specializations []ServiceType `json:"specializations"`
	Available       bool          `json:"available"`
	Updated         time.Time     `json:"updated"`
}

// Specializes reports whether the pro has declared the given service type.
func (p ProCandidate) Specializes(st ServiceType) bool {
	for _, s := range p.Specializations {
		if s == st {
			return true
		}
	}
	return false
}

type CredentialStatus string

const (
	CredentialInProgress CredentialStatus = "in_progress"
	CredentialCompleted  CredentialStatus = "completed"
)

// CredentialRecord links a pro to a credential program. Lifecycle is owned
// by the certification subsystem; this core only reads it.
type CredentialRecord struct {
	ProID     string           `json:"pro_id"`
	Slug      string           `json:"slug"`
	Status    CredentialStatus `json:"status"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

// Active reports whether the credential counts for gating at time now.
func (c CredentialRecord) Active(now time.Time) bool {
	if c.Status != CredentialCompleted {
		return false
	}
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}

// RankedCandidate is one row of a match result.
type RankedCandidate struct {
	Pro           ProCandidate `json:"pro"`
	Score         int          `json:"score"`
	DistanceMiles float64      `json:"distance_miles"`
}

// MatchResult is ephemeral ranking output; the authoritative assignment
// lives on the Job once committed.
type MatchResult struct {
	JobID      string            `json:"job_id"`
	Candidates []RankedCandidate `json:"candidates"`
	Rationale  string            `json:"rationale"`
}

// Quote is the pre-inspection price, produced by the pricing collaborator
// and treated as an immutable input here.
type Quote struct {
	ServiceType ServiceType   `json:"service_type"`
	Inputs      PricingInputs `json:"inputs"`
	Price       float64       `json:"price"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

// PricingInputs are the customer-declared (or on-site-corrected) parameters
// the pricing collaborator consumes.
type PricingInputs struct {
	Bedrooms      int      `json:"bedrooms,omitempty"`
	Bathrooms     int      `json:"bathrooms,omitempty"`
	SquareFootage float64  `json:"square_footage,omitempty"`
	LoadTier      string   `json:"load_tier,omitempty"`
	Extras        []string `json:"extras,omitempty"`
}

type VerificationDecision string

const (
	DecisionAutoApproved     VerificationDecision = "auto_approved"
	DecisionRequiresApproval VerificationDecision = "requires_approval"
)

// VerificationRecord captures one on-site price verification event.
// Immutable after creation except through the linked ApprovalRequest.
type VerificationRecord struct {
	ID               string               `json:"id"`
	JobID            string               `json:"job_id"`
	ProID            string               `json:"pro_id"`
	OriginalPrice    float64              `json:"original_price"`
	VerifiedPrice    float64              `json:"verified_price"`
	Delta            float64              `json:"delta"`
	PctDelta         float64              `json:"pct_delta"`
	Decision         VerificationDecision `json:"decision"`
	Reason           string               `json:"reason"`
	CreatedAt        time.Time            `json:"created_at"`
	ApprovalDeadline *time.Time           `json:"approval_deadline,omitempty"`
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalDeclined ApprovalStatus = "declined"
	ApprovalExpired  ApprovalStatus = "expired"
)

// Terminal reports whether the status can no longer change.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalApproved || s == ApprovalDeclined || s == ApprovalExpired
}

// ApprovalRequest tracks a pending price-change consent. Status only moves
// forward: pending reaches exactly one terminal state.
type ApprovalRequest struct {
	ID             string         `json:"id"`
	VerificationID string         `json:"verification_id"`
	JobID          string         `json:"job_id"`
	CustomerID     string         `json:"customer_id"`
	OriginalPrice  float64        `json:"original_price"`
	VerifiedPrice  float64        `json:"verified_price"`
	Status         ApprovalStatus `json:"status"`
	Deadline       time.Time      `json:"deadline"`
	RespondedAt    *time.Time     `json:"responded_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// RouteStop is one leg of an optimized day plan.
type RouteStop struct {
	Job          Job     `json:"job"`
	LegMiles     float64 `json:"leg_miles"`
	OrderInRoute int     `json:"order_in_route"`
}

type RoutePlan struct {
	ProID      string      `json:"pro_id"`
	Date       string      `json:"date"`
	Stops      []RouteStop `json:"stops"`
	TotalMiles float64     `json:"total_miles"`
}
