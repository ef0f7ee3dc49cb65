package storage

import (
	"context"
	"errors"
	"time"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

var (
	// ErrNotFound is returned when a job or approval does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrAssignConflict is returned when an assignment compare-and-set
	// loses the race because the job already has a pro.
	ErrAssignConflict = errors.New("storage: job already assigned")
	// ErrAlreadyResolved is returned when resolving an approval that has
	// already reached a terminal state.
	ErrAlreadyResolved = errors.New("storage: approval already resolved")
)

// JobStore defines persistence operations for jobs. AssignJob is the one
// operation that must be atomic: it sets the pro only if the job is still
// unassigned, and reports ErrAssignConflict otherwise.
type JobStore interface {
	CreateJob(ctx context.Context, j *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id string, status models.JobStatus) error
	ListOpenJobs(ctx context.Context) ([]models.Job, error)
	ListJobsForProOnDate(ctx context.Context, proID, date string) ([]models.Job, error)
	AssignJob(ctx context.Context, jobID, proID string) error
	UnassignJob(ctx context.Context, jobID string) error
}

// VerificationStore persists on-site verification records.
type VerificationStore interface {
	SaveVerification(ctx context.Context, v *models.VerificationRecord) error
}

// ApprovalStore persists price-change consent requests. ResolveApproval is
// a compare-and-set from pending to the given terminal status.
type ApprovalStore interface {
	SaveApproval(ctx context.Context, a *models.ApprovalRequest) error
	GetApproval(ctx context.Context, id string) (*models.ApprovalRequest, error)
	ResolveApproval(ctx context.Context, id string, status models.ApprovalStatus, respondedAt time.Time) (*models.ApprovalRequest, error)
	ListExpiredPending(ctx context.Context, now time.Time) ([]models.ApprovalRequest, error)
	ListPendingForJob(ctx context.Context, jobID string) ([]models.ApprovalRequest, error)
}

// Store is the full persistence surface the dispatch core needs.
type Store interface {
	JobStore
	VerificationStore
	ApprovalStore
}
