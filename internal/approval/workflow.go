package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
	"github.com/alanoney1-alt/UpTend-sub012/internal/notify"
	"github.com/alanoney1-alt/UpTend-sub012/internal/observability"
	"github.com/alanoney1-alt/UpTend-sub012/internal/storage"
)

var (
	// ErrNotFound: unknown approval id.
	ErrNotFound = errors.New("approval: not found")
	// ErrAlreadyResolved: the request already reached a terminal state.
	// Late responses are no-ops, never state changes.
	ErrAlreadyResolved = errors.New("approval: already resolved")
)

// Holds releases a payment authorization when a price change is declined
// or expires. Capture never happens here.
type Holds interface {
	Release(ctx context.Context, jobID string) error
}

// Service owns the pending → {approved, declined, expired} state machine.
type Service struct {
	Store  storage.ApprovalStore
	Jobs   storage.JobStore
	Notify notify.Sender
	Holds  Holds
	Logger *slog.Logger
	Now    func() time.Time
}

func NewService(store storage.ApprovalStore, jobs storage.JobStore, sender notify.Sender, logger *slog.Logger) *Service {
	return &Service{Store: store, Jobs: jobs, Notify: sender, Logger: logger, Now: time.Now}
}

// Open creates the consent request for a requires_approval verification and
// notifies the customer with both prices, the change, and the window.
func (s *Service) Open(ctx context.Context, rec models.VerificationRecord, customerID string) (models.ApprovalRequest, error) {
	if rec.ApprovalDeadline == nil {
		return models.ApprovalRequest{}, fmt.Errorf("approval: verification %s has no deadline", rec.ID)
	}
	req := models.ApprovalRequest{
		ID:             uuid.NewString(),
		VerificationID: rec.ID,
		JobID:          rec.JobID,
		CustomerID:     customerID,
		OriginalPrice:  rec.OriginalPrice,
		VerifiedPrice:  rec.VerifiedPrice,
		Status:         models.ApprovalPending,
		Deadline:       *rec.ApprovalDeadline,
		CreatedAt:      rec.CreatedAt,
	}
	if err := s.Store.SaveApproval(ctx, &req); err != nil {
		return models.ApprovalRequest{}, err
	}
	s.send(ctx, customerID, notify.Message{
		Kind:  notify.KindApprovalRequested,
		Title: "Price update needs your approval",
		Body: fmt.Sprintf("Your quote changed from $%.2f to $%.2f (%.1f%% increase). Please respond within %s.",
			rec.OriginalPrice, rec.VerifiedPrice, rec.PctDelta*100, req.Deadline.Sub(s.Now()).Round(time.Minute)),
		Data: map[string]string{"approval_id": req.ID, "job_id": req.JobID},
	})
	return req, nil
}

// Resolve applies the customer's response. Approved signals the worker to
// start; declined releases the worker and offers a reschedule. Resolving a
// terminal request returns ErrAlreadyResolved without side effects.
func (s *Service) Resolve(ctx context.Context, approvalID string, approved bool) (models.ApprovalRequest, error) {
	status := models.ApprovalDeclined
	if approved {
		status = models.ApprovalApproved
	}
	req, err := s.Store.ResolveApproval(ctx, approvalID, status, s.Now())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return models.ApprovalRequest{}, ErrNotFound
		case errors.Is(err, storage.ErrAlreadyResolved):
			return models.ApprovalRequest{}, ErrAlreadyResolved
		}
		return models.ApprovalRequest{}, err
	}
	observability.ApprovalsResolvedTotal.WithLabelValues(string(status)).Inc()
	if approved {
		s.signalStart(ctx, *req)
	} else {
		s.release(ctx, *req, "The updated price was declined. We'll help you reschedule.")
	}
	return *req, nil
}

// Sweep transitions every pending request past its deadline to expired.
// Idempotent: requests another sweep already expired are skipped silently,
// so overlapping scheduler runs are safe.
func (s *Service) Sweep(ctx context.Context) ([]models.ApprovalRequest, error) {
	now := s.Now()
	pending, err := s.Store.ListExpiredPending(ctx, now)
	if err != nil {
		return nil, err
	}
	var expired []models.ApprovalRequest
	for _, p := range pending {
		req, err := s.Store.ResolveApproval(ctx, p.ID, models.ApprovalExpired, now)
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyResolved) {
				continue
			}
			return expired, err
		}
		observability.ApprovalsResolvedTotal.WithLabelValues(string(models.ApprovalExpired)).Inc()
		if s.Logger != nil {
			// expired is handled like declined downstream but logged
			// distinctly for audit
			s.Logger.Info("approval expired", "approval_id", req.ID, "job_id", req.JobID, "deadline", req.Deadline)
		}
		s.release(ctx, *req, "We couldn't reach you in time about the updated price. We'll help you reschedule.")
		expired = append(expired, *req)
	}
	return expired, nil
}

// CancelForJob forces any pending approvals to declined when the
// underlying job is cancelled, so nothing is left dangling.
func (s *Service) CancelForJob(ctx context.Context, jobID string) error {
	pending, err := s.Store.ListPendingForJob(ctx, jobID)
	if err != nil {
		return err
	}
	for _, p := range pending {
		req, err := s.Store.ResolveApproval(ctx, p.ID, models.ApprovalDeclined, s.Now())
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyResolved) {
				continue
			}
			return err
		}
		observability.ApprovalsResolvedTotal.WithLabelValues(string(models.ApprovalDeclined)).Inc()
		s.release(ctx, *req, "Your booking was cancelled. Any payment hold has been released.")
	}
	return nil
}

func (s *Service) signalStart(ctx context.Context, req models.ApprovalRequest) {
	job, err := s.Jobs.GetJob(ctx, req.JobID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error("approved but job lookup failed", "job_id", req.JobID, "error", err)
		}
		return
	}
	if err := s.Jobs.UpdateJobStatus(ctx, job.ID, models.JobInProgress); err != nil && s.Logger != nil {
		s.Logger.Error("failed to mark job in progress", "job_id", job.ID, "error", err)
	}
	if job.AssignedProID != "" {
		s.send(ctx, job.AssignedProID, notify.Message{
			Kind:  notify.KindWorkerStart,
			Title: "Price approved",
			Body:  fmt.Sprintf("The customer approved the updated price of $%.2f. You may start work.", req.VerifiedPrice),
			Data:  map[string]string{"job_id": job.ID},
		})
	}
	s.send(ctx, req.CustomerID, notify.Message{
		Kind:  notify.KindApprovalResolved,
		Title: "Price approved",
		Body:  fmt.Sprintf("You approved the updated price of $%.2f. Work will begin shortly.", req.VerifiedPrice),
		Data:  map[string]string{"job_id": job.ID},
	})
}

// release frees the worker, releases any payment hold, and offers the
// customer a reschedule. Shared by decline, expiry, and cancellation.
func (s *Service) release(ctx context.Context, req models.ApprovalRequest, customerBody string) {
	job, err := s.Jobs.GetJob(ctx, req.JobID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error("release: job lookup failed", "job_id", req.JobID, "error", err)
		}
		return
	}
	if err := s.Jobs.UnassignJob(ctx, job.ID); err != nil && s.Logger != nil {
		s.Logger.Error("release: unassign failed", "job_id", job.ID, "error", err)
	}
	if s.Holds != nil {
		if err := s.Holds.Release(ctx, job.ID); err != nil && s.Logger != nil {
			s.Logger.Warn("release: payment hold release failed", "job_id", job.ID, "error", err)
		}
	}
	if job.AssignedProID != "" {
		s.send(ctx, job.AssignedProID, notify.Message{
			Kind:  notify.KindWorkerRelease,
			Title: "Job released",
			Body:  "The customer did not approve the updated price. You're released from this job.",
			Data:  map[string]string{"job_id": job.ID},
		})
	}
	s.send(ctx, req.CustomerID, notify.Message{
		Kind:  notify.KindApprovalResolved,
		Title: "About your booking",
		Body:  customerBody,
		Data:  map[string]string{"job_id": job.ID},
	})
}

// Notification delivery is best-effort; losing a message never corrupts
// workflow state.
func (s *Service) send(ctx context.Context, recipient string, msg notify.Message) {
	if s.Notify == nil {
		return
	}
	if err := s.Notify.Send(ctx, recipient, msg); err != nil && s.Logger != nil {
		s.Logger.Warn("notification failed", "recipient", recipient, "kind", msg.Kind, "error", err)
	}
}
