package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
	"github.com/alanoney1-alt/UpTend-sub012/internal/observability"
	"github.com/alanoney1-alt/UpTend-sub012/internal/storage"
)

// DefaultAutoApprovePct is the accuracy-guarantee threshold: increases at
// or below it need no customer consent.
const DefaultAutoApprovePct = 0.10

// DefaultApprovalWindow is how long the customer has to respond to a
// price-increase consent request.
const DefaultApprovalWindow = 30 * time.Minute

// ErrInvalidQuote rejects verifications against a non-positive original
// price, which would make the percentage delta meaningless.
var ErrInvalidQuote = errors.New("pricing: original quote price must be positive")

// ApprovalOpener creates the consent request when a verification requires
// one. Implemented by the approval workflow service.
type ApprovalOpener interface {
	Open(ctx context.Context, rec models.VerificationRecord, customerID string) (models.ApprovalRequest, error)
}

// Verifier recomputes a job's price from on-site-corrected inputs and
// classifies the delta. The external pricing call is best-effort: if the
// service type is unrecognized the original price stands unchanged.
type Verifier struct {
	Engine         Engine
	Verifications  storage.VerificationStore
	Approvals      ApprovalOpener
	Logger         *slog.Logger
	AutoApprovePct float64
	ApprovalWindow time.Duration
	Now            func() time.Time
}

func NewVerifier(engine Engine, store storage.VerificationStore, approvals ApprovalOpener, logger *slog.Logger) *Verifier {
	return &Verifier{
		Engine:         engine,
		Verifications:  store,
		Approvals:      approvals,
		Logger:         logger,
		AutoApprovePct: DefaultAutoApprovePct,
		ApprovalWindow: DefaultApprovalWindow,
		Now:            time.Now,
	}
}

// Verify produces exactly one VerificationRecord for an on-site inspection
// and, when consent is required, opens the approval request. The worker
// must not begin billable work on a requires_approval outcome until the
// request resolves to approved.
func (v *Verifier) Verify(ctx context.Context, job models.Job, quote models.Quote, verified models.PricingInputs) (models.VerificationRecord, error) {
	if quote.Price <= 0 {
		return models.VerificationRecord{}, ErrInvalidQuote
	}

	// The pricing call must never block the verification decision: any
	// failure keeps the quoted price unchanged.
	verifiedPrice, err := v.Engine.Recompute(ctx, quote.ServiceType, verified)
	if err != nil {
		if v.Logger != nil {
			v.Logger.Warn("pricing recompute unavailable, keeping quoted price",
				"job_id", job.ID, "service_type", quote.ServiceType, "error", err)
		}
		verifiedPrice = quote.Price
	}

	now := v.Now()
	delta := verifiedPrice - quote.Price
	pct := math.Abs(delta) / quote.Price

	rec := models.VerificationRecord{
		ID:            uuid.NewString(),
		JobID:         job.ID,
		ProID:         job.AssignedProID,
		OriginalPrice: quote.Price,
		VerifiedPrice: verifiedPrice,
		Delta:         delta,
		PctDelta:      pct,
		CreatedAt:     now,
	}

	threshold := v.AutoApprovePct
	if threshold <= 0 {
		threshold = DefaultAutoApprovePct
	}
	window := v.ApprovalWindow
	if window <= 0 {
		window = DefaultApprovalWindow
	}

	switch {
	case delta < 0:
		rec.Decision = models.DecisionAutoApproved
		rec.Reason = fmt.Sprintf("price decreased by $%.2f (%.1f%%); decreases never require consent", -delta, pct*100)
	case pct <= threshold:
		rec.Decision = models.DecisionAutoApproved
		rec.Reason = fmt.Sprintf("price increased %.1f%%, within the %.0f%% accuracy guarantee", pct*100, threshold*100)
	default:
		rec.Decision = models.DecisionRequiresApproval
		rec.Reason = fmt.Sprintf("price increased %.1f%%, above the %.0f%% accuracy guarantee; customer consent required", pct*100, threshold*100)
		deadline := now.Add(window)
		rec.ApprovalDeadline = &deadline
	}

	if err := v.Verifications.SaveVerification(ctx, &rec); err != nil {
		return models.VerificationRecord{}, err
	}
	observability.VerificationsTotal.WithLabelValues(string(rec.Decision)).Inc()

	if rec.Decision == models.DecisionRequiresApproval && v.Approvals != nil {
		if _, err := v.Approvals.Open(ctx, rec, job.CustomerID); err != nil {
			return models.VerificationRecord{}, err
		}
	}
	return rec, nil
}
