package payments

import (
	"context"
	"fmt"
	"os"
	"sync"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// StripeHolds places and releases manual-capture PaymentIntents for booked
// jobs. Capture is handled elsewhere in the platform; the dispatch core
// only ever holds funds at booking and releases them when a price change
// is declined or times out.
type StripeHolds struct {
	mu      sync.Mutex
	intents map[string]string // job id -> payment intent id
}

// NewStripeHolds initializes the stripe client with the STRIPE_API_KEY env var.
func NewStripeHolds() *StripeHolds {
	stripe.Key = os.Getenv("STRIPE_API_KEY")
	return &StripeHolds{intents: make(map[string]string)}
}

// Hold creates a PaymentIntent with capture_method=manual against the
// quoted amount and remembers it under the job id.
func (s *StripeHolds) Hold(ctx context.Context, jobID string, amountPence int64, currency, customerID string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountPence),
		Currency: stripe.String(currency),
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.intents[jobID] = pi.ID
	s.mu.Unlock()
	return pi.ID, nil
}

// Release cancels the hold for a job. Unknown jobs are an error so callers
// notice wiring gaps, not silent leaks of held funds.
func (s *StripeHolds) Release(ctx context.Context, jobID string) error {
	s.mu.Lock()
	id, ok := s.intents[jobID]
	if ok {
		delete(s.intents, jobID)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("payments: no hold recorded for job %s", jobID)
	}
	_, err := paymentintent.Cancel(id, nil)
	return err
}
