package credentials

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

// Registry is the external credential-issuance subsystem, read-only here.
type Registry interface {
	// RecordsFor returns every credential record a pro holds, any status.
	RecordsFor(ctx context.Context, proID string) ([]models.CredentialRecord, error)
}

// AccountLookup resolves a requesting account's segment. It is an external
// call and allowed to fail; the gate degrades to job-type-only requirements
// rather than blocking all dispatch.
type AccountLookup interface {
	AccountType(ctx context.Context, accountID string) (models.AccountType, error)
}

// Gate filters pros to those holding every required active credential.
// No partial credit: missing any required slug excludes the pro.
type Gate struct {
	Requirements Requirements
	Registry     Registry
	Accounts     AccountLookup
	Logger       *slog.Logger
	Now          func() time.Time
}

func NewGate(req Requirements, reg Registry, accounts AccountLookup, logger *slog.Logger) *Gate {
	return &Gate{Requirements: req, Registry: reg, Accounts: accounts, Logger: logger, Now: time.Now}
}

// RequiredCredentials is the union of requirements for a job type and
// account type.
func (g *Gate) RequiredCredentials(st models.ServiceType, at models.AccountType) []string {
	return g.Requirements.RequiredFor(st, at)
}

// ResolveAccountType looks up the account segment for an account id,
// degrading to consumer (no extra requirements) when the lookup fails.
func (g *Gate) ResolveAccountType(ctx context.Context, accountID string) models.AccountType {
	if accountID == "" || g.Accounts == nil {
		return models.AccountConsumer
	}
	at, err := g.Accounts.AccountType(ctx, accountID)
	if err != nil {
		if g.Logger != nil {
			g.Logger.Warn("account lookup failed, gating on job type only", "account_id", accountID, "error", err)
		}
		return models.AccountConsumer
	}
	return at
}

// IsEligible reports whether the pro holds every required active credential.
func (g *Gate) IsEligible(ctx context.Context, proID string, st models.ServiceType, at models.AccountType) (bool, error) {
	required := g.RequiredCredentials(st, at)
	if len(required) == 0 {
		return true, nil
	}
	missing, err := g.missingFor(ctx, proID, required)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// FilterEligible returns the subset of proIDs passing the gate, preserving
// input order. Pros whose registry lookup fails are excluded.
func (g *Gate) FilterEligible(ctx context.Context, proIDs []string, st models.ServiceType, at models.AccountType) ([]string, error) {
	required := g.RequiredCredentials(st, at)
	if len(required) == 0 {
		out := make([]string, len(proIDs))
		copy(out, proIDs)
		return out, nil
	}
	out := make([]string, 0, len(proIDs))
	for _, id := range proIDs {
		missing, err := g.missingFor(ctx, id, required)
		if err != nil {
			if g.Logger != nil {
				g.Logger.Warn("credential lookup failed, excluding pro", "pro_id", id, "error", err)
			}
			continue
		}
		if len(missing) == 0 {
			out = append(out, id)
		}
	}
	return out, nil
}

// MissingFor returns the required slugs the pro does not actively hold.
func (g *Gate) MissingFor(ctx context.Context, proID string, st models.ServiceType, at models.AccountType) ([]string, error) {
	required := g.RequiredCredentials(st, at)
	if len(required) == 0 {
		return nil, nil
	}
	return g.missingFor(ctx, proID, required)
}

func (g *Gate) missingFor(ctx context.Context, proID string, required []string) ([]string, error) {
	records, err := g.Registry.RecordsFor(ctx, proID)
	if err != nil {
		return nil, err
	}
	now := g.Now()
	active := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.Active(now) {
			active[rec.Slug] = true
		}
	}
	var missing []string
	for _, slug := range required {
		if !active[slug] {
			missing = append(missing, slug)
		}
	}
	return missing, nil
}
