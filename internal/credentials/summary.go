package credentials

import (
	"context"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

// Summary splits a pro's credential records by effective state and reports
// how many currently-open jobs their gaps hide from them.
type Summary struct {
	ProID          string                    `json:"pro_id"`
	Active         []models.CredentialRecord `json:"active"`
	Expired        []models.CredentialRecord `json:"expired"`
	InProgress     []models.CredentialRecord `json:"in_progress"`
	HiddenJobCount int                       `json:"hidden_job_count"`
}

// HiddenJob names one job a pro cannot see and the credentials they lack.
type HiddenJob struct {
	JobID        string   `json:"job_id"`
	MissingSlugs []string `json:"missing_slugs"`
}

// Visibility is the gate-filtered view of the open job board for one pro.
type Visibility struct {
	Visible []models.Job `json:"visible"`
	Hidden  []HiddenJob  `json:"hidden"`
}

// VisibleJobs partitions openJobs into those the pro's credentials permit
// and those hidden, with the missing slugs per hidden job.
func (g *Gate) VisibleJobs(ctx context.Context, proID string, openJobs []models.Job) (Visibility, error) {
	vis := Visibility{Visible: make([]models.Job, 0, len(openJobs))}
	for _, job := range openJobs {
		missing, err := g.MissingFor(ctx, proID, job.ServiceType, job.AccountType)
		if err != nil {
			return Visibility{}, err
		}
		if len(missing) == 0 {
			vis.Visible = append(vis.Visible, job)
			continue
		}
		vis.Hidden = append(vis.Hidden, HiddenJob{JobID: job.ID, MissingSlugs: missing})
	}
	return vis, nil
}

// Summarize builds the credential summary for one pro against the current
// open job board.
func (g *Gate) Summarize(ctx context.Context, proID string, openJobs []models.Job) (Summary, error) {
	records, err := g.Registry.RecordsFor(ctx, proID)
	if err != nil {
		return Summary{}, err
	}
	now := g.Now()
	s := Summary{ProID: proID}
	for _, rec := range records {
		switch {
		case rec.Status == models.CredentialInProgress:
			s.InProgress = append(s.InProgress, rec)
		case rec.Active(now):
			s.Active = append(s.Active, rec)
		default:
			s.Expired = append(s.Expired, rec)
		}
	}
	vis, err := g.VisibleJobs(ctx, proID, openJobs)
	if err != nil {
		return Summary{}, err
	}
	s.HiddenJobCount = len(vis.Hidden)
	return s, nil
}
