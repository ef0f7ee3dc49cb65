package assign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanoney1-alt/UpTend-sub012/internal/directory"
	"github.com/alanoney1-alt/UpTend-sub012/internal/matcher"
	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
	"github.com/alanoney1-alt/UpTend-sub012/internal/observability"
	"github.com/alanoney1-alt/UpTend-sub012/internal/storage"
)

var (
	// ErrJobNotFound: the job id does not exist.
	ErrJobNotFound = errors.New("assign: job not found")
	// ErrAlreadyAssigned: the job already carried a pro before we ranked.
	ErrAlreadyAssigned = errors.New("assign: job already assigned")
	// ErrConflict: another caller committed an assignment between our read
	// and our write. Retryable against the now-current job state.
	ErrConflict = errors.New("assign: lost assignment race")
	// ErrNoWorkers: no available pros at all. Remedy: widen geography.
	ErrNoWorkers = errors.New("assign: no available workers")
	// ErrNoEligibleWorkers: pros exist but none pass the certification
	// gate. Remedy: wait for certification.
	ErrNoEligibleWorkers = errors.New("assign: no eligible workers")
)

// Assignment is the committed outcome of one auto-assign call.
type Assignment struct {
	JobID string `json:"job_id"`
	ProID string `json:"pro_id"`
	Score int    `json:"score"`
}

// Assigner runs gate → rank → atomic commit for a job. Everything before
// the commit is recomputable and discarded on a lost race.
type Assigner struct {
	Directory directory.Directory
	Matcher   *matcher.Service
	Jobs      storage.JobStore
	Logger    *slog.Logger
}

// AutoAssign commits the top eligible candidate to the job, or reports a
// typed error describing why no commit happened.
func (a *Assigner) AutoAssign(ctx context.Context, jobID string) (Assignment, error) {
	if jobID == "" {
		return Assignment{}, fmt.Errorf("assign: %w", errEmptyJobID)
	}
	job, err := a.Jobs.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Assignment{}, ErrJobNotFound
		}
		return Assignment{}, err
	}
	if job.AssignedProID != "" {
		return Assignment{}, ErrAlreadyAssigned
	}

	pool, err := a.Directory.AvailablePros(ctx)
	if err != nil {
		return Assignment{}, err
	}
	if len(pool) == 0 {
		return Assignment{}, ErrNoWorkers
	}

	result, err := a.Matcher.Rank(ctx, *job, pool)
	if err != nil {
		return Assignment{}, err
	}
	if len(result.Candidates) == 0 {
		return Assignment{}, ErrNoEligibleWorkers
	}

	best := result.Candidates[0]
	if err := a.Jobs.AssignJob(ctx, jobID, best.Pro.ID); err != nil {
		if errors.Is(err, storage.ErrAssignConflict) {
			observability.AssignConflictsTotal.Inc()
			return Assignment{}, ErrConflict
		}
		if errors.Is(err, storage.ErrNotFound) {
			return Assignment{}, ErrJobNotFound
		}
		return Assignment{}, err
	}

	observability.AssignmentsTotal.Inc()
	if a.Logger != nil {
		a.Logger.Info("job auto-assigned", "job_id", jobID, "pro_id", best.Pro.ID, "score", best.Score)
	}
	return Assignment{JobID: jobID, ProID: best.Pro.ID, Score: best.Score}, nil
}

var errEmptyJobID = errors.New("empty job id")
