package matcher

import (
	"context"
	"log/slog"
	"sort"

	"github.com/alanoney1-alt/UpTend-sub012/internal/credentials"
	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
	"github.com/alanoney1-alt/UpTend-sub012/internal/observability"
	"github.com/alanoney1-alt/UpTend-sub012/internal/scoring"
)

// DefaultTopN bounds the ranked list returned to callers.
const DefaultTopN = 10

// TemplateRationale is the deterministic fallback used whenever the
// narrative collaborator is unavailable or fails.
const TemplateRationale = "Ranked by composite score: distance, rating, experience, specialization"

// Narrator produces an optional human-readable explanation of a ranking.
// Best-effort: an error never blocks the ranking result.
type Narrator interface {
	Narrate(ctx context.Context, job models.Job, ranked []models.RankedCandidate) (string, error)
}

// Service ranks a candidate pool for a job: gate, score, stable sort,
// truncate. The fallback-to-template policy for the narrator lives here
// and nowhere else.
type Service struct {
	Gate     *credentials.Gate
	Narrator Narrator
	Logger   *slog.Logger
	TopN     int
}

// Rank produces the ordered eligible candidate list for a job. An empty
// result is a valid "no matches" answer; callers decide whether that is an
// error.
func (s *Service) Rank(ctx context.Context, job models.Job, pool []models.ProCandidate) (models.MatchResult, error) {
	topN := s.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	ids := make([]string, len(pool))
	byID := make(map[string]models.ProCandidate, len(pool))
	for i, p := range pool {
		ids[i] = p.ID
		byID[p.ID] = p
	}
	eligibleIDs, err := s.Gate.FilterEligible(ctx, ids, job.ServiceType, job.AccountType)
	if err != nil {
		return models.MatchResult{}, err
	}

	ranked := make([]models.RankedCandidate, 0, len(eligibleIDs))
	for _, id := range eligibleIDs {
		pro := byID[id]
		b := scoring.ScoreBreakdown(job, pro)
		ranked = append(ranked, models.RankedCandidate{
			Pro:           pro,
			Score:         b.Total,
			DistanceMiles: b.DistanceMiles,
		})
	}

	// Stable on ties so reranking the same pool reproduces the ordering.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	result := models.MatchResult{
		JobID:      job.ID,
		Candidates: ranked,
		Rationale:  s.rationale(ctx, job, ranked),
	}
	observability.MatchesTotal.Inc()
	return result, nil
}

func (s *Service) rationale(ctx context.Context, job models.Job, ranked []models.RankedCandidate) string {
	if s.Narrator == nil || len(ranked) == 0 {
		return TemplateRationale
	}
	text, err := s.Narrator.Narrate(ctx, job, ranked)
	if err != nil || text == "" {
		if err != nil && s.Logger != nil {
			s.Logger.Warn("narrative generator unavailable, using template", "job_id", job.ID, "error", err)
		}
		observability.NarrativeFallbacksTotal.Inc()
		return TemplateRationale
	}
	return text
}
