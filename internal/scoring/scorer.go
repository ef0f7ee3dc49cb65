package scoring

import (
	"math"

	"github.com/alanoney1-alt/UpTend-sub012/internal/geo"
	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

// Component weights. They must sum to 1 so the composite stays in [0,100].
const (
	distanceWeight       = 0.3
	ratingWeight         = 0.3
	experienceWeight     = 0.2
	specializationWeight = 0.2
)

// unknownDistanceMiles is the sentinel for a pro with no reported location:
// effectively unreachable, scoring 0 on the distance component.
const unknownDistanceMiles = 999

// experienceSaturation caps the experience component at 50 completed jobs.
const experienceSaturation = 50

// Breakdown carries the per-factor scores alongside the composite so
// operators can see why a pro ranked where they did.
type Breakdown struct {
	Total          int     `json:"total"`
	Distance       float64 `json:"distance"`
	Rating         float64 `json:"rating"`
	Experience     float64 `json:"experience"`
	Specialization float64 `json:"specialization"`
	DistanceMiles  float64 `json:"distance_miles"`
}

// Score computes the composite desirability of a (job, pro) pair as an
// integer in [0,100]. Deterministic: no randomness, no clock reads.
func Score(job models.Job, pro models.ProCandidate) int {
	return ScoreBreakdown(job, pro).Total
}

// ScoreBreakdown is Score with the factor detail retained.
func ScoreBreakdown(job models.Job, pro models.ProCandidate) Breakdown {
	b := Breakdown{
		DistanceMiles:  DistanceMiles(job, pro),
		Rating:         ratingScore(pro.Rating),
		Experience:     experienceScore(pro.CompletedJobs),
		Specialization: specializationScore(job.ServiceType, pro),
	}
	b.Distance = distanceScore(b.DistanceMiles)
	composite := b.Distance*distanceWeight +
		b.Rating*ratingWeight +
		b.Experience*experienceWeight +
		b.Specialization*specializationWeight
	b.Total = int(math.Round(composite))
	return b
}

// DistanceMiles is the great-circle distance from the job pickup to the
// pro's last-known position, or the unreachable sentinel when unknown.
func DistanceMiles(job models.Job, pro models.ProCandidate) float64 {
	if pro.Location == nil {
		return unknownDistanceMiles
	}
	return geo.MilesBetween(job.Pickup, *pro.Location)
}

// Step function: close pros dominate, anything past 50 miles scores zero.
func distanceScore(miles float64) float64 {
	switch {
	case miles <= 5:
		return 100
	case miles <= 15:
		return 80
	case miles <= 30:
		return 50
	case miles <= 50:
		return 20
	default:
		return 0
	}
}

func ratingScore(rating float64) float64 {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return rating * 20
}

func experienceScore(completed int) float64 {
	if completed < 0 {
		completed = 0
	}
	if completed >= experienceSaturation {
		return 100
	}
	return float64(completed * 2)
}

// A non-specialist is never zeroed out; many jobs are general-purpose.
func specializationScore(st models.ServiceType, pro models.ProCandidate) float64 {
	if pro.Specializes(st) {
		return 100
	}
	return 30
}
