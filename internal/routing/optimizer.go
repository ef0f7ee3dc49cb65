package routing

import (
	"context"

	"github.com/alanoney1-alt/UpTend-sub012/internal/geo"
	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
	"github.com/alanoney1-alt/UpTend-sub012/internal/storage"
)

// Optimize sequences a day's jobs with greedy nearest-neighbor: seed at the
// first job's pickup (input order is stable, so the seed is stable), then
// repeatedly append the unvisited job with the closest pickup, advancing
// the current position to the appended job's destination if it has one,
// else its pickup.
//
// Deliberately a heuristic. Same-day service days are small (usually under
// ten stops) and downstream ETA estimates only need a reasonable ordering,
// so this must not be swapped for an exact solver.
func Optimize(proID, date string, jobs []models.Job) models.RoutePlan {
	plan := models.RoutePlan{ProID: proID, Date: date}
	if len(jobs) == 0 {
		return plan
	}

	remaining := make([]models.Job, len(jobs))
	copy(remaining, jobs)

	first := remaining[0]
	remaining = remaining[1:]
	plan.Stops = append(plan.Stops, models.RouteStop{Job: first, LegMiles: 0, OrderInRoute: 1})
	pos := endPosition(first)

	for len(remaining) > 0 {
		bestIdx := 0
		bestDist := geo.MilesBetween(pos, remaining[0].Pickup)
		for i := 1; i < len(remaining); i++ {
			if d := geo.MilesBetween(pos, remaining[i].Pickup); d < bestDist {
				bestIdx, bestDist = i, d
			}
		}
		next := remaining[bestIdx]
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		plan.Stops = append(plan.Stops, models.RouteStop{
			Job:          next,
			LegMiles:     bestDist,
			OrderInRoute: len(plan.Stops) + 1,
		})
		plan.TotalMiles += bestDist
		pos = endPosition(next)
	}
	return plan
}

// TotalMilesInOrder measures a job list travelled as given, for comparing
// against the optimized plan.
func TotalMilesInOrder(jobs []models.Job) float64 {
	var total float64
	for i := 1; i < len(jobs); i++ {
		total += geo.MilesBetween(endPosition(jobs[i-1]), jobs[i].Pickup)
	}
	return total
}

func endPosition(j models.Job) models.Coord {
	if j.Destination != nil {
		return *j.Destination
	}
	return j.Pickup
}

// Planner loads a pro's day from storage and optimizes it.
type Planner struct {
	Jobs storage.JobStore
}

func (p *Planner) PlanDay(ctx context.Context, proID, date string) (models.RoutePlan, error) {
	jobs, err := p.Jobs.ListJobsForProOnDate(ctx, proID, date)
	if err != nil {
		return models.RoutePlan{}, err
	}
	return Optimize(proID, date, jobs), nil
}
