package routing

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
	"github.com/alanoney1-alt/UpTend-sub012/internal/storage"
)

func jobAt(id string, lat, lon float64) models.Job {
	return models.Job{ID: id, Pickup: models.Coord{Lat: lat, Lon: lon}}
}

func stopIDs(plan models.RoutePlan) []string {
	out := make([]string, len(plan.Stops))
	for i, s := range plan.Stops {
		out[i] = s.Job.ID
	}
	return out
}

func TestOptimizeEmpty(t *testing.T) {
	plan := Optimize("pro-1", "2026-03-01", nil)
	assert.Empty(t, plan.Stops)
	assert.Equal(t, float64(0), plan.TotalMiles)
}

func TestOptimizeSingleJob(t *testing.T) {
	plan := Optimize("pro-1", "2026-03-01", []models.Job{jobAt("only", 51.5, -0.1)})
	require.Len(t, plan.Stops, 1)
	assert.Equal(t, float64(0), plan.Stops[0].LegMiles)
	assert.Equal(t, 1, plan.Stops[0].OrderInRoute)
	assert.Equal(t, float64(0), plan.TotalMiles)
}

func TestOptimizeIsPermutation(t *testing.T) {
	jobs := []models.Job{
		jobAt("a", 51.50, -0.10),
		jobAt("b", 51.70, -0.10),
		jobAt("c", 51.55, -0.10),
		jobAt("d", 51.60, -0.10),
	}
	plan := Optimize("pro-1", "2026-03-01", jobs)
	require.Len(t, plan.Stops, len(jobs))

	got := stopIDs(plan)
	sorted := append([]string(nil), got...)
	sort.Strings(sorted)
	assert.Equal(t, []string{"a", "b", "c", "d"}, sorted)

	for i, s := range plan.Stops {
		assert.Equal(t, i+1, s.OrderInRoute)
	}
}

func TestOptimizeSeedsFromFirstJob(t *testing.T) {
	// "far" comes first in input order, so it seeds the route even though
	// it is the outlier
	jobs := []models.Job{
		jobAt("far", 53.48, -2.24),
		jobAt("a", 51.50, -0.10),
		jobAt("b", 51.51, -0.10),
	}
	plan := Optimize("pro-1", "2026-03-01", jobs)
	assert.Equal(t, "far", plan.Stops[0].Job.ID)
}

func TestOptimizeGreedyNearestNeighbor(t *testing.T) {
	// along a line: starting at the south end, greedy must walk north in
	// order rather than the zig-zag of the input
	jobs := []models.Job{
		jobAt("south", 51.50, -0.10),
		jobAt("north", 51.80, -0.10),
		jobAt("mid", 51.65, -0.10),
		jobAt("near", 51.55, -0.10),
	}
	plan := Optimize("pro-1", "2026-03-01", jobs)
	assert.Equal(t, []string{"south", "near", "mid", "north"}, stopIDs(plan))
	assert.Less(t, plan.TotalMiles, TotalMilesInOrder(jobs))
}

func TestOptimizeAdvancesThroughDestination(t *testing.T) {
	// a removals job ends at its destination; the next leg must be measured
	// from there, not from the pickup
	dest := models.Coord{Lat: 51.80, Lon: -0.10}
	jobs := []models.Job{
		{ID: "removal", Pickup: models.Coord{Lat: 51.50, Lon: -0.10}, Destination: &dest},
		jobAt("near-pickup", 51.51, -0.10),
		jobAt("near-dest", 51.79, -0.10),
	}
	plan := Optimize("pro-1", "2026-03-01", jobs)
	assert.Equal(t, []string{"removal", "near-dest", "near-pickup"}, stopIDs(plan))
}

func TestOptimizeDeterministic(t *testing.T) {
	jobs := []models.Job{
		jobAt("a", 51.50, -0.10),
		jobAt("b", 51.70, -0.30),
		jobAt("c", 51.55, -0.20),
	}
	first := Optimize("pro-1", "2026-03-01", jobs)
	for i := 0; i < 10; i++ {
		again := Optimize("pro-1", "2026-03-01", jobs)
		assert.Equal(t, stopIDs(first), stopIDs(again))
		assert.Equal(t, first.TotalMiles, again.TotalMiles)
	}
}

func TestPlanDay(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	day := "2026-03-01"

	scheduled, err := time.Parse("2006-01-02", day)
	require.NoError(t, err)

	for _, j := range []models.Job{
		jobAt("a", 51.50, -0.10),
		jobAt("b", 51.70, -0.10),
	} {
		j.Status = models.JobAssigned
		j.AssignedProID = "pro-1"
		j.ScheduledFor = scheduled
		require.NoError(t, store.CreateJob(ctx, &j))
	}

	planner := &Planner{Jobs: store}
	plan, err := planner.PlanDay(ctx, "pro-1", day)
	require.NoError(t, err)
	assert.Len(t, plan.Stops, 2)
	assert.Equal(t, "pro-1", plan.ProID)
	assert.Equal(t, day, plan.Date)
}
