package assign

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanoney1-alt/UpTend-sub012/internal/credentials"
	"github.com/alanoney1-alt/UpTend-sub012/internal/directory"
	"github.com/alanoney1-alt/UpTend-sub012/internal/logging"
	"github.com/alanoney1-alt/UpTend-sub012/internal/matcher"
	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
	"github.com/alanoney1-alt/UpTend-sub012/internal/storage"
)

func assignerFixtures(t *testing.T, reg *credentials.MemoryRegistry) (*Assigner, *storage.MemoryStore, *directory.Memory) {
	t.Helper()
	store := storage.NewMemoryStore()
	pros := directory.NewMemory(nil)
	gate := credentials.NewGate(credentials.DefaultRequirements(), reg, credentials.StaticAccounts{}, logging.Discard())
	match := &matcher.Service{Gate: gate, Logger: logging.Discard()}
	return &Assigner{Directory: pros, Matcher: match, Jobs: store, Logger: logging.Discard()}, store, pros
}

func seedOpenJob(t *testing.T, store *storage.MemoryStore, id string) {
	t.Helper()
	require.NoError(t, store.CreateJob(context.Background(), &models.Job{
		ID:          id,
		CustomerID:  "cust-1",
		ServiceType: models.ServiceHomeCleaning,
		AccountType: models.AccountConsumer,
		Status:      models.JobOpen,
		Pickup:      models.Coord{Lat: 51.5072, Lon: -0.1276},
	}))
}

func availablePro(id string, rating float64) models.ProCandidate {
	return models.ProCandidate{
		ID:        id,
		Location:  &models.Coord{Lat: 51.51, Lon: -0.12},
		Rating:    rating,
		Available: true,
	}
}

func TestAutoAssignPicksTopCandidate(t *testing.T) {
	a, store, pros := assignerFixtures(t, credentials.NewMemoryRegistry())
	seedOpenJob(t, store, "job-1")
	pros.Upsert(availablePro("mediocre", 3.0))
	pros.Upsert(availablePro("great", 5.0))

	got, err := a.AutoAssign(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "great", got.ProID)

	job, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobAssigned, job.Status)
	assert.Equal(t, "great", job.AssignedProID)
}

func TestAutoAssignJobNotFound(t *testing.T) {
	a, _, _ := assignerFixtures(t, credentials.NewMemoryRegistry())
	_, err := a.AutoAssign(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestAutoAssignAlreadyAssigned(t *testing.T) {
	a, store, pros := assignerFixtures(t, credentials.NewMemoryRegistry())
	seedOpenJob(t, store, "job-1")
	pros.Upsert(availablePro("p", 4.0))

	_, err := a.AutoAssign(context.Background(), "job-1")
	require.NoError(t, err)

	_, err = a.AutoAssign(context.Background(), "job-1")
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
}

func TestAutoAssignNoWorkers(t *testing.T) {
	a, store, _ := assignerFixtures(t, credentials.NewMemoryRegistry())
	seedOpenJob(t, store, "job-1")

	_, err := a.AutoAssign(context.Background(), "job-1")
	assert.ErrorIs(t, err, ErrNoWorkers)
}

func TestAutoAssignNoEligibleWorkers(t *testing.T) {
	// pros exist but none hold the waste licence; the caller gets the
	// "wait for certification" error, not the "widen geography" one
	a, store, pros := assignerFixtures(t, credentials.NewMemoryRegistry())
	require.NoError(t, store.CreateJob(context.Background(), &models.Job{
		ID:          "job-1",
		ServiceType: models.ServiceWasteClearance,
		AccountType: models.AccountConsumer,
		Status:      models.JobOpen,
		Pickup:      models.Coord{Lat: 51.5072, Lon: -0.1276},
	}))
	pros.Upsert(availablePro("unlicensed", 5.0))

	_, err := a.AutoAssign(context.Background(), "job-1")
	assert.ErrorIs(t, err, ErrNoEligibleWorkers)
}

// raceStore wedges every AssignJob caller at the commit until all arrive,
// forcing the CAS to decide the winner.
type raceStore struct {
	*storage.MemoryStore
	gate *sync.WaitGroup
}

func (r *raceStore) AssignJob(ctx context.Context, jobID, proID string) error {
	r.gate.Done()
	r.gate.Wait()
	return r.MemoryStore.AssignJob(ctx, jobID, proID)
}

func TestAutoAssignConcurrentExactlyOneWins(t *testing.T) {
	a, store, pros := assignerFixtures(t, credentials.NewMemoryRegistry())
	seedOpenJob(t, store, "job-1")
	pros.Upsert(availablePro("p", 4.0))

	var gate sync.WaitGroup
	gate.Add(2)
	a.Jobs = &raceStore{MemoryStore: store, gate: &gate}

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := a.AutoAssign(context.Background(), "job-1")
			results <- err
		}()
	}

	var wins, conflicts int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	job, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "p", job.AssignedProID)
}

func TestAutoAssignEmptyID(t *testing.T) {
	a, _, _ := assignerFixtures(t, credentials.NewMemoryRegistry())
	_, err := a.AutoAssign(context.Background(), "")
	assert.Error(t, err)
}
