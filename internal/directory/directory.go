package directory

import (
	"context"
	"sync"

	"github.com/alanoney1-alt/UpTend-sub012/internal/geo"
	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
	"github.com/alanoney1-alt/UpTend-sub012/internal/storage"
)

// Directory exposes pro snapshots to the matcher and assigner. Backed by
// the external worker directory in production; this package holds the
// in-memory implementation used for local runs and tests.
type Directory interface {
	AvailablePros(ctx context.Context) ([]models.ProCandidate, error)
	Pro(ctx context.Context, id string) (*models.ProCandidate, error)
}

// Memory keeps pro profiles in-process and overlays live coordinates from
// the location index when a pro has reported one.
type Memory struct {
	mu        sync.RWMutex
	pros      map[string]models.ProCandidate
	order     []string
	locations geo.Locations
}

func NewMemory(locations geo.Locations) *Memory {
	return &Memory{pros: make(map[string]models.ProCandidate), locations: locations}
}

// Upsert registers or refreshes a pro profile. Insertion order is kept so
// pool iteration (and therefore ranking tie-breaks) stays reproducible.
func (m *Memory) Upsert(p models.ProCandidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.pros[p.ID]; !seen {
		m.order = append(m.order, p.ID)
	}
	m.pros[p.ID] = p
}

func (m *Memory) AvailablePros(ctx context.Context) ([]models.ProCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ProCandidate, 0, len(m.order))
	for _, id := range m.order {
		p := m.pros[id]
		if !p.Available {
			continue
		}
		out = append(out, m.withLiveLocation(p))
	}
	return out, nil
}

func (m *Memory) Pro(ctx context.Context, id string) (*models.ProCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pros[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	p = m.withLiveLocation(p)
	return &p, nil
}

func (m *Memory) withLiveLocation(p models.ProCandidate) models.ProCandidate {
	if m.locations == nil || p.Location == nil {
		return p
	}
	// Nearby with a tiny radius around the stored point refreshes staleness
	// cheaply; a reported position always wins over the registered one.
	for _, loc := range m.locations.Nearby(p.Location.Lat, p.Location.Lon, 100, 50) {
		if loc.ProID == p.ID {
			c := loc.Coord
			p.Location = &c
			p.Updated = loc.Updated
			break
		}
	}
	return p
}
