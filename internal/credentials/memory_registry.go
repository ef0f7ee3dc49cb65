package credentials

import (
	"context"
	"sync"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

// MemoryRegistry is an in-process credential registry for local runs and
// tests. Production reads the certification subsystem instead.
type MemoryRegistry struct {
	mu      sync.RWMutex
	records map[string][]models.CredentialRecord
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{records: make(map[string][]models.CredentialRecord)}
}

func (m *MemoryRegistry) Add(rec models.CredentialRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ProID] = append(m.records[rec.ProID], rec)
}

func (m *MemoryRegistry) RecordsFor(ctx context.Context, proID string) ([]models.CredentialRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.records[proID]
	out := make([]models.CredentialRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// StaticAccounts resolves account segments from a fixed map; missing ids
// resolve to consumer.
type StaticAccounts map[string]models.AccountType

func (s StaticAccounts) AccountType(ctx context.Context, accountID string) (models.AccountType, error) {
	if at, ok := s[accountID]; ok {
		return at, nil
	}
	return models.AccountConsumer, nil
}
