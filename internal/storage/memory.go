package storage

import (
	"context"
	"sync"
	"time"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

// MemoryStore is the in-process Store used for local runs and tests. The
// mutex gives AssignJob and ResolveApproval the same all-or-nothing
// semantics the postgres store gets from conditional UPDATEs.
type MemoryStore struct {
	mu            sync.RWMutex
	jobs          map[string]*models.Job
	verifications map[string]*models.VerificationRecord
	approvals     map[string]*models.ApprovalRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:          make(map[string]*models.Job),
		verifications: make(map[string]*models.VerificationRecord),
		approvals:     make(map[string]*models.ApprovalRequest),
	}
}

func (m *MemoryStore) CreateJob(ctx context.Context, j *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *MemoryStore) GetJob(ctx context.Context, id string) (*models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *MemoryStore) UpdateJobStatus(ctx context.Context, id string, status models.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Status = status
	j.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) ListOpenJobs(ctx context.Context) ([]models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Job
	for _, j := range m.jobs {
		if j.Status == models.JobOpen {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListJobsForProOnDate(ctx context.Context, proID, date string) ([]models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Job
	for _, j := range m.jobs {
		if j.AssignedProID == proID && j.ScheduledFor.Format("2006-01-02") == date && !j.Status.Terminal() {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *MemoryStore) AssignJob(ctx context.Context, jobID, proID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if j.AssignedProID != "" {
		return ErrAssignConflict
	}
	j.AssignedProID = proID
	j.Status = models.JobAssigned
	j.UpdatedAt = time.Now()
	return nil
}

// UnassignJob releases the pro and returns the job to the open pool.
// No-op on terminal jobs.
func (m *MemoryStore) UnassignJob(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if j.Status.Terminal() {
		return nil
	}
	j.AssignedProID = ""
	j.Status = models.JobOpen
	j.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) SaveVerification(ctx context.Context, v *models.VerificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.verifications[v.ID] = &cp
	return nil
}

func (m *MemoryStore) SaveApproval(ctx context.Context, a *models.ApprovalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.approvals[a.ID] = &cp
	return nil
}

func (m *MemoryStore) GetApproval(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.approvals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) ResolveApproval(ctx context.Context, id string, status models.ApprovalStatus, respondedAt time.Time) (*models.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.approvals[id]
	if !ok {
		return nil, ErrNotFound
	}
	if a.Status.Terminal() {
		return nil, ErrAlreadyResolved
	}
	a.Status = status
	at := respondedAt
	a.RespondedAt = &at
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) ListExpiredPending(ctx context.Context, now time.Time) ([]models.ApprovalRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ApprovalRequest
	for _, a := range m.approvals {
		if a.Status == models.ApprovalPending && a.Deadline.Before(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListPendingForJob(ctx context.Context, jobID string) ([]models.ApprovalRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ApprovalRequest
	for _, a := range m.approvals {
		if a.JobID == jobID && a.Status == models.ApprovalPending {
			out = append(out, *a)
		}
	}
	return out, nil
}
