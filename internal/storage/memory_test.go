package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

func TestMemoryJobLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	job := &models.Job{ID: "job-1", CustomerID: "cust-1", Status: models.JobOpen}
	require.NoError(t, store.CreateJob(ctx, job))

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "cust-1", got.CustomerID)

	// mutating the returned copy never leaks into the store
	got.CustomerID = "mutated"
	again, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "cust-1", again.CustomerID)

	require.NoError(t, store.UpdateJobStatus(ctx, "job-1", models.JobCancelled))
	got, err = store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobCancelled, got.Status)

	_, err = store.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.UpdateJobStatus(ctx, "missing", models.JobOpen), ErrNotFound)
}

func TestMemoryAssignJobCAS(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, &models.Job{ID: "job-1", Status: models.JobOpen}))

	require.NoError(t, store.AssignJob(ctx, "job-1", "pro-1"))
	assert.ErrorIs(t, store.AssignJob(ctx, "job-1", "pro-2"), ErrAssignConflict)

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "pro-1", job.AssignedProID)
	assert.Equal(t, models.JobAssigned, job.Status)

	assert.ErrorIs(t, store.AssignJob(ctx, "missing", "pro-1"), ErrNotFound)
}

func TestMemoryUnassignJob(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, &models.Job{ID: "job-1", Status: models.JobOpen}))
	require.NoError(t, store.AssignJob(ctx, "job-1", "pro-1"))

	require.NoError(t, store.UnassignJob(ctx, "job-1"))
	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobOpen, job.Status)
	assert.Empty(t, job.AssignedProID)

	// terminal jobs are left untouched
	require.NoError(t, store.AssignJob(ctx, "job-1", "pro-2"))
	require.NoError(t, store.UpdateJobStatus(ctx, "job-1", models.JobCompleted))
	require.NoError(t, store.UnassignJob(ctx, "job-1"))
	job, err = store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "pro-2", job.AssignedProID)
}

func TestMemoryListOpenJobs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, &models.Job{ID: "open", Status: models.JobOpen}))
	require.NoError(t, store.CreateJob(ctx, &models.Job{ID: "done", Status: models.JobCompleted}))

	open, err := store.ListOpenJobs(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "open", open[0].ID)
}

func TestMemoryListJobsForProOnDate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateJob(ctx, &models.Job{ID: "mine", AssignedProID: "pro-1", Status: models.JobAssigned, ScheduledFor: day}))
	require.NoError(t, store.CreateJob(ctx, &models.Job{ID: "other-pro", AssignedProID: "pro-2", Status: models.JobAssigned, ScheduledFor: day}))
	require.NoError(t, store.CreateJob(ctx, &models.Job{ID: "other-day", AssignedProID: "pro-1", Status: models.JobAssigned, ScheduledFor: day.AddDate(0, 0, 1)}))
	require.NoError(t, store.CreateJob(ctx, &models.Job{ID: "cancelled", AssignedProID: "pro-1", Status: models.JobCancelled, ScheduledFor: day}))

	jobs, err := store.ListJobsForProOnDate(ctx, "pro-1", "2026-03-01")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "mine", jobs[0].ID)
}

func TestMemoryResolveApprovalTerminalOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveApproval(ctx, &models.ApprovalRequest{ID: "ap-1", JobID: "job-1", Status: models.ApprovalPending, Deadline: now.Add(time.Hour)}))

	got, err := store.ResolveApproval(ctx, "ap-1", models.ApprovalApproved, now)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, got.Status)
	require.NotNil(t, got.RespondedAt)
	assert.Equal(t, now, *got.RespondedAt)

	_, err = store.ResolveApproval(ctx, "ap-1", models.ApprovalDeclined, now)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	_, err = store.ResolveApproval(ctx, "missing", models.ApprovalApproved, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryListExpiredPending(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveApproval(ctx, &models.ApprovalRequest{ID: "overdue", Status: models.ApprovalPending, Deadline: now.Add(-time.Minute)}))
	require.NoError(t, store.SaveApproval(ctx, &models.ApprovalRequest{ID: "fresh", Status: models.ApprovalPending, Deadline: now.Add(time.Minute)}))
	require.NoError(t, store.SaveApproval(ctx, &models.ApprovalRequest{ID: "resolved", Status: models.ApprovalDeclined, Deadline: now.Add(-time.Minute)}))

	got, err := store.ListExpiredPending(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "overdue", got[0].ID)
}

func TestMemoryListPendingForJob(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SaveApproval(ctx, &models.ApprovalRequest{ID: "a", JobID: "job-1", Status: models.ApprovalPending}))
	require.NoError(t, store.SaveApproval(ctx, &models.ApprovalRequest{ID: "b", JobID: "job-1", Status: models.ApprovalApproved}))
	require.NoError(t, store.SaveApproval(ctx, &models.ApprovalRequest{ID: "c", JobID: "job-2", Status: models.ApprovalPending}))

	got, err := store.ListPendingForJob(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestMemorySaveVerification(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	rec := &models.VerificationRecord{ID: "ver-1", JobID: "job-1", Decision: models.DecisionAutoApproved}
	assert.NoError(t, store.SaveVerification(ctx, rec))
}
