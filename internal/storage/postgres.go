package storage

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

// PostgresStore implements Store over lib/pq. The assignment and approval
// compare-and-sets are conditional UPDATEs checked via RowsAffected.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an existing handle; used by tests.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) CreateJob(ctx context.Context, j *models.Job) error {
	var destLat, destLon sql.NullFloat64
	if j.Destination != nil {
		destLat = sql.NullFloat64{Float64: j.Destination.Lat, Valid: true}
		destLon = sql.NullFloat64{Float64: j.Destination.Lon, Valid: true}
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO jobs(id, customer_id, account_id, account_type, service_type, pickup_lat, pickup_lon, dest_lat, dest_lon, status, scheduled_for, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		j.ID, j.CustomerID, j.AccountID, j.AccountType, j.ServiceType,
		j.Pickup.Lat, j.Pickup.Lon, destLat, destLon, j.Status, j.ScheduledFor, j.CreatedAt, j.UpdatedAt)
	return err
}

func (p *PostgresStore) GetJob(ctx context.Context, id string) (*models.Job, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, customer_id, account_id, account_type, service_type, pickup_lat, pickup_lon, dest_lat, dest_lon, status, COALESCE(assigned_pro_id,''), scheduled_for, created_at, updated_at
		 FROM jobs WHERE id=$1`, id)
	return scanJob(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var j models.Job
	var destLat, destLon sql.NullFloat64
	err := row.Scan(&j.ID, &j.CustomerID, &j.AccountID, &j.AccountType, &j.ServiceType,
		&j.Pickup.Lat, &j.Pickup.Lon, &destLat, &destLon, &j.Status, &j.AssignedProID,
		&j.ScheduledFor, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if destLat.Valid && destLon.Valid {
		j.Destination = &models.Coord{Lat: destLat.Float64, Lon: destLon.Float64}
	}
	return &j, nil
}

func (p *PostgresStore) UpdateJobStatus(ctx context.Context, id string, status models.JobStatus) error {
	res, err := p.db.ExecContext(ctx, `UPDATE jobs SET status=$1, updated_at=$2 WHERE id=$3`, status, time.Now(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) ListOpenJobs(ctx context.Context) ([]models.Job, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, customer_id, account_id, account_type, service_type, pickup_lat, pickup_lon, dest_lat, dest_lon, status, COALESCE(assigned_pro_id,''), scheduled_for, created_at, updated_at
		 FROM jobs WHERE status='open' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (p *PostgresStore) ListJobsForProOnDate(ctx context.Context, proID, date string) ([]models.Job, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, customer_id, account_id, account_type, service_type, pickup_lat, pickup_lon, dest_lat, dest_lon, status, COALESCE(assigned_pro_id,''), scheduled_for, created_at, updated_at
		 FROM jobs WHERE assigned_pro_id=$1 AND scheduled_for::date=$2::date AND status NOT IN ('completed','cancelled') ORDER BY created_at`,
		proID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func collectJobs(rows *sql.Rows) ([]models.Job, error) {
	var out []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// AssignJob commits the pro only if the job is still unassigned. Zero rows
// affected means another caller won the race (or the job is gone); the two
// cases are disambiguated with a follow-up read.
func (p *PostgresStore) AssignJob(ctx context.Context, jobID, proID string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE jobs SET assigned_pro_id=$1, status='assigned', updated_at=$2 WHERE id=$3 AND assigned_pro_id IS NULL AND status='open'`,
		proID, time.Now(), jobID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := p.GetJob(ctx, jobID); err != nil {
		return err
	}
	return ErrAssignConflict
}

// UnassignJob releases the pro and reopens the job unless it has reached a
// terminal status.
func (p *PostgresStore) UnassignJob(ctx context.Context, jobID string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE jobs SET assigned_pro_id=NULL, status='open', updated_at=$1 WHERE id=$2 AND status NOT IN ('completed','cancelled')`,
		time.Now(), jobID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := p.GetJob(ctx, jobID); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresStore) SaveVerification(ctx context.Context, v *models.VerificationRecord) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO verification_records(id, job_id, pro_id, original_price, verified_price, delta, pct_delta, decision, reason, created_at, approval_deadline)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		v.ID, v.JobID, v.ProID, v.OriginalPrice, v.VerifiedPrice, v.Delta, v.PctDelta, v.Decision, v.Reason, v.CreatedAt, v.ApprovalDeadline)
	return err
}

func (p *PostgresStore) SaveApproval(ctx context.Context, a *models.ApprovalRequest) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO approval_requests(id, verification_id, job_id, customer_id, original_price, verified_price, status, deadline, created_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.VerificationID, a.JobID, a.CustomerID, a.OriginalPrice, a.VerifiedPrice, a.Status, a.Deadline, a.CreatedAt)
	return err
}

func (p *PostgresStore) GetApproval(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, verification_id, job_id, customer_id, original_price, verified_price, status, deadline, responded_at, created_at
		 FROM approval_requests WHERE id=$1`, id)
	return scanApproval(row)
}

func scanApproval(row rowScanner) (*models.ApprovalRequest, error) {
	var a models.ApprovalRequest
	var responded sql.NullTime
	err := row.Scan(&a.ID, &a.VerificationID, &a.JobID, &a.CustomerID,
		&a.OriginalPrice, &a.VerifiedPrice, &a.Status, &a.Deadline, &responded, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if responded.Valid {
		a.RespondedAt = &responded.Time
	}
	return &a, nil
}

func (p *PostgresStore) ResolveApproval(ctx context.Context, id string, status models.ApprovalStatus, respondedAt time.Time) (*models.ApprovalRequest, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE approval_requests SET status=$1, responded_at=$2 WHERE id=$3 AND status='pending'`,
		status, respondedAt, id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := p.GetApproval(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyResolved
	}
	return p.GetApproval(ctx, id)
}

func (p *PostgresStore) ListExpiredPending(ctx context.Context, now time.Time) ([]models.ApprovalRequest, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, verification_id, job_id, customer_id, original_price, verified_price, status, deadline, responded_at, created_at
		 FROM approval_requests WHERE status='pending' AND deadline < $1 ORDER BY deadline`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApprovals(rows)
}

func (p *PostgresStore) ListPendingForJob(ctx context.Context, jobID string) ([]models.ApprovalRequest, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, verification_id, job_id, customer_id, original_price, verified_price, status, deadline, responded_at, created_at
		 FROM approval_requests WHERE status='pending' AND job_id=$1`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApprovals(rows)
}

func collectApprovals(rows *sql.Rows) ([]models.ApprovalRequest, error) {
	var out []models.ApprovalRequest
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
