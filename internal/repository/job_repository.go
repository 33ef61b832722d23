package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/crewtally/tally-api/internal/models"
)

// ErrJobNotFound reports an unknown job id.
var ErrJobNotFound = errors.New("job not found")

type JobRepository interface {
	Create(ctx context.Context, job models.Job) (models.Job, error)
	Update(ctx context.Context, job models.Job) error
	Get(ctx context.Context, id int64) (models.Job, error)
	GetByExactName(ctx context.Context, branchID int64, name string) (models.Job, bool, error)
	ListByBranch(ctx context.Context, branchID int64) ([]models.Job, error)
	SetPerformanceStatus(ctx context.Context, id int64, status models.JobPerformanceStatus) error
}

type jobRepository struct {
	db DBTX
}

func NewJobRepository(db DBTX) JobRepository {
	return &jobRepository{db: db}
}

const jobColumns = `id, name, branch_id, crew_lead_name, closing_date, sold_price, estimated_hours, current_status, performance_status, created_at, updated_at`

func scanJob(scanner interface{ Scan(dest ...interface{}) error }) (models.Job, error) {
	var job models.Job
	err := scanner.Scan(
		&job.ID,
		&job.Name,
		&job.BranchID,
		&job.CrewLeadName,
		&job.ClosingDate,
		&job.SoldPrice,
		&job.EstimatedHours,
		&job.CurrentStatus,
		&job.Performance,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	return job, err
}

func (r *jobRepository) Create(ctx context.Context, job models.Job) (models.Job, error) {
	const query = `
		INSERT INTO jobs (name, branch_id, crew_lead_name, closing_date, sold_price, estimated_hours, current_status, performance_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		job.Name,
		job.BranchID,
		job.CrewLeadName,
		job.ClosingDate,
		job.SoldPrice,
		job.EstimatedHours,
		job.CurrentStatus,
		job.Performance,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	return job, err
}

func (r *jobRepository) Update(ctx context.Context, job models.Job) error {
	const query = `
		UPDATE jobs
		SET crew_lead_name = $1, closing_date = $2, sold_price = $3,
		    estimated_hours = $4, current_status = $5, performance_status = $6, updated_at = NOW()
		WHERE id = $7
	`
	res, err := r.db.ExecContext(ctx, query,
		job.CrewLeadName,
		job.ClosingDate,
		job.SoldPrice,
		job.EstimatedHours,
		job.CurrentStatus,
		job.Performance,
		job.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *jobRepository) Get(ctx context.Context, id int64) (models.Job, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return job, ErrJobNotFound
	}
	return job, err
}

func (r *jobRepository) GetByExactName(ctx context.Context, branchID int64, name string) (models.Job, bool, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE branch_id = $1 AND LOWER(name) = LOWER($2)`, branchID, name))
	if err == sql.ErrNoRows {
		return models.Job{}, false, nil
	}
	if err != nil {
		return models.Job{}, false, err
	}
	return job, true, nil
}

func (r *jobRepository) ListByBranch(ctx context.Context, branchID int64) ([]models.Job, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE branch_id = $1 ORDER BY id`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *jobRepository) SetPerformanceStatus(ctx context.Context, id int64, status models.JobPerformanceStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET performance_status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}
