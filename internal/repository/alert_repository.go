package repository

import (
	"context"

	"github.com/crewtally/tally-api/internal/models"
)

type AlertRepository interface {
	Create(ctx context.Context, alert models.OverrunAlert) (models.OverrunAlert, error)
	MarkDelivered(ctx context.Context, id int64) error
	ListByBranch(ctx context.Context, branchID int64, limit int) ([]models.OverrunAlert, error)
}

type alertRepository struct {
	db DBTX
}

func NewAlertRepository(db DBTX) AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) Create(ctx context.Context, alert models.OverrunAlert) (models.OverrunAlert, error) {
	const query = `
		INSERT INTO overrun_alerts (job_id, job_name, branch_id, crew_lead_name, estimated_hours, worked_hours, hours_saved)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		alert.JobID,
		alert.JobName,
		alert.BranchID,
		alert.CrewLeadName,
		alert.EstimatedHours,
		alert.WorkedHours,
		alert.HoursSaved,
	).Scan(&alert.ID, &alert.CreatedAt)
	return alert, err
}

func (r *alertRepository) MarkDelivered(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE overrun_alerts SET delivered_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *alertRepository) ListByBranch(ctx context.Context, branchID int64, limit int) ([]models.OverrunAlert, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	const query = `
		SELECT id, job_id, job_name, branch_id, crew_lead_name, estimated_hours, worked_hours, hours_saved, created_at, delivered_at
		FROM overrun_alerts
		WHERE branch_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, branchID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.OverrunAlert
	for rows.Next() {
		var a models.OverrunAlert
		if err := rows.Scan(
			&a.ID,
			&a.JobID,
			&a.JobName,
			&a.BranchID,
			&a.CrewLeadName,
			&a.EstimatedHours,
			&a.WorkedHours,
			&a.HoursSaved,
			&a.CreatedAt,
			&a.DeliveredAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
