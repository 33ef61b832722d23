package models

import "time"

// OverrunAlert is the payload handed to the alert sink when a closed
// job's approved worked hours exceed its estimate. HoursSaved is
// estimated minus worked, so it is negative on an overrun.
type OverrunAlert struct {
	ID             int64      `json:"id" db:"id"`
	JobID          int64      `json:"job_id" db:"job_id"`
	JobName        string     `json:"job_name" db:"job_name"`
	BranchID       int64      `json:"branch_id" db:"branch_id"`
	CrewLeadName   string     `json:"crew_lead_name" db:"crew_lead_name"`
	EstimatedHours float64    `json:"estimated_hours" db:"estimated_hours"`
	WorkedHours    float64    `json:"worked_hours" db:"worked_hours"`
	HoursSaved     float64    `json:"hours_saved" db:"hours_saved"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
}
