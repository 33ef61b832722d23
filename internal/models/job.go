package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Job is the canonical durable job entity. One row exists per distinct
// job identity within a branch (exact name, or near-duplicate by fuzzy
// similarity at save time); repeated saves update, never duplicate.
type Job struct {
	ID             int64                `json:"id" db:"id"`
	Name           string               `json:"name" db:"name"`
	BranchID       int64                `json:"branch_id" db:"branch_id"`
	CrewLeadName   string               `json:"crew_lead_name" db:"crew_lead_name"`
	ClosingDate    *time.Time           `json:"closing_date,omitempty" db:"closing_date"`
	SoldPrice      decimal.Decimal      `json:"sold_price" db:"sold_price"`
	EstimatedHours float64              `json:"estimated_hours" db:"estimated_hours"`
	CurrentStatus  string               `json:"current_status" db:"current_status"`
	Performance    JobPerformanceStatus `json:"performance_status" db:"performance_status"`
	CreatedAt      time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at" db:"updated_at"`
}

// Shift is one durable (crew-member, job) pair with hours. Primary
// identity is (employee_id, job_id): a second save for the same pair
// updates hours while unapproved and is silently rejected once
// approved. ApprovedShift never flips back to false.
type Shift struct {
	ID                  int64       `json:"id" db:"id"`
	JobID               int64       `json:"job_id" db:"job_id"`
	EmployeeID          int64       `json:"employee_id" db:"employee_id"`
	BatchID             string      `json:"batch_id" db:"batch_id"`
	DisplayName         string      `json:"display_name" db:"display_name"`
	ShiftCount          int         `json:"shift_count" db:"shift_count"`
	RegularHours        float64     `json:"regular_hours" db:"regular_hours"`
	OvertimeHours       float64     `json:"overtime_hours" db:"overtime_hours"`
	DoubleOvertimeHours float64     `json:"double_overtime_hours" db:"double_overtime_hours"`
	TotalHours          float64     `json:"total_hours" db:"total_hours"`
	Tags                string      `json:"tags" db:"tags"`
	ApprovedShift       bool        `json:"approved_shift" db:"approved_shift"`
	Performance         ShiftStatus `json:"performance_status" db:"performance_status"`
	CreatedAt           time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at" db:"updated_at"`
}

// SpecialShift is one durable (special-shift-type, job) pair holding
// the fixed hours-per-occurrence total, with the same approval
// semantics as Shift.
type SpecialShift struct {
	ID            int64            `json:"id" db:"id"`
	JobID         int64            `json:"job_id" db:"job_id"`
	Type          SpecialShiftType `json:"type" db:"shift_type"`
	BatchID       string           `json:"batch_id" db:"batch_id"`
	ShiftCount    int              `json:"shift_count" db:"shift_count"`
	TotalHours    float64          `json:"total_hours" db:"total_hours"`
	ApprovedShift bool             `json:"approved_shift" db:"approved_shift"`
	Performance   ShiftStatus      `json:"performance_status" db:"performance_status"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}
