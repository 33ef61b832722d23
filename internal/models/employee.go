package models

import "time"

// EmployeeStatus marks directory entries created on the fly as pending
// until the directory owner confirms them.
type EmployeeStatus string

const (
	EmployeeStatusActive  EmployeeStatus = "active"
	EmployeeStatusPending EmployeeStatus = "pending"
)

// Employee is a directory entry resolved (or created) for a free-text
// crew-member name. Identity heuristics live in the directory package;
// this core never guarantees global uniqueness beyond them.
type Employee struct {
	ID          int64          `json:"id" db:"id"`
	BranchID    int64          `json:"branch_id" db:"branch_id"`
	FirstName   string         `json:"first_name" db:"first_name"`
	LastName    string         `json:"last_name" db:"last_name"`
	DisplayName string         `json:"display_name" db:"display_name"`
	Status      EmployeeStatus `json:"status" db:"status"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}
