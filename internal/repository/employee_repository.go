package repository

import (
	"context"

	"github.com/crewtally/tally-api/internal/models"
)

type EmployeeRepository interface {
	ListByBranch(ctx context.Context, branchID int64) ([]models.Employee, error)
	Create(ctx context.Context, employee models.Employee) (models.Employee, error)
}

type employeeRepository struct {
	db DBTX
}

func NewEmployeeRepository(db DBTX) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) ListByBranch(ctx context.Context, branchID int64) ([]models.Employee, error) {
	const query = `
		SELECT id, branch_id, first_name, last_name, display_name, status, created_at
		FROM employees
		WHERE branch_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		var emp models.Employee
		if err := rows.Scan(
			&emp.ID,
			&emp.BranchID,
			&emp.FirstName,
			&emp.LastName,
			&emp.DisplayName,
			&emp.Status,
			&emp.CreatedAt,
		); err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

func (r *employeeRepository) Create(ctx context.Context, employee models.Employee) (models.Employee, error) {
	const query = `
		INSERT INTO employees (branch_id, first_name, last_name, display_name, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		employee.BranchID,
		employee.FirstName,
		employee.LastName,
		employee.DisplayName,
		employee.Status,
	).Scan(&employee.ID, &employee.CreatedAt)
	return employee, err
}
