package balance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Employee(ctx context.Context, employeeID string) (Employee, error) {
	return LoadEmployee(ctx, s.DB, employeeID, false)
}

// LoadEmployee reads one employee row. With forUpdate the row stays locked
// until q's transaction ends.
func LoadEmployee(ctx context.Context, q querier.Querier, employeeID string, forUpdate bool) (Employee, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return Employee{}, ErrEmployeeNotFound
	}

	sql := `
    SELECT id::text, full_name, hire_date, annual_days, days_taken, COALESCE(supervisor_id::text, ''), status
    FROM employees
    WHERE id = $1
  `
	if forUpdate {
		sql += " FOR UPDATE"
	}

	var emp Employee
	var hireDate time.Time
	var status string
	err := q.QueryRow(ctx, sql, employeeID).Scan(
		&emp.ID, &emp.FullName, &hireDate, &emp.AnnualDays, &emp.DaysTaken, &emp.SupervisorID, &status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	if err != nil {
		return Employee{}, err
	}
	emp.HireDate = hireDate
	emp.Status = Status(status)
	return emp, nil
}

// AddDaysTaken debits an approved leave from the employee's balance.
func AddDaysTaken(ctx context.Context, q querier.Querier, employeeID string, days int) error {
	tag, err := q.Exec(ctx, `
    UPDATE employees SET days_taken = days_taken + $2
    WHERE id = $1
  `, employeeID, days)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}
