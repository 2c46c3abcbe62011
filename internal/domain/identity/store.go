package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/auth"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/apperror"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

var _ Resolver = (*Store)(nil)

func (s *Store) ResolveActor(ctx context.Context, userID string) (auth.Actor, error) {
	var employeeID *string
	var role string
	err := s.DB.QueryRow(ctx, `
    SELECT employee_id::text, role
    FROM users
    WHERE id = $1
  `, userID).Scan(&employeeID, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.Actor{}, apperror.ErrNotFound.WithMessage("user not found")
	}
	if err != nil {
		return auth.Actor{}, err
	}

	parsed, err := auth.ParseRole(role)
	if err != nil {
		return auth.Actor{}, err
	}
	actor := auth.Actor{UserID: userID, Role: parsed}
	if employeeID != nil {
		actor.EmployeeID = *employeeID
	}
	return actor, nil
}

func (s *Store) ImmediateSupervisorUserID(ctx context.Context, employeeID string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    SELECT u.id::text
    FROM employees e
    JOIN users u ON u.employee_id = e.supervisor_id
    WHERE e.id = $1
  `, employeeID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *Store) UsersWithRole(ctx context.Context, role auth.Role) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text
    FROM users
    WHERE role = $1
    ORDER BY created_at, id
  `, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) UserIDForEmployee(ctx context.Context, employeeID string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, "SELECT id::text FROM users WHERE employee_id = $1", employeeID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *Store) IsImmediateSupervisor(ctx context.Context, supervisorEmployeeID, employeeID string) (bool, error) {
	if supervisorEmployeeID == "" || employeeID == "" {
		return false, nil
	}
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM employees WHERE id = $1 AND supervisor_id = $2
    )
  `, employeeID, supervisorEmployeeID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
