// Package identity maps authenticated principals onto the organisation chart.
package identity

import (
	"context"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/auth"
)

// Resolver answers the org-chart questions the approval workflow asks.
// Implementations are read-only.
type Resolver interface {
	ResolveActor(ctx context.Context, userID string) (auth.Actor, error)
	// ImmediateSupervisorUserID returns "" when the employee has no supervisor
	// or the supervisor has no user account.
	ImmediateSupervisorUserID(ctx context.Context, employeeID string) (string, error)
	UsersWithRole(ctx context.Context, role auth.Role) ([]string, error)
	// UserIDForEmployee returns "" when the employee has no user account.
	UserIDForEmployee(ctx context.Context, employeeID string) (string, error)
	IsImmediateSupervisor(ctx context.Context, supervisorEmployeeID, employeeID string) (bool, error)
}
