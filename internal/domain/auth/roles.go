package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of portal roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleHR         Role = "hr"
	RoleSupervisor Role = "supervisor"
	RoleEmployee   Role = "employee"
	RoleReader     Role = "reader"
)

var AllRoles = []Role{RoleAdmin, RoleHR, RoleSupervisor, RoleEmployee, RoleReader}

func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", value)
	}
	return role, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleSupervisor, RoleEmployee, RoleReader:
		return true
	}
	return false
}

// Approver reports whether the role takes part in any approval stage.
func (r Role) Approver() bool {
	return r == RoleAdmin || r == RoleHR || r == RoleSupervisor
}

func (r Role) String() string {
	return string(r)
}

// Actor is the authenticated principal a core operation runs as.
type Actor struct {
	UserID     string
	EmployeeID string
	Role       Role
}
