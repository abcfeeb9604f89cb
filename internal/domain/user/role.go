package user

import (
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
)

// Role is a user's authorization level.
type Role string

const (
	RoleUsuario    Role = "usuario"
	RoleEmpleado   Role = "empleado"
	RoleSuperadmin Role = "superadmin"
)

// Level orders roles. Unknown roles have level 0.
func (r Role) Level() int {
	switch r {
	case RoleUsuario:
		return 1
	case RoleEmpleado:
		return 2
	case RoleSuperadmin:
		return 3
	default:
		return 0
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.Level() > 0
}

// AtLeast reports whether r satisfies required. An unknown required role is
// never satisfied and an unknown actor role satisfies nothing.
func (r Role) AtLeast(required Role) bool {
	if !required.Valid() || !r.Valid() {
		return false
	}
	return r.Level() >= required.Level()
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uint
	Role Role
}

// Require returns an authorization error unless the actor's role is at
// least required.
func (a Actor) Require(required Role) error {
	if !a.Role.AtLeast(required) {
		return apperror.Forbidden("No tenés permisos para realizar esta acción")
	}
	return nil
}

// IsStaff reports whether the actor is an employee or above.
func (a Actor) IsStaff() bool {
	return a.Role.AtLeast(RoleEmpleado)
}

// CanAccess reports whether the actor owns the resource or is staff.
func (a Actor) CanAccess(ownerID uint) bool {
	return a.ID == ownerID || a.IsStaff()
}
