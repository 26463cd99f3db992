package entity

import "time"

// Role es el rol funcional de un usuario dentro del flujo de solicitudes.
type Role string

// Roles válidos para User.
const (
	RoleSolicitante  Role = "solicitante"
	RoleAprobador    Role = "aprobador"
	RolePlanificador Role = "planificador"
	RoleAdmin        Role = "admin"
)

// IsValid indica si el rol pertenece al conjunto cerrado de roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleSolicitante, RoleAprobador, RolePlanificador, RoleAdmin:
		return true
	}
	return false
}

// Estados de User.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User representa un usuario del sistema. La autenticación la resuelve un proveedor externo.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	Status    string // active, inactive
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive indica si el usuario puede operar.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
