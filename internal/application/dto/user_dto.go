package dto

import "time"

// UserResponse salida de un usuario. Las altas las gestiona el proveedor de identidad.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileResponse el usuario autenticado con sus alcances.
type ProfileResponse struct {
	User         UserResponse        `json:"user"`
	Unrestricted bool                `json:"sin_restriccion"`
	Alcances     map[string][]string `json:"alcances"` // tipo de alcance → ids
}

// ListUsersRequest búsqueda por email exacto o por rol (para elegir planificador).
type ListUsersRequest struct {
	PageRequest
	Role  string `query:"role" validate:"omitempty,oneof=solicitante aprobador planificador admin"`
	Email string `query:"email" validate:"omitempty,email"`
}
