package dto

import "time"

// CreateGrantRequest body para POST /api/users/:id/grants.
type CreateGrantRequest struct {
	ScopeType string `json:"scope_type" validate:"required,oneof=centro almacen"`
	ScopeID   string `json:"scope_id" validate:"required,max=20"`
}

// GrantResponse salida de un AccessGrant.
type GrantResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ScopeType string    `json:"scope_type"`
	ScopeID   string    `json:"scope_id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
