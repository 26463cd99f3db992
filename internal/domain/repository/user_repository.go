package repository

import (
	"context"

	"github.com/jhoicas/spm-api/internal/domain/entity"
)

// UserRepository define el puerto de lectura de usuarios (DIP).
// Las altas y bajas de usuarios las gestiona el proveedor de identidad.
// Los métodos Get devuelven (nil, nil) si no existe.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	ListByRole(ctx context.Context, role entity.Role, limit, offset int) ([]*entity.User, error)
}
