package repository

import (
	"context"

	"github.com/jhoicas/spm-api/internal/domain/entity"
)

// AccessGrantRepository define el puerto de persistencia para AccessGrant (DIP).
type AccessGrantRepository interface {
	// Create devuelve un error domain.ErrValidation si el alcance ya estaba otorgado al usuario.
	Create(ctx context.Context, grant *entity.AccessGrant) error
	GetByID(ctx context.Context, id string) (*entity.AccessGrant, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.AccessGrant, error)
	Delete(ctx context.Context, id string) error
}
