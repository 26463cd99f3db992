// Package access resuelve el actor y sus alcances, y administra los AccessGrant.
package access

import (
	"context"
	"fmt"

	"github.com/jhoicas/spm-api/internal/domain"
	domaccess "github.com/jhoicas/spm-api/internal/domain/access"
	"github.com/jhoicas/spm-api/internal/domain/entity"
	"github.com/jhoicas/spm-api/internal/domain/repository"
)

// Resolver calcula los alcances de un usuario. Solo lectura; seguro para uso concurrente.
type Resolver struct {
	users  repository.UserRepository
	grants repository.AccessGrantRepository
}

// NewResolver construye el resolver.
func NewResolver(users repository.UserRepository, grants repository.AccessGrantRepository) *Resolver {
	return &Resolver{users: users, grants: grants}
}

// GrantsFor devuelve los alcances del usuario.
//   - usuario inexistente: domain.ErrNotFound
//   - usuario inactivo: conjunto vacío
//   - administrador activo: conjunto sin restricción, sin consultar grants
func (r *Resolver) GrantsFor(ctx context.Context, userID string) (domaccess.Grants, error) {
	_, grants, err := r.Resolve(ctx, userID)
	return grants, err
}

// Resolve devuelve el actor (rol y estado según el almacén de usuarios) junto con sus alcances.
func (r *Resolver) Resolve(ctx context.Context, userID string) (domaccess.Actor, domaccess.Grants, error) {
	if userID == "" {
		return domaccess.Actor{}, domaccess.Grants{}, domain.NotFound("usuario no encontrado")
	}
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return domaccess.Actor{}, domaccess.Grants{}, fmt.Errorf("resolver usuario: %w", err)
	}
	if user == nil {
		return domaccess.Actor{}, domaccess.Grants{}, domain.NotFound("usuario no encontrado").With("user_id", userID)
	}
	actor := domaccess.Actor{UserID: user.ID, Role: user.Role, Active: user.IsActive()}
	if !actor.Active {
		return actor, domaccess.Grants{}, nil
	}
	if actor.Is(entity.RoleAdmin) {
		return actor, domaccess.Unrestricted(), nil
	}
	list, err := r.grants.ListByUser(ctx, user.ID)
	if err != nil {
		return domaccess.Actor{}, domaccess.Grants{}, fmt.Errorf("listar alcances: %w", err)
	}
	return actor, domaccess.NewGrants(list), nil
}
