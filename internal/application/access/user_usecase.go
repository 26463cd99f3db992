package access

import (
	"context"
	"fmt"

	"github.com/jhoicas/spm-api/internal/application/dto"
	"github.com/jhoicas/spm-api/internal/domain"
	"github.com/jhoicas/spm-api/internal/domain/entity"
	"github.com/jhoicas/spm-api/internal/domain/repository"
)

// UserUseCase consultas de usuarios: perfil propio y búsqueda para aprobadores y administradores.
type UserUseCase struct {
	resolver *Resolver
	users    repository.UserRepository
}

// NewUserUseCase construye el caso de uso.
func NewUserUseCase(resolver *Resolver, users repository.UserRepository) *UserUseCase {
	return &UserUseCase{resolver: resolver, users: users}
}

// Me devuelve el usuario autenticado con sus alcances. Un inactivo se ve a sí mismo sin alcances.
func (uc *UserUseCase) Me(ctx context.Context, userID string) (*dto.ProfileResponse, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("obtener usuario: %w", err)
	}
	if user == nil {
		return nil, domain.NewError(domain.ErrUnauthorized, "usuario no registrado").With("user_id", userID)
	}
	_, grants, err := uc.resolver.Resolve(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	out := &dto.ProfileResponse{
		User:         *toUserResponse(user),
		Unrestricted: grants.IsUnrestricted(),
		Alcances:     map[string][]string{},
	}
	for t, ids := range grants.ByType() {
		out.Alcances[string(t)] = ids
	}
	return out, nil
}

// List busca usuarios por email o por rol. Solo aprobadores y administradores activos.
func (uc *UserUseCase) List(ctx context.Context, callerID string, in dto.ListUsersRequest) ([]dto.UserResponse, error) {
	actor, _, err := uc.resolver.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !actor.Active || !(actor.IsAdmin() || actor.Is(entity.RoleAprobador)) {
		return nil, domain.Forbidden("sin permiso para consultar usuarios").With("user_id", callerID)
	}
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	out := []dto.UserResponse{}
	if in.Email != "" {
		u, err := uc.users.GetByEmail(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("buscar usuario: %w", err)
		}
		if u != nil {
			out = append(out, *toUserResponse(u))
		}
		return out, nil
	}
	if in.Role == "" {
		return nil, domain.Validation("indique role o email").With("campo", "role")
	}
	in.DefaultPage()
	list, err := uc.users.ListByRole(ctx, entity.Role(in.Role), in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}
	for _, u := range list {
		out = append(out, *toUserResponse(u))
	}
	return out, nil
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
