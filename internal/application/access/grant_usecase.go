package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/spm-api/internal/application/dto"
	"github.com/jhoicas/spm-api/internal/domain"
	"github.com/jhoicas/spm-api/internal/domain/entity"
	"github.com/jhoicas/spm-api/internal/domain/repository"
	"github.com/jhoicas/spm-api/pkg/logger"
)

// GrantUseCase administración de AccessGrant. Todas las operaciones exigen un administrador activo.
type GrantUseCase struct {
	resolver *Resolver
	users    repository.UserRepository
	grants   repository.AccessGrantRepository
	catalog  repository.CatalogRepository
	log      *logger.Logger
	now      func() time.Time
}

// NewGrantUseCase construye el caso de uso.
func NewGrantUseCase(
	resolver *Resolver,
	users repository.UserRepository,
	grants repository.AccessGrantRepository,
	catalog repository.CatalogRepository,
	log *logger.Logger,
) *GrantUseCase {
	return &GrantUseCase{
		resolver: resolver,
		users:    users,
		grants:   grants,
		catalog:  catalog,
		log:      log,
		now:      time.Now,
	}
}

// Create otorga un alcance a un usuario.
func (uc *GrantUseCase) Create(ctx context.Context, adminID, userID string, in dto.CreateGrantRequest) (*dto.GrantResponse, error) {
	if err := uc.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	scopeType := entity.ScopeType(strings.TrimSpace(in.ScopeType))
	scopeID := strings.TrimSpace(in.ScopeID)
	if !scopeType.IsValid() {
		return nil, domain.Validation("tipo de alcance inválido").With("scope_type", in.ScopeType)
	}
	if scopeID == "" {
		return nil, domain.Validation("scope_id requerido")
	}
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("obtener usuario: %w", err)
	}
	if user == nil {
		return nil, domain.NotFound("usuario no encontrado").With("user_id", userID)
	}
	if err := uc.ensureScopeExists(ctx, scopeType, scopeID); err != nil {
		return nil, err
	}

	grant := &entity.AccessGrant{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		ScopeType: scopeType,
		ScopeID:   scopeID,
		CreatedBy: adminID,
		CreatedAt: uc.now(),
	}
	if err := uc.grants.Create(ctx, grant); err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("admin_id", adminID).
		Str("user_id", user.ID).
		Str("scope_type", string(scopeType)).
		Str("scope_id", scopeID).
		Msg("alcance otorgado")
	return toGrantResponse(grant), nil
}

// ListByUser lista los alcances de un usuario.
func (uc *GrantUseCase) ListByUser(ctx context.Context, adminID, userID string) ([]dto.GrantResponse, error) {
	if err := uc.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("obtener usuario: %w", err)
	}
	if user == nil {
		return nil, domain.NotFound("usuario no encontrado").With("user_id", userID)
	}
	list, err := uc.grants.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.GrantResponse, 0, len(list))
	for _, g := range list {
		out = append(out, *toGrantResponse(g))
	}
	return out, nil
}

// Delete revoca un alcance. Las solicitudes ya decididas conservan su historial.
func (uc *GrantUseCase) Delete(ctx context.Context, adminID, grantID string) error {
	if err := uc.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	grant, err := uc.grants.GetByID(ctx, grantID)
	if err != nil {
		return err
	}
	if grant == nil {
		return domain.NotFound("alcance no encontrado").With("grant_id", grantID)
	}
	if err := uc.grants.Delete(ctx, grantID); err != nil {
		return err
	}
	uc.log.Info().
		Str("admin_id", adminID).
		Str("grant_id", grantID).
		Str("user_id", grant.UserID).
		Msg("alcance revocado")
	return nil
}

func (uc *GrantUseCase) requireAdmin(ctx context.Context, adminID string) error {
	actor, _, err := uc.resolver.Resolve(ctx, adminID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return domain.Forbidden("solo un administrador puede gestionar alcances").With("user_id", adminID)
	}
	return nil
}

func (uc *GrantUseCase) ensureScopeExists(ctx context.Context, t entity.ScopeType, id string) error {
	switch t {
	case entity.ScopeCentro:
		c, err := uc.catalog.GetCenter(ctx, id)
		if err != nil {
			return fmt.Errorf("obtener centro: %w", err)
		}
		if c == nil {
			return domain.Validation("centro desconocido").With("centro", id)
		}
	case entity.ScopeAlmacen:
		w, err := uc.catalog.GetWarehouse(ctx, id)
		if err != nil {
			return fmt.Errorf("obtener almacén: %w", err)
		}
		if w == nil {
			return domain.Validation("almacén desconocido").With("almacen", id)
		}
	}
	return nil
}

func toGrantResponse(g *entity.AccessGrant) *dto.GrantResponse {
	return &dto.GrantResponse{
		ID:        g.ID,
		UserID:    g.UserID,
		ScopeType: string(g.ScopeType),
		ScopeID:   g.ScopeID,
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
	}
}
