package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/spm-api/internal/domain"
	"github.com/jhoicas/spm-api/internal/domain/entity"
	"github.com/jhoicas/spm-api/internal/domain/repository"
)

var _ repository.AccessGrantRepository = (*AccessGrantRepo)(nil)

// AccessGrantRepo implementación de AccessGrantRepository sobre la tabla access_grants.
type AccessGrantRepo struct {
	db Querier
}

// NewAccessGrantRepository construye el repositorio.
func NewAccessGrantRepository(db Querier) *AccessGrantRepo {
	return &AccessGrantRepo{db: db}
}

// Create inserta el grant. UNIQUE(user_id, scope_type, scope_id) evita duplicados.
func (r *AccessGrantRepo) Create(ctx context.Context, g *entity.AccessGrant) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO access_grants (id, user_id, scope_type, scope_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.UserID, string(g.ScopeType), g.ScopeID, g.CreatedBy, g.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Validation("el alcance ya está otorgado al usuario").
				With("user_id", g.UserID).With("scope_type", string(g.ScopeType)).With("scope_id", g.ScopeID)
		}
		return fmt.Errorf("insert access grant: %w", err)
	}
	return nil
}

// GetByID obtiene un grant. (nil, nil) si no existe.
func (r *AccessGrantRepo) GetByID(ctx context.Context, id string) (*entity.AccessGrant, error) {
	var g entity.AccessGrant
	var scopeType string
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, scope_type, scope_id, created_by, created_at
		FROM access_grants WHERE id = $1`, id,
	).Scan(&g.ID, &g.UserID, &scopeType, &g.ScopeID, &g.CreatedBy, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get access grant: %w", err)
	}
	g.ScopeType = entity.ScopeType(scopeType)
	return &g, nil
}

// ListByUser lista los grants del usuario ordenados por tipo y código.
func (r *AccessGrantRepo) ListByUser(ctx context.Context, userID string) ([]*entity.AccessGrant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, scope_type, scope_id, created_by, created_at
		FROM access_grants WHERE user_id = $1
		ORDER BY scope_type, scope_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list access grants: %w", err)
	}
	defer rows.Close()
	var list []*entity.AccessGrant
	for rows.Next() {
		var g entity.AccessGrant
		var scopeType string
		if err := rows.Scan(&g.ID, &g.UserID, &scopeType, &g.ScopeID, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.ScopeType = entity.ScopeType(scopeType)
		list = append(list, &g)
	}
	return list, rows.Err()
}

// Delete elimina el grant. ErrNotFound si no existía.
func (r *AccessGrantRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM access_grants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete access grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("alcance no encontrado").With("grant_id", id)
	}
	return nil
}
