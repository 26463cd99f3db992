package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/spm-api/internal/domain/entity"
	"github.com/jhoicas/spm-api/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo lectura de materiales, centros y almacenes virtuales.
type CatalogRepo struct {
	db Querier
}

// NewCatalogRepository construye el repositorio.
func NewCatalogRepository(db Querier) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// LookupMaterial busca un material por código. (nil, nil) si no existe.
func (r *CatalogRepo) LookupMaterial(ctx context.Context, code string) (*entity.Material, error) {
	var m entity.Material
	err := r.db.QueryRow(ctx, `
		SELECT code, description, unit_price, unit_measure, updated_at
		FROM materials WHERE code = $1`, code,
	).Scan(&m.Code, &m.Description, &m.UnitPrice, &m.UnitMeasure, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup material: %w", err)
	}
	return &m, nil
}

// GetCenter obtiene un centro por código.
func (r *CatalogRepo) GetCenter(ctx context.Context, code string) (*entity.Center, error) {
	var c entity.Center
	err := r.db.QueryRow(ctx, `SELECT code, name, created_at FROM centers WHERE code = $1`, code).
		Scan(&c.Code, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get center: %w", err)
	}
	return &c, nil
}

// GetWarehouse obtiene un almacén virtual por código.
func (r *CatalogRepo) GetWarehouse(ctx context.Context, code string) (*entity.Warehouse, error) {
	var w entity.Warehouse
	err := r.db.QueryRow(ctx, `SELECT code, center_code, name, created_at FROM warehouses WHERE code = $1`, code).
		Scan(&w.Code, &w.CenterCode, &w.Name, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	return &w, nil
}
