package repository

import (
	"context"

	"github.com/jhoicas/spm-api/internal/domain/entity"
)

// CatalogRepository define el puerto de lectura del catálogo: materiales, centros y almacenes virtuales.
// Los métodos Get/Lookup devuelven (nil, nil) si el código no existe.
type CatalogRepository interface {
	LookupMaterial(ctx context.Context, code string) (*entity.Material, error)
	GetCenter(ctx context.Context, code string) (*entity.Center, error)
	GetWarehouse(ctx context.Context, code string) (*entity.Warehouse, error)
}
