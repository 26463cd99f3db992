package repository

import (
	"context"

	"github.com/jhoicas/spm-api/internal/domain/solicitud"
)

// SolicitudQuery criterios para obtener candidatos del listado. La persistencia solo acota el conjunto;
// el filtro de visibilidad del dominio decide qué se muestra.
type SolicitudQuery struct {
	ViewerID     string   // creador o planificador asignado
	Unrestricted bool     // sin acotar por alcance (administradores)
	Centers      []string // centros otorgados
	Warehouses   []string // almacenes otorgados
	Status       solicitud.Status
}

// SolicitudRepository define el puerto de persistencia del agregado Solicitud (DIP).
// Get* devuelve (nil, nil) si no existe.
type SolicitudRepository interface {
	Create(ctx context.Context, s *solicitud.Solicitud) error
	GetByID(ctx context.Context, id string) (*solicitud.Solicitud, error)
	// GetForUpdate bloquea la fila (SELECT ... FOR UPDATE) hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*solicitud.Solicitud, error)
	// Save persiste cabecera, estado y renglones si la versión almacenada coincide con s.Version,
	// agrega la decisión (si no es nil) e incrementa s.Version. Si la versión no coincide devuelve
	// domain.ErrConcurrencyConflict y no escribe nada.
	Save(ctx context.Context, s *solicitud.Solicitud, decision *solicitud.Decision) error
	// ListCandidates devuelve las solicitudes que podrían ser visibles, ordenadas por creación descendente.
	ListCandidates(ctx context.Context, q SolicitudQuery) ([]*solicitud.Solicitud, error)
}
