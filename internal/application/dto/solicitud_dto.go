package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemRequest renglón de entrada: código de material del catálogo y cantidad.
type ItemRequest struct {
	MaterialCode string          `json:"material_code" validate:"required,max=40"`
	Cantidad     decimal.Decimal `json:"cantidad"`
}

// CreateSolicitudRequest body para POST /api/solicitudes.
type CreateSolicitudRequest struct {
	Centro         string        `json:"centro" validate:"required,max=20"`
	Sector         string        `json:"sector" validate:"required,max=100"`
	AlmacenVirtual string        `json:"almacen_virtual" validate:"required,max=20"`
	Criticidad     string        `json:"criticidad" validate:"required,oneof=baja media alta critica"`
	Justificacion  string        `json:"justificacion" validate:"required,max=2000"`
	Items          []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateSolicitudRequest body para PUT /api/solicitudes/:id (solo en borrador).
type UpdateSolicitudRequest struct {
	Centro         string `json:"centro" validate:"required,max=20"`
	Sector         string `json:"sector" validate:"required,max=100"`
	AlmacenVirtual string `json:"almacen_virtual" validate:"required,max=20"`
	Criticidad     string `json:"criticidad" validate:"required,oneof=baja media alta critica"`
	Justificacion  string `json:"justificacion" validate:"required,max=2000"`
}

// UpdateItemRequest body para PUT /api/solicitudes/:id/items/:itemId.
type UpdateItemRequest struct {
	Cantidad decimal.Decimal `json:"cantidad"`
}

// TransitionRequest body para las acciones del flujo (submit, approve, reject...).
// Version es opcional: si viene y no coincide con la almacenada, la acción se rechaza con 409.
type TransitionRequest struct {
	Comment   string `json:"comment" validate:"max=2000"`
	PlannerID string `json:"planner_id" validate:"omitempty,max=64"`
	Version   *int   `json:"version,omitempty"`
}

// ListSolicitudesRequest filtros de GET /api/solicitudes.
type ListSolicitudesRequest struct {
	PageRequest
	Status string `query:"status" validate:"omitempty,oneof=draft pending_approval approved rejected in_planning closed cancelled"`
}

// SolicitudItemResponse renglón en respuestas.
type SolicitudItemResponse struct {
	ID             string          `json:"id"`
	MaterialCode   string          `json:"material_code"`
	Descripcion    string          `json:"descripcion"`
	UnidadMedida   string          `json:"unidad_medida"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

// DecisionResponse registro del historial de decisiones.
type DecisionResponse struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	Accion     string    `json:"accion"`
	StatusDe   string    `json:"status_de"`
	StatusA    string    `json:"status_a"`
	Comentario string    `json:"comentario,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SolicitudResponse salida de una solicitud. Acciones lista lo que el usuario actual puede ejecutar.
type SolicitudResponse struct {
	ID             string                  `json:"id"`
	CreadorID      string                  `json:"creador_id"`
	Centro         string                  `json:"centro"`
	Sector         string                  `json:"sector"`
	AlmacenVirtual string                  `json:"almacen_virtual"`
	Criticidad     string                  `json:"criticidad"`
	Justificacion  string                  `json:"justificacion"`
	Status         string                  `json:"status"`
	TotalMonto     decimal.Decimal         `json:"total_monto"`
	AprobadorID    *string                 `json:"aprobador_id"`
	PlanificadorID *string                 `json:"planificador_id"`
	Version        int                     `json:"version"`
	Items          []SolicitudItemResponse `json:"items,omitempty"`
	Decisiones     []DecisionResponse      `json:"decisiones,omitempty"`
	Acciones       []string                `json:"acciones"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// SolicitudListResponse página de solicitudes visibles.
type SolicitudListResponse struct {
	Solicitudes []SolicitudResponse `json:"solicitudes"`
	Page        PageResponse        `json:"page"`
}
