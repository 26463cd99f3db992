package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/spm-api/internal/application/dto"
	domsol "github.com/jhoicas/spm-api/internal/domain/solicitud"
)

// LocalResourceID lo llena el handler de creación con el id generado; lo lee el middleware de idempotencia.
const LocalResourceID = "resource_id"

// solicitudService es lo que el handler necesita del caso de uso (lo implementa *solicitud.UseCase).
type solicitudService interface {
	Create(ctx context.Context, userID string, in dto.CreateSolicitudRequest) (*dto.SolicitudResponse, error)
	UpdateHeader(ctx context.Context, userID, id string, in dto.UpdateSolicitudRequest) (*dto.SolicitudResponse, error)
	AddItem(ctx context.Context, userID, id string, in dto.ItemRequest) (*dto.SolicitudResponse, error)
	UpdateItem(ctx context.Context, userID, id, itemID string, in dto.UpdateItemRequest) (*dto.SolicitudResponse, error)
	RemoveItem(ctx context.Context, userID, id, itemID string) (*dto.SolicitudResponse, error)
	Transition(ctx context.Context, userID, id string, trigger domsol.Trigger, in dto.TransitionRequest) (*dto.SolicitudResponse, error)
	Get(ctx context.Context, userID, id string) (*dto.SolicitudResponse, error)
	List(ctx context.Context, userID string, in dto.ListSolicitudesRequest) (*dto.SolicitudListResponse, error)
}

// SolicitudHandler maneja las peticiones HTTP de solicitudes de materiales (protegido).
type SolicitudHandler struct {
	svc solicitudService
}

// NewSolicitudHandler construye el handler.
func NewSolicitudHandler(svc solicitudService) *SolicitudHandler {
	return &SolicitudHandler{svc: svc}
}

// Create godoc
// @Summary      Crear solicitud en borrador
// @Tags         solicitudes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "Clave de idempotencia"
// @Param        body  body  dto.CreateSolicitudRequest  true  "Cabecera y renglones"
// @Success      201   {object}  dto.SolicitudResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/solicitudes [post]
func (h *SolicitudHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSolicitudRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.Create(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	c.Locals(LocalResourceID, out.ID)
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener solicitud con renglones e historial
// @Tags         solicitudes
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la solicitud"
// @Success      200  {object}  dto.SolicitudResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/solicitudes/{id} [get]
func (h *SolicitudHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.svc.Get(c.UserContext(), GetUserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar solicitudes visibles
// @Tags         solicitudes
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "Estado"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {object}  dto.SolicitudListResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Router       /api/solicitudes [get]
func (h *SolicitudHandler) List(c *fiber.Ctx) error {
	var in dto.ListSolicitudesRequest
	in.Status = c.Query("status")
	var err error
	if in.Limit, err = queryInt(c, "limit"); err != nil {
		return writeError(c, err)
	}
	if in.Offset, err = queryInt(c, "offset"); err != nil {
		return writeError(c, err)
	}
	out, err := h.svc.List(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// UpdateHeader godoc
// @Summary      Editar cabecera (solo borrador, solo el creador)
// @Tags         solicitudes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la solicitud"
// @Param        body  body  dto.UpdateSolicitudRequest  true  "Cabecera"
// @Success      200   {object}  dto.SolicitudResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/solicitudes/{id} [put]
func (h *SolicitudHandler) UpdateHeader(c *fiber.Ctx) error {
	var in dto.UpdateSolicitudRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.UpdateHeader(c.UserContext(), GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// AddItem godoc
// @Summary      Agregar renglón
// @Tags         solicitudes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la solicitud"
// @Param        body  body  dto.ItemRequest  true  "Material y cantidad"
// @Success      201   {object}  dto.SolicitudResponse
// @Router       /api/solicitudes/{id}/items [post]
func (h *SolicitudHandler) AddItem(c *fiber.Ctx) error {
	var in dto.ItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.AddItem(c.UserContext(), GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// UpdateItem godoc
// @Summary      Cambiar cantidad de un renglón
// @Tags         solicitudes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id      path  string  true  "ID de la solicitud"
// @Param        itemId  path  string  true  "ID del renglón"
// @Param        body    body  dto.UpdateItemRequest  true  "Cantidad"
// @Success      200     {object}  dto.SolicitudResponse
// @Router       /api/solicitudes/{id}/items/{itemId} [put]
func (h *SolicitudHandler) UpdateItem(c *fiber.Ctx) error {
	var in dto.UpdateItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.UpdateItem(c.UserContext(), GetUserID(c), c.Params("id"), c.Params("itemId"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RemoveItem godoc
// @Summary      Quitar renglón
// @Tags         solicitudes
// @Security     Bearer
// @Produce      json
// @Param        id      path  string  true  "ID de la solicitud"
// @Param        itemId  path  string  true  "ID del renglón"
// @Success      200     {object}  dto.SolicitudResponse
// @Router       /api/solicitudes/{id}/items/{itemId} [delete]
func (h *SolicitudHandler) RemoveItem(c *fiber.Ctx) error {
	out, err := h.svc.RemoveItem(c.UserContext(), GetUserID(c), c.Params("id"), c.Params("itemId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Transition devuelve el handler de una acción del flujo (submit, approve, reject, ...).
// El cuerpo es opcional.
//
// @Summary      Aplicar acción del flujo
// @Tags         solicitudes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la solicitud"
// @Param        body  body  dto.TransitionRequest  false  "Comentario, planificador y versión vista"
// @Success      200   {object}  dto.SolicitudResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/solicitudes/{id}/submit [post]
// @Router       /api/solicitudes/{id}/approve [post]
// @Router       /api/solicitudes/{id}/reject [post]
// @Router       /api/solicitudes/{id}/return [post]
// @Router       /api/solicitudes/{id}/assign-planner [post]
// @Router       /api/solicitudes/{id}/close [post]
// @Router       /api/solicitudes/{id}/cancel [post]
func (h *SolicitudHandler) Transition(trigger domsol.Trigger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in dto.TransitionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&in); err != nil {
				return badBody(c)
			}
		}
		out, err := h.svc.Transition(c.UserContext(), GetUserID(c), c.Params("id"), trigger, in)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(out)
	}
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidQuery(key, raw)
	}
	return n, nil
}
