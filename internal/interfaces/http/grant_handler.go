package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/spm-api/internal/application/dto"
)

type grantService interface {
	Create(ctx context.Context, adminID, userID string, in dto.CreateGrantRequest) (*dto.GrantResponse, error)
	ListByUser(ctx context.Context, adminID, userID string) ([]dto.GrantResponse, error)
	Delete(ctx context.Context, adminID, grantID string) error
}

// GrantHandler administra los alcances (centro / almacén) de aprobadores y planificadores. Solo admin.
type GrantHandler struct {
	svc grantService
}

func NewGrantHandler(svc grantService) *GrantHandler {
	return &GrantHandler{svc: svc}
}

// Create godoc
// @Summary      Otorgar alcance a un usuario
// @Tags         grants
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del usuario"
// @Param        body  body  dto.CreateGrantRequest  true  "Alcance"
// @Success      201   {object}  dto.GrantResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/users/{id}/grants [post]
func (h *GrantHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateGrantRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.Create(c.UserContext(), GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Alcances de un usuario
// @Tags         grants
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del usuario"
// @Success      200  {array}   dto.GrantResponse
// @Router       /api/users/{id}/grants [get]
func (h *GrantHandler) List(c *fiber.Ctx) error {
	out, err := h.svc.ListByUser(c.UserContext(), GetUserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Revocar alcance
// @Tags         grants
// @Security     Bearer
// @Param        id   path  string  true  "ID del alcance"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/grants/{id} [delete]
func (h *GrantHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), GetUserID(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
