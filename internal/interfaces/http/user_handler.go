package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/spm-api/internal/application/dto"
)

type userService interface {
	Me(ctx context.Context, userID string) (*dto.ProfileResponse, error)
	List(ctx context.Context, callerID string, in dto.ListUsersRequest) ([]dto.UserResponse, error)
}

// UserHandler perfil propio y búsqueda de usuarios (protegido).
type UserHandler struct {
	svc userService
}

func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Me godoc
// @Summary      Usuario autenticado y sus alcances
// @Tags         users
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ProfileResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/users/me [get]
func (h *UserHandler) Me(c *fiber.Ctx) error {
	out, err := h.svc.Me(c.UserContext(), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Buscar usuarios por rol o email
// @Tags         users
// @Security     Bearer
// @Produce      json
// @Param        role    query  string  false  "Rol"
// @Param        email   query  string  false  "Email exacto"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {array}   dto.UserResponse
// @Failure      403     {object}  dto.ErrorResponse
// @Router       /api/users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	in := dto.ListUsersRequest{Role: c.Query("role"), Email: c.Query("email")}
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
