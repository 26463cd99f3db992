package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/spm-api/internal/application/dto"
	"github.com/jhoicas/spm-api/internal/domain"
	"github.com/jhoicas/spm-api/pkg/logger"
)

var errorStatus = []struct {
	kind   error
	status int
	code   string
}{
	{domain.ErrValidation, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrInvalidState, fiber.StatusConflict, "INVALID_STATE"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrConcurrencyConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
}

// writeError traduce un error de la aplicación a status HTTP y dto.ErrorResponse.
// Los errores sin tipo de dominio responden 500 sin exponer el detalle.
func writeError(c *fiber.Ctx, err error) error {
	for _, e := range errorStatus {
		if errors.Is(err, e.kind) {
			msg := e.kind.Error()
			var de *domain.Error
			if errors.As(err, &de) && de.Message != "" {
				msg = de.Message
			}
			return c.Status(e.status).JSON(dto.ErrorResponse{Code: e.code, Message: msg, Fields: domain.FieldsOf(err)})
		}
	}
	loggerFrom(c).Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

// LocalLogger clave de c.Locals con el *logger.Logger de la petición.
const LocalLogger = "logger"

var nopLogger = logger.Nop()

// LoggerMiddleware deja el logger de la aplicación disponible para handlers y middlewares.
func LoggerMiddleware(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(LocalLogger, log)
		return c.Next()
	}
}

func loggerFrom(c *fiber.Ctx) *logger.Logger {
	if l, ok := c.Locals(LocalLogger).(*logger.Logger); ok && l != nil {
		return l
	}
	return nopLogger
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func invalidQuery(key, raw string) error {
	return domain.Validation("parámetro inválido: " + key).With("campo", key).With("valor", raw)
}
