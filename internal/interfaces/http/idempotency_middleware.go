package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/spm-api/internal/application/dto"
)

// HeaderIdempotencyKey cabecera opcional en la creación de solicitudes.
const HeaderIdempotencyKey = "Idempotency-Key"

// idempotencyStore contrato mínimo del almacén de claves (lo implementa *cache.IdempotencyStore).
type idempotencyStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Complete(ctx context.Context, key, resourceID string) error
	Lookup(ctx context.Context, key string) (string, error)
	Release(ctx context.Context, key string) error
}

type duplicateRecorder interface {
	RecordDuplicate()
}

// RequireIdempotency reserva la Idempotency-Key del usuario antes de ejecutar el handler.
// Debe usarse DESPUÉS de AuthMiddleware (la clave se separa por usuario).
//
// Comportamiento:
//   - sin cabecera: pasa directo.
//   - clave ya reservada: 409 DUPLICATE_REQUEST, con solicitud_id si la primera petición terminó.
//   - respuesta 2xx: la clave queda asociada al id guardado en LocalResourceID.
//   - error o respuesta no 2xx: la clave se libera para permitir reintentar.
//   - fallo del almacén: 503.
func RequireIdempotency(store idempotencyStore, ttl time.Duration, rec duplicateRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(HeaderIdempotencyKey)
		if raw == "" {
			return c.Next()
		}
		if len(raw) > 128 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Code:    "VALIDATION",
				Message: "Idempotency-Key demasiado larga",
			})
		}
		key := GetUserID(c) + ":" + raw
		ctx := c.UserContext()

		reserved, err := store.Reserve(ctx, key, ttl)
		if err != nil {
			loggerFrom(c).Error().Err(err).Msg("idempotencia: no se pudo reservar la clave")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "IDEMPOTENCY_UNAVAILABLE",
				Message: "no se pudo verificar la clave de idempotencia, intente más tarde",
			})
		}
		if !reserved {
			if rec != nil {
				rec.RecordDuplicate()
			}
			resp := dto.ErrorResponse{Code: "DUPLICATE_REQUEST", Message: "la petición ya fue recibida"}
			if id, _ := store.Lookup(ctx, key); id != "" {
				resp.Fields = map[string]string{"solicitud_id": id}
			}
			return c.Status(fiber.StatusConflict).JSON(resp)
		}

		herr := c.Next()
		status := c.Response().StatusCode()
		if herr != nil || status < 200 || status >= 300 {
			if err := store.Release(context.WithoutCancel(ctx), key); err != nil {
				loggerFrom(c).Warn().Err(err).Msg("idempotencia: no se pudo liberar la clave")
			}
			return herr
		}
		id, _ := c.Locals(LocalResourceID).(string)
		if err := store.Complete(context.WithoutCancel(ctx), key, id); err != nil {
			loggerFrom(c).Warn().Err(err).Msg("idempotencia: no se pudo completar la clave")
		}
		return nil
	}
}
