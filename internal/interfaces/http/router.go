package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	domsol "github.com/jhoicas/spm-api/internal/domain/solicitud"
	"github.com/jhoicas/spm-api/pkg/logger"
)

// httpMetrics lo que el router usa del colector de métricas (lo implementa *metrics.Metrics).
type httpMetrics interface {
	httpObserver
	duplicateRecorder
}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	SolicitudUC solicitudService
	GrantUC     grantService
	UserUC      userService
	JWTSecret   string
	// Idempotency es opcional; sin Redis la cabecera Idempotency-Key se ignora.
	Idempotency    idempotencyStore
	IdempotencyTTL time.Duration
	Metrics        httpMetrics
	Log            *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Log != nil {
		app.Use(LoggerMiddleware(deps.Log))
	}
	if deps.Metrics != nil {
		app.Use(MetricsMiddleware(deps.Metrics))
	}
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Solicitudes
	sol := protected.Group("/solicitudes")
	h := NewSolicitudHandler(deps.SolicitudUC)
	create := []fiber.Handler{h.Create}
	if deps.Idempotency != nil {
		var rec duplicateRecorder
		if deps.Metrics != nil {
			rec = deps.Metrics
		}
		create = append([]fiber.Handler{RequireIdempotency(deps.Idempotency, deps.IdempotencyTTL, rec)}, create...)
	}
	sol.Post("/", create...)
	sol.Get("/", h.List)
	sol.Get("/:id", h.GetByID)
	sol.Put("/:id", h.UpdateHeader)
	sol.Post("/:id/items", h.AddItem)
	sol.Put("/:id/items/:itemId", h.UpdateItem)
	sol.Delete("/:id/items/:itemId", h.RemoveItem)

	sol.Post("/:id/submit", h.Transition(domsol.TriggerSubmit))
	sol.Post("/:id/approve", h.Transition(domsol.TriggerApprove))
	sol.Post("/:id/reject", h.Transition(domsol.TriggerReject))
	sol.Post("/:id/return", h.Transition(domsol.TriggerReturnForEdit))
	sol.Post("/:id/assign-planner", h.Transition(domsol.TriggerAssignPlanner))
	sol.Post("/:id/close", h.Transition(domsol.TriggerClose))
	sol.Post("/:id/cancel", h.Transition(domsol.TriggerCancel))

	// Usuarios
	uh := NewUserHandler(deps.UserUC)
	protected.Get("/users/me", uh.Me)
	protected.Get("/users", RequireRole("admin", "aprobador"), uh.List)

	// Alcances (solo admin)
	gh := NewGrantHandler(deps.GrantUC)
	adminOnly := RequireRole("admin")
	protected.Get("/users/:id/grants", adminOnly, gh.List)
	protected.Post("/users/:id/grants", adminOnly, gh.Create)
	protected.Delete("/grants/:id", adminOnly, gh.Delete)
}
