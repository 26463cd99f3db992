package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appaccess "github.com/jhoicas/spm-api/internal/application/access"
	appsolicitud "github.com/jhoicas/spm-api/internal/application/solicitud"
	"github.com/jhoicas/spm-api/internal/infrastructure/cache"
	"github.com/jhoicas/spm-api/internal/infrastructure/metrics"
	"github.com/jhoicas/spm-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/spm-api/internal/interfaces/http"
	"github.com/jhoicas/spm-api/pkg/config"
	"github.com/jhoicas/spm-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	grantRepo := postgres.NewAccessGrantRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)
	solicitudRepo := postgres.NewSolicitudRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	m := metrics.New(true)
	resolver := appaccess.NewResolver(userRepo, grantRepo)
	solicitudUC := appsolicitud.NewUseCase(
		txRunner, solicitudRepo, catalogRepo, userRepo, resolver,
		m, log, cfg.Workflow.MaxRetries,
	)
	grantUC := appaccess.NewGrantUseCase(resolver, userRepo, grantRepo, catalogRepo, log)
	userUC := appaccess.NewUserUseCase(resolver, userRepo)

	deps := httpRouter.RouterDeps{
		SolicitudUC: solicitudUC,
		GrantUC:     grantUC,
		UserUC:      userUC,
		JWTSecret:   cfg.JWT.Secret,
		Metrics:     m,
		Log:         log,
	}

	// Redis es opcional: sin REDIS_ADDR la cabecera Idempotency-Key no se aplica.
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		defer rdb.Close()
		deps.Idempotency = cache.NewIdempotencyStore(rdb, "")
		deps.IdempotencyTTL = cfg.Redis.IdempotencyTTL
	} else {
		log.Warn().Msg("REDIS_ADDR vacío: idempotencia desactivada")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "SPM API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	httpRouter.Router(app, deps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
