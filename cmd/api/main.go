package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/custody-api/internal/app"
	"github.com/jhoicas/custody-api/internal/infrastructure/metrics"
	"github.com/jhoicas/custody-api/internal/infrastructure/pdf"
	"github.com/jhoicas/custody-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/custody-api/internal/interfaces/http"
	"github.com/jhoicas/custody-api/pkg/config"
	"github.com/jhoicas/custody-api/pkg/logger"
	"github.com/jhoicas/custody-api/pkg/trace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx := context.Background()
	shutdownTracing, err := trace.Init(ctx, cfg.Trace, cfg.App.Name, cfg.App.Env, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar tracing")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	iso, err := postgres.ParseIsolation(cfg.DB.IsolationLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("nivel de aislamiento")
	}
	txRunner := postgres.NewTxRunner(pool, iso)

	m := metrics.New()
	svc := app.NewService(cfg, txRunner, log, app.Options{Metrics: m})

	srv := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		Immutable:    true,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})

	httpRouter.Router(srv, httpRouter.RouterDeps{
		Service:     svc,
		JWTSecret:   cfg.JWT.Secret,
		ServiceName: cfg.App.Name,
		Metrics:     m.Handler(),

		Certificates: pdf.NewCertificateGenerator(),
		SwaggerFile:  swaggerFile(),
	})

	go func() {
		if err := srv.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del tracing")
	}

	log.Info().Msg("aplicación detenida")
}

// swaggerFile devuelve ./docs/swagger.json si existe en el directorio de trabajo.
func swaggerFile() string {
	const path = "./docs/swagger.json"
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
