package http

import (
	nethttp "net/http"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/custody-api/docs"
	"github.com/jhoicas/custody-api/internal/application/command"
	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Service     *command.Service
	JWTSecret   string
	ServiceName string

	// Metrics handler Prometheus expuesto en /metrics (opcional).
	Metrics      nethttp.Handler
	// Certificates genera la constancia PDF de una sesión (opcional).
	Certificates ports.CertificateRenderer
	// SwaggerFile ruta del swagger.json servido en /docs; vacío no monta la UI.
	SwaggerFile  string
}

// Router registra middlewares globales y las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(recover.New())
	app.Use(RequestMeta())

	if deps.SwaggerFile != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: deps.SwaggerFile,
			Path:     "docs",
			Title:    "Custody API",
		}))
	}
	app.Get("/openapi.json", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		return c.SendString(docs.SwaggerInfo.ReadDoc())
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	api := app.Group("/api")
	authHandler := NewAuthHandler(deps.Service)
	userHandler := NewUserHandler(deps.Service)
	companyHandler := NewCompanyHandler(deps.Service)
	sessionHandler := NewSessionHandler(deps.Service, deps.Certificates)
	auditHandler := NewAuditHandler(deps.Service)

	// Auth (público)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("", AuthMiddleware(deps.JWTSecret))
	protected.Post("/auth/logout", authHandler.Logout)

	users := protected.Group("/users")
	users.Post("/", userHandler.Create)
	users.Get("/:id/balance", userHandler.Balance)
	users.Get("/:id/transactions", userHandler.Transactions)

	protected.Post("/coins/allocate", userHandler.Allocate)

	companies := protected.Group("/companies")
	companies.Post("/", companyHandler.Create)
	companies.Get("/:id", companyHandler.GetByID)
	companies.Delete("/:id", companyHandler.Delete)

	sessions := protected.Group("/sessions", RequireActiveCompany(deps.Service))
	sessions.Post("/", sessionHandler.Create)
	sessions.Get("/:id", sessionHandler.GetByID)
	sessions.Post("/:id/transition", sessionHandler.Transition)
	sessions.Post("/:id/seal/scan", sessionHandler.ScanSeal)
	sessions.Post("/:id/seal/verify", sessionHandler.VerifySeal)
	sessions.Get("/:id/certificate", sessionHandler.Certificate)

	protected.Get("/audit/actors/:id", auditHandler.ActorTrail)
	protected.Get("/audit/:type/:id", auditHandler.Trail)

	// Operación de plataforma: solo SUPERADMIN
	admin := protected.Group("/admin", RequireRole(entity.RoleSuperAdmin))
	admin.Post("/mint", userHandler.Mint)
	admin.Get("/users/:id/reconcile", userHandler.Reconcile)
}
