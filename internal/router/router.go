package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/escola-ledger-api/internal/config"
	"github.com/noah-isme/escola-ledger-api/internal/handler"
	"github.com/noah-isme/escola-ledger-api/internal/middleware"
	"github.com/noah-isme/escola-ledger-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	LedgerHandler     *handler.LedgerHandler
	PaymentHandler    *handler.PaymentHandler
	CreditNoteHandler *handler.CreditNoteHandler
	EnrollmentHandler *handler.EnrollmentHandler
	GuardianHandler   *handler.GuardianHandler
	ActivityHandler   *handler.AdminActivityHandler
	JWTMiddleware     fiber.Handler
	Database          handler.Pinger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Database))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	staff := middleware.RequireRole(middleware.RoleCashier, middleware.RoleSecretary)
	adminOnly := middleware.RequireRole(middleware.RoleAdmin)

	if deps.LedgerHandler != nil {
		deps.LedgerHandler.Register(api.Group("/students", jwtMiddleware, staff), adminOnly)
	}

	if deps.PaymentHandler != nil {
		payments := api.Group("/payments", jwtMiddleware, staff, middleware.RateLimit("payments", 30, time.Minute))
		deps.PaymentHandler.Register(payments)
	}

	if deps.CreditNoteHandler != nil {
		deps.CreditNoteHandler.Register(api.Group("/credit-notes", jwtMiddleware, adminOnly))
	}

	if deps.EnrollmentHandler != nil {
		deps.EnrollmentHandler.Register(api.Group("/enrollments", jwtMiddleware, staff))
	}

	if deps.GuardianHandler != nil {
		deps.GuardianHandler.Register(api.Group("/guardians", jwtMiddleware, adminOnly))
	}

	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api.Group("/activities", jwtMiddleware, adminOnly))
	}
}
