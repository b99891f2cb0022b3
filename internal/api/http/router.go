package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/signal-service/internal/api/http/handlers"
	"github.com/spec-kit/signal-service/internal/auth"
	"github.com/spec-kit/signal-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Agents         *handlers.AgentsHandler
	Signals        *handlers.SignalsHandler
	Soap           *handlers.SoapHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/agents/register", cfg.Agents.Register)
	authGroup.Post("/agents/login", cfg.Agents.Login)

	protectedAuth := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAgent())
	protectedAuth.Post("/password/change", cfg.Agents.ChangePassword)

	signals := app.Group("/signals", cfg.AuthMiddleware.Handle, auth.RequireAgent())
	signals.Post("", auth.RequireCapability(domain.CapabilityManageSignals), cfg.Signals.CreateSignal)
	signals.Get("/:id", cfg.Signals.GetSignal)
	signals.Get("/:id/history", cfg.Signals.GetHistory)
	signals.Post("/:id/status", auth.RequireCapability(domain.CapabilityManageSignals), cfg.Signals.ChangeStatus)

	app.Post("/citycontrol/soap", cfg.AuthMiddleware.Handle, cfg.Soap.Receive)
}
