package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-checker/internal/api/http/handlers"
	"github.com/spec-kit/request-checker/internal/auth"
	"github.com/spec-kit/request-checker/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Internal       *handlers.InternalHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
	// InternalSecretHash guards the scheduler endpoints; empty disables it.
	InternalSecretHash string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	internalOnly := auth.InternalSecretGuard(cfg.InternalSecretHash)
	app.Post("/cron/sendReminders", internalOnly, cfg.Internal.SendReminders)
	app.Get("/cron/sendReminders", internalOnly, cfg.Internal.RemindersHint)
	app.Post("/notify/statusUpdate", internalOnly, cfg.Internal.NotifyStatusUpdate)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)
	api.Get("/me", cfg.Users.Me)
	api.Get("/users/partners", auth.RequireRole(domain.UserRoleSales, domain.UserRoleAdmin), cfg.Users.ListPartners)

	api.Post("/tickets", cfg.Tickets.CreateTicket)
	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	api.Patch("/tickets/:id", cfg.Tickets.UpdateTicket)
	api.Post("/tickets/:id/status", cfg.Tickets.UpdateStatus)
	api.Delete("/tickets/:id", cfg.Tickets.DeleteTicket)

	adminOnly := auth.RequireRole(domain.UserRoleAdmin)
	api.Get("/dashboard", adminOnly, cfg.Dashboard.Stats)
	api.Get("/notifications", adminOnly, cfg.Dashboard.Notifications)
}
