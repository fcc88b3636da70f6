package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/legal-intake/internal/api/http/handlers"
	"github.com/spec-kit/legal-intake/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Tickets       *handlers.TicketsHandler
	LawyerTickets *handlers.LawyerTicketsHandler
	Guard         *auth.Guard
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/tickets", cfg.Guard.Require(auth.ClientRoles...), cfg.Tickets.CreateTicket)
	app.Get("/tickets", cfg.Guard.Require(auth.ReaderRoles...), cfg.Tickets.ListOwnTickets)
	app.Get("/users/:userId/tickets", cfg.Guard.Require(auth.ReaderRoles...), cfg.Tickets.ListUserTickets)

	lawyer := app.Group("/lawyer/tickets")
	lawyer.Get("", cfg.Guard.Require(auth.LawyerAdminRoles...), cfg.LawyerTickets.ListTickets)
	lawyer.Post("/:id/claim", cfg.Guard.Require(auth.LawyerRoles...), cfg.LawyerTickets.Claim)
	lawyer.Patch("/:id/status", cfg.Guard.Require(auth.LawyerRoles...), cfg.LawyerTickets.UpdateStatus)
	lawyer.Post("/:id/reply", cfg.Guard.Require(auth.LawyerRoles...), cfg.LawyerTickets.Reply)
	lawyer.Get("/:id/history", cfg.Guard.Require(auth.LawyerAdminRoles...), cfg.LawyerTickets.History)
}
