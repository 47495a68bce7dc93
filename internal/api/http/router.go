package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/realtime"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Attachments    *handlers.AttachmentsHandler
	Users          *handlers.UsersHandler
	Reports        *handlers.ReportsHandler
	Realtime       *realtime.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/login", cfg.Auth.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/me", cfg.Auth.Me)

	protected.Post("/tickets", cfg.Tickets.CreateTicket)
	protected.Get("/tickets", cfg.Tickets.ListTickets)
	protected.Get("/tickets/:id", cfg.Tickets.GetTicket)
	protected.Put("/tickets/:id", cfg.Tickets.UpdateTicket)

	protected.Get("/tickets/:id/messages", cfg.Tickets.ListMessages)
	protected.Post("/tickets/:id/messages", cfg.Tickets.PostMessage)

	protected.Get("/tickets/:id/attachments", cfg.Attachments.List)
	protected.Post("/tickets/:id/attachments", cfg.Attachments.Upload)
	protected.Get("/tickets/:id/attachments/:attachmentID/download", cfg.Attachments.Download)
	protected.Get("/attachments/:attachmentID/download", cfg.Attachments.DownloadByID)

	protected.Get("/technicians", cfg.Users.ListTechnicians)

	adminOnly := auth.RequireRole(domain.RoleAdministrator)
	protected.Post("/users", adminOnly, cfg.Users.Create)
	protected.Get("/users", adminOnly, cfg.Users.List)
	protected.Get("/users/:id", adminOnly, cfg.Users.Get)
	protected.Put("/users/:id", adminOnly, cfg.Users.Update)

	management := auth.RequireRole(domain.RoleAdministrator, domain.RoleDirector)
	protected.Get("/reports/export", management, cfg.Reports.Export)

	staff := auth.RequireRole(domain.RoleAdministrator, domain.RoleDirector, domain.RoleTechnician)
	protected.Get("/dashboard/stats", staff, cfg.Reports.Dashboard)

	// Websocket auth rides the token query parameter inside the handler.
	app.Get("/ws", cfg.Realtime.Upgrade, cfg.Realtime.Serve())
}
