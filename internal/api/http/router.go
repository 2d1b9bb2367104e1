package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	Technicians    *handlers.TechniciansHandler
	Categories     *handlers.CategoriesHandler
	Settings       *handlers.SettingsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireRole(), cfg.Auth.ChangePassword)

	authenticated := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireRole()}

	tickets := app.Group("/tickets", authenticated...)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Post("", auth.RequireRole(domain.RoleClient), cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)

	app.Get("/categories", cfg.AuthMiddleware.Handle, cfg.Categories.List)

	notifications := app.Group("/notifications", authenticated...)
	notifications.Get("", cfg.Notifications.List)
	notifications.Delete("", cfg.Notifications.Clear)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Post("/tickets/assign", cfg.AdminTickets.AssignBatch)
	admin.Get("/tickets/export", cfg.AdminTickets.Export)
	admin.Post("/tickets/:id/assign", cfg.AdminTickets.AssignOne)
	admin.Get("/technicians/workload", cfg.AdminTickets.Workload)
	admin.Get("/metrics", cfg.AdminTickets.Metrics)

	admin.Post("/users", cfg.Auth.CreateUser)

	admin.Post("/technicians", cfg.Technicians.Create)
	admin.Get("/technicians", cfg.Technicians.List)
	admin.Patch("/technicians/:id", cfg.Technicians.Update)
	admin.Post("/technicians/:id/link", cfg.Technicians.Link)

	admin.Post("/categories", cfg.Categories.Create)
	admin.Post("/categories/:id/subcategories", cfg.Categories.CreateSubcategory)

	admin.Get("/settings", cfg.Settings.Get)
	admin.Put("/settings", cfg.Settings.Put)
}
