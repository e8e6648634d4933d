package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/govdesk/internal/api/http/handlers"
	"github.com/spec-kit/govdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Departments    *handlers.DepartmentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/customers/register", cfg.Auth.RegisterCustomer)
	authGroup.Post("/customers/login", cfg.Auth.LoginCustomer)
	authGroup.Post("/staff/login", cfg.Auth.LoginStaff)

	app.Get("/departments", cfg.Departments.ListDepartments)
	app.Get("/departments/:id", cfg.Departments.GetDepartment)
	app.Get("/departments/:id/slots", cfg.Departments.DaySlots)

	// availability is a public read; registered before /tickets/:id so the
	// static path wins
	app.Get("/tickets/check-availability", cfg.Tickets.CheckAvailability)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", auth.RequireStaffRole(), cfg.Tickets.UpdateTicket)
	tickets.Put("/:id/approve", auth.RequireStaffRole(), cfg.Tickets.ApproveTicket)
	tickets.Put("/:id/reject", auth.RequireStaffRole(), cfg.Tickets.RejectTicket)
	tickets.Delete("/:id", cfg.Tickets.CancelTicket)
}
