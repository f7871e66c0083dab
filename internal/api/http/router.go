package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/fungi-catalog/internal/api/http/handlers"
	"github.com/spec-kit/fungi-catalog/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	API            *handlers.APIAuthHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        http.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	mw := cfg.AuthMiddleware

	web := app.Group("/auth", mw.Handle)
	web.Post("/register", cfg.Auth.Register)
	web.Post("/login", cfg.Auth.Login)
	web.Post("/logout", cfg.Auth.Logout)
	web.Get("/me", mw.RequireSession, cfg.Auth.Me)

	api := app.Group("/api", mw.Handle)
	api.Post("/login", cfg.API.Login)
	api.Post("/logout", cfg.API.Logout)
	api.Post("/verify", cfg.API.Verify)

	admin := api.Group("/admin", mw.RequireSession, mw.RequireAdmin)
	admin.Post("/users/:id/sessions/revoke", cfg.Admin.RevokeSessions)
	admin.Put("/users/:id/role", cfg.Admin.SetRole)
	admin.Post("/tokens/revoke", cfg.Admin.RevokeToken)
}
