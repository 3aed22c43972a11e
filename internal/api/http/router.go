package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Categories     *handlers.CategoriesHandler
	Admin          *handlers.AdminHandler
	Auth           *handlers.AuthHandler
	WS             *handlers.WSHandler
	AuthMiddleware *auth.AuthMiddleware
	// Metrics is optional; nil leaves /metrics unregistered.
	Metrics nethttp.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	app.Get("/ws", cfg.WS.Upgrade, cfg.WS.Serve())

	authGroup := app.Group("/auth", cfg.AuthMiddleware.Load)
	authGroup.Get("/discord", cfg.Auth.DiscordLogin)
	authGroup.Get("/discord/callback", cfg.Auth.DiscordCallback)
	authGroup.Get("/logout", cfg.Auth.Logout)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/local/login", cfg.Auth.LocalLogin)

	requireAdmin := auth.RequireAdmin()
	api := app.Group("/api", cfg.AuthMiddleware.Load)
	api.Get("/auth/me", auth.RequireAuth(), cfg.Auth.Me)

	api.Get("/categories", cfg.Categories.List)
	api.Get("/categories/server/:serverId", cfg.Categories.ListByServer)
	api.Post("/categories", requireAdmin, cfg.Categories.Create)

	tickets := api.Group("/tickets", auth.RequireAuth())
	tickets.Get("", cfg.Tickets.List)
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("/server/:serverId", requireAdmin, cfg.Tickets.ListByServer)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", cfg.Tickets.Update)
	tickets.Get("/:id/messages", cfg.Tickets.ListMessages)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)

	api.Get("/admin/stats", requireAdmin, cfg.Admin.Stats)
	api.Get("/servers", requireAdmin, cfg.Admin.ListServers)
	api.Get("/servers/:id", requireAdmin, cfg.Admin.GetServer)
	api.Post("/servers", requireAdmin, cfg.Admin.CreateServer)
	api.Patch("/servers/:id", requireAdmin, cfg.Admin.UpdateServer)
	api.Get("/bot-settings/:serverId", requireAdmin, cfg.Admin.GetBotSettings)
	api.Post("/bot-settings", requireAdmin, cfg.Admin.CreateBotSettings)
	api.Patch("/bot-settings/:serverId", requireAdmin, cfg.Admin.UpdateBotSettings)
}
