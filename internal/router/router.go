package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/mgsa-portal-api/internal/config"
	"github.com/noah-isme/mgsa-portal-api/internal/handler"
	"github.com/noah-isme/mgsa-portal-api/internal/middleware"
	"github.com/noah-isme/mgsa-portal-api/internal/models"
	"github.com/noah-isme/mgsa-portal-api/internal/observability"
)

// Dependencies groups router dependencies for registration. Nil handlers
// leave their routes unregistered.
type Dependencies struct {
	TutorialHandler     *handler.TutorialHandler
	RegistrationHandler *handler.RegistrationHandler
	MaterialHandler     *handler.MaterialHandler
	DashboardHandler    *handler.DashboardHandler
	AnalyticsHandler    *handler.AnalyticsHandler
	ActivityHandler     *handler.ActivityHandler
	UserHandler         *handler.UserHandler
	NotificationHandler *handler.NotificationHandler
	HealthProbes        []handler.HealthProbe
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	v2 := app.Group("/api/v2", jwtMiddleware)

	tutorials := v2.Group("/tutorials")
	if deps.RegistrationHandler != nil {
		window := cfg.RegisterRateWindow
		if window <= 0 {
			window = time.Minute
		}
		limiter := middleware.RateLimit("tutorial-register", cfg.RegisterRateLimit, window)
		deps.RegistrationHandler.RegisterTutorialRoutes(tutorials, limiter)
		deps.RegistrationHandler.Register(v2.Group("/registrations"))
	}
	if deps.MaterialHandler != nil {
		deps.MaterialHandler.Register(tutorials)
	}
	if deps.TutorialHandler != nil {
		deps.TutorialHandler.Register(tutorials)
	}

	if deps.DashboardHandler != nil {
		deps.DashboardHandler.RegisterStudent(v2.Group("/student"))
		deps.DashboardHandler.RegisterExecutive(v2.Group("/executive"))
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(v2.Group("/notifications"))
	}

	admin := app.Group("/api/admin", jwtMiddleware, middleware.RequireRole(models.RoleAdmin))
	if deps.AnalyticsHandler != nil {
		deps.AnalyticsHandler.Register(admin.Group("/analytics"))
	}
	if deps.RegistrationHandler != nil {
		deps.RegistrationHandler.RegisterAdmin(admin)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(admin.Group("/activities"))
	}
	if deps.UserHandler != nil {
		deps.UserHandler.Register(admin.Group("/users"))
	}
}
