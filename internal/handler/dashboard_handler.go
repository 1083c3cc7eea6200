package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mgsa-portal-api/internal/middleware"
	"github.com/noah-isme/mgsa-portal-api/internal/service"
	"github.com/noah-isme/mgsa-portal-api/internal/utils"
)

// DashboardHandler exposes the student and executive dashboards.
type DashboardHandler struct {
	service service.DashboardService
	logger  zerolog.Logger
}

// NewDashboardHandler creates a new handler instance.
func NewDashboardHandler(service service.DashboardService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// RegisterStudent attaches the student dashboard endpoint.
func (h *DashboardHandler) RegisterStudent(router fiber.Router) {
	router.Get("/dashboard", middleware.WithAuth(h.student, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
}

// RegisterExecutive attaches the executive dashboard endpoint.
func (h *DashboardHandler) RegisterExecutive(router fiber.Router) {
	router.Get("/dashboard", middleware.WithAuth(h.executive, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
}

func (h *DashboardHandler) student(c *fiber.Ctx) error {
	dashboard, err := h.service.Student(requestContext(c), principalFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load dashboard")
	}

	return utils.OK(c, dashboard, "dashboard retrieved", fiber.Map{"cache_hit": dashboard.CacheHit})
}

func (h *DashboardHandler) executive(c *fiber.Ctx) error {
	dashboard, err := h.service.Executive(requestContext(c), principalFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load dashboard")
	}

	return utils.OK(c, dashboard, "dashboard retrieved", fiber.Map{"cache_hit": dashboard.CacheHit})
}
