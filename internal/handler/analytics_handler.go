package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mgsa-portal-api/internal/service"
	"github.com/noah-isme/mgsa-portal-api/internal/utils"
)

// AnalyticsHandler exposes analytics endpoints for administrators.
type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  zerolog.Logger
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(service service.AnalyticsService, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// Register attaches analytics routes to the router group.
func (h *AnalyticsHandler) Register(router fiber.Router) {
	router.Get("/tutorials", h.tutorials)
}

func (h *AnalyticsHandler) tutorials(c *fiber.Ctx) error {
	summary, err := h.service.TutorialSummary(requestContext(c), principalFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load analytics")
	}

	return utils.OK(c, summary, "tutorial analytics", fiber.Map{"cache_hit": summary.CacheHit})
}
