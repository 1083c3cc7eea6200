package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mgsa-portal-api/internal/middleware"
	"github.com/noah-isme/mgsa-portal-api/internal/service"
	"github.com/noah-isme/mgsa-portal-api/internal/utils"
)

// MaterialHandler handles tutorial material uploads.
type MaterialHandler struct {
	service service.MaterialService
	logger  zerolog.Logger
}

// NewMaterialHandler constructs a material handler.
func NewMaterialHandler(service service.MaterialService, logger zerolog.Logger) *MaterialHandler {
	return &MaterialHandler{
		service: service,
		logger:  logger.With().Str("component", "material_handler").Logger(),
	}
}

// Register wires material routes beneath a tutorial group.
func (h *MaterialHandler) Register(router fiber.Router) {
	router.Get("/:id/materials", h.list)
	router.Post("/:id/materials", middleware.WithAuth(h.upload, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
}

func (h *MaterialHandler) list(c *fiber.Ctx) error {
	tutorialID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	materials, err := h.service.List(requestContext(c), principalFromContext(c), tutorialID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list materials")
	}

	return utils.SendSuccess(c, "materials retrieved", materials)
}

func (h *MaterialHandler) upload(c *fiber.Ctx) error {
	tutorialID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	material, err := h.service.Upload(requestContext(c), principalFromContext(c), tutorialID, c.FormValue("title"), file)
	if err != nil {
		return respondError(c, h.logger, err, "upload failed")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "upload successful", material)
}
