package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mgsa-portal-api/internal/dto"
	"github.com/noah-isme/mgsa-portal-api/internal/middleware"
	"github.com/noah-isme/mgsa-portal-api/internal/service"
	"github.com/noah-isme/mgsa-portal-api/internal/utils"
)

// TutorialHandler exposes the tutorial catalogue.
type TutorialHandler struct {
	service service.TutorialService
	logger  zerolog.Logger
}

// NewTutorialHandler constructs the handler.
func NewTutorialHandler(service service.TutorialService, logger zerolog.Logger) *TutorialHandler {
	return &TutorialHandler{
		service: service,
		logger:  logger.With().Str("component", "tutorial_handler").Logger(),
	}
}

// Register attaches catalogue endpoints.
func (h *TutorialHandler) Register(router fiber.Router) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}

	router.Get("", h.list)
	router.Get("/mine", middleware.WithAuth(h.listMine, staff))
	router.Get("/:id", h.get)
	router.Post("", middleware.WithAuth(h.create, staff))
	router.Patch("/:id", middleware.WithAuth(h.update, staff))
	router.Post("/:id/deactivate", middleware.WithAuth(h.deactivate, staff))
	router.Delete("/:id", middleware.WithAuth(h.delete, staff))
}

func (h *TutorialHandler) list(c *fiber.Ctx) error {
	req, err := tutorialListRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.List(requestContext(c), principalFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list tutorials")
	}

	return utils.OK(c, result.Items, "tutorials retrieved", result.Pagination)
}

func (h *TutorialHandler) listMine(c *fiber.Ctx) error {
	req, err := tutorialListRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.ListMine(requestContext(c), principalFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list tutorials")
	}

	return utils.OK(c, result.Items, "tutorials retrieved", result.Pagination)
}

func (h *TutorialHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	tutorial, err := h.service.Get(requestContext(c), principalFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load tutorial")
	}

	return utils.SendSuccess(c, "tutorial retrieved", tutorial)
}

func (h *TutorialHandler) create(c *fiber.Ctx) error {
	var payload dto.TutorialCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	tutorial, err := h.service.Create(requestContext(c), principalFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create tutorial")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "tutorial created", tutorial)
}

func (h *TutorialHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TutorialUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	tutorial, err := h.service.Update(requestContext(c), principalFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update tutorial")
	}

	return utils.SendSuccess(c, "tutorial updated", tutorial)
}

func (h *TutorialHandler) deactivate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	tutorial, err := h.service.Deactivate(requestContext(c), principalFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to deactivate tutorial")
	}

	return utils.SendSuccess(c, "tutorial deactivated", tutorial)
}

func (h *TutorialHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), principalFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete tutorial")
	}

	return utils.SendSuccess(c, "tutorial deleted", fiber.Map{"id": id})
}

func tutorialListRequest(c *fiber.Ctx) (dto.TutorialListRequest, error) {
	page, pageSize, err := parsePagination(c)
	if err != nil {
		return dto.TutorialListRequest{}, err
	}
	active, err := parseQueryBool(c, "active")
	if err != nil {
		return dto.TutorialListRequest{}, errors.New("invalid active filter")
	}

	return dto.TutorialListRequest{
		Search:     strings.TrimSpace(c.Query("search")),
		Department: strings.TrimSpace(c.Query("department")),
		Instructor: strings.TrimSpace(c.Query("instructor")),
		Active:     active,
		Sort:       c.Query("sort"),
		Page:       page,
		PageSize:   pageSize,
	}, nil
}
