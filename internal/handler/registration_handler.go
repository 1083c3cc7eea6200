package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mgsa-portal-api/internal/middleware"
	"github.com/noah-isme/mgsa-portal-api/internal/service"
	"github.com/noah-isme/mgsa-portal-api/internal/utils"
)

// RegistrationHandler exposes the tutorial registration ledger.
type RegistrationHandler struct {
	service service.RegistrationService
	logger  zerolog.Logger
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(service service.RegistrationService, logger zerolog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		service: service,
		logger:  logger.With().Str("component", "registration_handler").Logger(),
	}
}

// RegisterTutorialRoutes attaches the per-tutorial ledger endpoints. The
// limiter guards seat claims only.
func (h *RegistrationHandler) RegisterTutorialRoutes(router fiber.Router, limiter fiber.Handler) {
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}

	router.Post("/:id/registrations", limiter, middleware.WithAuth(h.register, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
	router.Get("/:id/registrations", middleware.WithAuth(h.roster, staff))
	router.Post("/:id/reconcile", middleware.WithAuth(h.reconcile, staff))
}

// Register attaches the registration endpoints.
func (h *RegistrationHandler) Register(router fiber.Router) {
	router.Get("/mine", middleware.WithAuth(h.listMine, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
	router.Post("/:id/cancel", middleware.WithAuth(h.cancel, middleware.AuthOptions{RequireUser: true}))
	router.Post("/:id/attend", middleware.WithAuth(h.attend, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
}

// RegisterAdmin attaches the ledger maintenance endpoint.
func (h *RegistrationHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/tutorials/reconcile", h.reconcileAll)
}

func (h *RegistrationHandler) register(c *fiber.Ctx) error {
	tutorialID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Register(requestContext(c), principalFromContext(c), tutorialID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to register for tutorial")
	}

	message := "registered for tutorial"
	if result.Reactivated {
		message = "registration reactivated"
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, message, result)
}

func (h *RegistrationHandler) roster(c *fiber.Ctx) error {
	tutorialID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	roster, err := h.service.ListRegistrations(requestContext(c), principalFromContext(c), tutorialID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load registrations")
	}

	return utils.SendSuccess(c, "registrations retrieved", roster)
}

func (h *RegistrationHandler) reconcile(c *fiber.Ctx) error {
	tutorialID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Reconcile(requestContext(c), principalFromContext(c), tutorialID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to reconcile tutorial")
	}

	return utils.SendSuccess(c, "tutorial reconciled", result)
}

func (h *RegistrationHandler) reconcileAll(c *fiber.Ctx) error {
	result, err := h.service.ReconcileAll(requestContext(c), principalFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to reconcile tutorials")
	}

	return utils.SendSuccess(c, "tutorials reconciled", result)
}

func (h *RegistrationHandler) listMine(c *fiber.Ctx) error {
	registrations, err := h.service.ListMine(requestContext(c), principalFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load registrations")
	}

	return utils.SendSuccess(c, "registrations retrieved", registrations)
}

func (h *RegistrationHandler) cancel(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	registration, err := h.service.Cancel(requestContext(c), principalFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to cancel registration")
	}

	return utils.SendSuccess(c, "registration cancelled", registration)
}

func (h *RegistrationHandler) attend(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	registration, err := h.service.MarkAttended(requestContext(c), principalFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to mark attendance")
	}

	return utils.SendSuccess(c, "attendance recorded", registration)
}
