package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mgsa-portal-api/internal/dto"
	"github.com/noah-isme/mgsa-portal-api/internal/middleware"
	"github.com/noah-isme/mgsa-portal-api/internal/policy"
	"github.com/noah-isme/mgsa-portal-api/internal/service"
	"github.com/noah-isme/mgsa-portal-api/internal/utils"
)

func principalFromContext(c *fiber.Ctx) policy.Principal {
	return policy.Principal{
		ID:   middleware.UserIDFromLocals(c),
		Role: middleware.RoleFromLocals(c),
	}
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	parsed, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseQueryBool(c *fiber.Ctx, key string) (*bool, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseQueryTime accepts RFC 3339 timestamps or plain dates, which are read
// as midnight UTC.
func parseQueryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, dto.DateLayout} {
		if parsed, err := time.Parse(layout, value); err == nil {
			utc := parsed.UTC()
			return &utc, nil
		}
	}
	return nil, fmt.Errorf("invalid %s", key)
}

func parsePagination(c *fiber.Ctx) (int, int, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return 0, 0, errors.New("invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return 0, 0, errors.New("invalid page_size")
	}
	return page, pageSize, nil
}

// validationDetails flattens validator errors into field -> rule pairs.
func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		rule := fieldErr.Tag()
		if param := fieldErr.Param(); param != "" {
			rule += "=" + param
		}
		details[toSnakeCase(fieldErr.Field())] = rule
	}
	return details
}

func toSnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// respondError translates service errors into the JSON error envelope.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	if details := validationDetails(err); details != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", details)
	}

	switch {
	case errors.Is(err, service.ErrTutorialNotFound),
		errors.Is(err, service.ErrRegistrationNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNotificationNotFound):
		return utils.Fail(c, fiber.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrTutorialNotActive),
		errors.Is(err, service.ErrTutorialFull),
		errors.Is(err, service.ErrAlreadyRegistered),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrCapacityBelowRegistrations),
		errors.Is(err, service.ErrAccountExists):
		return utils.Fail(c, fiber.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrPermissionDenied):
		return utils.Fail(c, fiber.StatusForbidden, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidSchedule),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrUploadMissing),
		errors.Is(err, service.ErrUploadTypeNotAllowed),
		errors.Is(err, service.ErrUploadScanFailed):
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.Fail(c, fiber.StatusRequestEntityTooLarge, err.Error(), nil)
	case errors.Is(err, service.ErrStorageUnavailable):
		return utils.Fail(c, fiber.StatusServiceUnavailable, err.Error(), nil)
	}

	reqLogger := middleware.RequestLogger(c, logger)
	reqLogger.Error().Err(err).Str("path", c.Path()).Msg(fallback)
	return utils.Fail(c, fiber.StatusInternalServerError, fallback, nil)
}
