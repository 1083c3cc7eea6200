package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
	"github.com/noah-isme/mgsa-portal-api/internal/utils"
)

// Auth role constants used by WithAuth helper.
const (
	AuthRoleAny     = "any"
	AuthRoleStudent = "student"
	AuthRoleStaff   = "staff"
	AuthRoleAdmin   = "admin"
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps a handler with basic authentication/authorization guards.
// Any role other than AuthRoleAny implies RequireUser.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}

	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		userID := UserIDFromLocals(c)
		if requireUser && userID == 0 {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		if role == AuthRoleAny {
			return handler(c)
		}

		current := RoleFromLocals(c)
		allowed := false
		switch role {
		case AuthRoleStudent:
			allowed = current == models.RoleStudent
		case AuthRoleStaff:
			allowed = current.IsStaff()
		case AuthRoleAdmin:
			allowed = current == models.RoleAdmin
		default:
			allowed = current == models.ParseRole(role) && current.Valid()
		}
		if !allowed {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}

		return handler(c)
	}
}
