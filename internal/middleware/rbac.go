package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
	"github.com/noah-isme/mgsa-portal-api/internal/utils"
)

// RequireRole ensures that the authenticated user possesses one of the allowed roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		if role.Valid() {
			allowed[role] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role := RoleFromLocals(c)
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// RoleFromLocals parses the role bound by JWTProtected.
func RoleFromLocals(c *fiber.Ctx) models.Role {
	switch v := c.Locals(LocalUserRole).(type) {
	case models.Role:
		return models.ParseRole(string(v))
	case string:
		return models.ParseRole(v)
	case fmt.Stringer:
		return models.ParseRole(v.String())
	default:
		return models.RoleInvalid
	}
}

// UserIDFromLocals returns the account id bound by JWTProtected, or zero.
func UserIDFromLocals(c *fiber.Ctx) uint {
	switch v := c.Locals(LocalUserID).(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	case float64:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}
