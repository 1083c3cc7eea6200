package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocalCorrelationID is the fiber locals key holding the request correlation id.
const LocalCorrelationID = "correlation_id"

const maxCorrelationIDLength = 128

type correlationContextKey struct{}

// CorrelationID binds a correlation id to every request. Clients may supply
// one through X-Correlation-ID or X-Request-ID; oversized values are replaced.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := incomingCorrelationID(c)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(LocalCorrelationID, id)
		c.Set("X-Correlation-ID", id)
		c.SetUserContext(ContextWithCorrelation(c.UserContext(), id))

		return c.Next()
	}
}

func incomingCorrelationID(c *fiber.Ctx) string {
	for _, header := range []string{"X-Correlation-ID", "X-Request-ID"} {
		value := strings.TrimSpace(c.Get(header))
		if value != "" && len(value) <= maxCorrelationIDLength {
			return value
		}
	}
	return ""
}

// CorrelationIDFromContext extracts the correlation id from ctx, if present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationContextKey{}).(string)
	return id
}

// GetCorrelationID returns the correlation id bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(LocalCorrelationID).(string); ok && id != "" {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// ContextWithCorrelation attaches the correlation id to ctx.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" || CorrelationIDFromContext(ctx) == correlationID {
		return ctx
	}
	return context.WithValue(ctx, correlationContextKey{}, correlationID)
}

// RequestLogger derives a logger carrying the correlation id and, once the JWT
// middleware ran, the caller's account id and role.
func RequestLogger(c *fiber.Ctx, base zerolog.Logger) zerolog.Logger {
	fields := base.With()
	if id := GetCorrelationID(c); id != "" {
		fields = fields.Str("correlation_id", id)
	}
	if c != nil {
		if userID := UserIDFromLocals(c); userID != 0 {
			fields = fields.Uint("user_id", userID).Str("role", RoleFromLocals(c).String())
		}
	}
	return fields.Logger()
}
