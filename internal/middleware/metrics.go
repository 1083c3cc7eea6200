package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mgsa-portal-api/internal/observability"
)

const slowRequestThreshold = 500 * time.Millisecond

// RequestMetrics records Prometheus counters for API routes and writes one
// structured log line per API request.
func RequestMetrics(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if !strings.HasPrefix(c.Path(), "/api/") {
			return err
		}

		elapsed := time.Since(start)
		route := routeLabel(c)
		method := c.Method()
		status := c.Response().StatusCode()
		statusLabel := strconv.Itoa(status)

		observability.HTTPRequests().WithLabelValues(method, route, statusLabel).Inc()
		observability.HTTPLatency().WithLabelValues(method, route).Observe(elapsed.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.HTTPErrors().WithLabelValues(method, route, statusLabel).Inc()
		}

		reqLogger := RequestLogger(c, logger)
		var event *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			event = reqLogger.Error()
		case status >= fiber.StatusBadRequest, elapsed > slowRequestThreshold:
			event = reqLogger.Warn()
		default:
			event = reqLogger.Info()
		}
		event.
			Str("method", method).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed).
			Msg("request completed")

		return err
	}
}

// routeLabel keeps metric cardinality bounded by using the matched route
// template; requests that matched nothing share one label.
func routeLabel(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" && route.Path != "/" {
		return route.Path
	}
	return "unmatched"
}
