package api

import (
	"net/http"
	"strings"

	"Jarvis/internal/service/ratelimit"
	xhttp "Jarvis/pkg/http"
	xlogger "Jarvis/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RateLimit throttles /api requests per client address. A zero rps disables
// it. The websocket endpoint and operational routes are never limited.
func RateLimit(rl *ratelimit.Limiter, burst, rps float64, logger *xlogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rps <= 0 || !strings.HasPrefix(c.Request().URL.Path, "/api/") {
				return next(c)
			}
			key := "api:" + c.RealIP()
			if !rl.Allow(key, burst, rps) {
				logger.Warn("api rate limited",
					xlogger.String("remote", c.RealIP()),
					xlogger.String("path", c.Request().URL.Path))
				return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
			}
			return next(c)
		}
	}
}
