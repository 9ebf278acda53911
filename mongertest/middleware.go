package mongertest

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fnklabs/monger-go/correlation"
	"github.com/fnklabs/monger-go/logger"
)

// correlationContext copies the inbound X-Request-ID into the request context
// so handlers can read it with correlation.IDFromContext.
func correlationContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if id := req.Header.Get(correlation.HeaderXRequestID); id != "" {
				c.SetRequest(req.WithContext(correlation.WithID(req.Context(), id)))
			}
			return next(c)
		}
	}
}

// requestLogger emits one summary per request. 5xx responses and unhandled
// errors log at error level, 4xx at warn, everything else at info.
func requestLogger(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			latency := time.Since(start)
			status := c.Response().Status
			requestID, _ := correlation.IDFromContext(c.Request().Context())

			severityEvent(log, status, err).
				Str("request_id", requestID).
				Str("http.request.method", c.Request().Method).
				Int("http.response.status_code", status).
				Int64("http.server.request.duration", latency.Nanoseconds()).
				Str("url.path", c.Request().URL.Path).
				Str("user_agent.original", c.Request().UserAgent()).
				Msg(actionMessage(c.Request().Method, c.Request().URL.Path, latency, status))
			return nil
		}
	}
}

func severityEvent(log logger.Logger, status int, err error) logger.LogEvent {
	switch {
	case status >= 500 || (err != nil && status == 0):
		return log.Error()
	case status >= 400:
		return log.Warn()
	default:
		return log.Info()
	}
}

// actionMessage renders e.g. "POST /api/payments/new completed in 2ms with status 200"
func actionMessage(method, path string, latency time.Duration, status int) string {
	return fmt.Sprintf("%s %s completed in %s with status %d", method, path, latency, status)
}
