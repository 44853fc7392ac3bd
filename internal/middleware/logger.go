package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/panotify/exam-backend/internal/response"
	"github.com/rs/zerolog"
)

// RequestLogger writes one structured access log line per request.
// Server errors log at error, client errors at warn.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "http").Logger()

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		default:
			event = log.Info()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		if claims := GetClaims(c); claims != nil {
			event = event.Str("role", string(claims.Role)).Int("user_id", claims.UserID)
		}

		event.
			Str("request_id", c.GetString(response.ContextKeyRequestID)).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Float64("latency_ms", float64(time.Since(start))/float64(time.Millisecond)).
			Msg("request completed")
	}
}
