package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khabaroff/accounts-selfhosted/src/logging"
	"github.com/rs/zerolog"
)

// LoggingMiddleware emits one structured line per request. Health checks are
// logged at debug so load balancers do not flood the log.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		logger := logging.ComponentLogger("http", GetRequestID(c))
		event := logger.WithLevel(requestLevel(route, status))
		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Int("bytes", c.Writer.Size()).
			Str("client_ip", c.ClientIP())

		// The query string is never logged; it may carry credentials.
		if s := GetSession(c); s != nil && s.IsAuthenticated() {
			event.Str("username", s.Username())
		}
		if len(c.Errors) > 0 {
			event.Str("error", c.Errors.String())
		}

		switch {
		case status >= 500:
			event.Msg("server error")
		case status >= 400:
			event.Msg("client error")
		default:
			event.Msg("request")
		}
	}
}

func requestLevel(route string, status int) zerolog.Level {
	switch {
	case status >= 500:
		return zerolog.ErrorLevel
	case status >= 400:
		return zerolog.WarnLevel
	case route == "/health" || route == "/ready":
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}
