// Package middleware contains the Gin middleware shared by every route:
// correlation ids, access logging, panic recovery, caller identity,
// idempotency keys, rate limiting, metrics and security headers.
//
// Recommended order: RequestID, RedactingLogger, Recovery, then the rest.
// The request-scoped logger stored by RedactingLogger is picked up by
// LoggerFrom in handlers; Identity enriches it with the caller id.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	startedAtKey    = "request.started"
	loggerKey       = "logger"
	requestIDHeader = "X-Request-ID"

	// maxRequestIDLen bounds client-supplied ids; longer ones are replaced.
	maxRequestIDLen = 128
)

// RequestID reuses the caller's X-Request-ID (or mints a UUIDv4), echoes it
// on the response and records when the request entered the chain.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" || len(rid) > maxRequestIDLen {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Set(startedAtKey, time.Now())
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Recovery turns a panic into the 500 failure envelope, or a bare 500 when
// the handler had already started writing.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			abortWithError(c, http.StatusInternalServerError, "internal_error", "internal server error")
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// RedactingLogger is not installed. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// withLogger replaces the request-scoped logger with one carrying extra
// fields.
func withLogger(c *gin.Context, fn func(zerolog.Context) zerolog.Context) {
	l := fn(LoggerFrom(c).With()).Logger()
	c.Set(loggerKey, &l)
}

// StartedAt returns when RequestID accepted the request.
func StartedAt(c *gin.Context) (time.Time, bool) {
	v, ok := c.Get(startedAtKey)
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	return t, ok
}

// truncate caps s at n bytes plus an ellipsis. n <= 0 disables it.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
