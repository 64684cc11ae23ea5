// Package handlers defines HTTP-layer error codes and the single mapping from
// error kinds to HTTP statuses.
//
// Domain failures arrive as *errs.Error and keep their own codes
// ("User.NotFound", "Squad.Full", "Validation.Name"). The constants below are
// used for transport-level failures that never reach a service (malformed
// bodies, unknown routes, missing identity).
//
// Status mapping:
//
//	Validation   400    Unauthorized 401    Forbidden 403
//	NotFound     404    Canceled     408    Conflict  409
//	External     502    Database     503    other     500
//
// Messages of 5xx responses are replaced with a generic text unless detailed
// errors are enabled (APP_ENV=development).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/levelup-backend/internal/errs"
	"github.com/tbourn/levelup-backend/internal/http/middleware"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	ErrCodeMethodNotAllowed = "method_not_allowed"
)

const genericServerMessage = "An unexpected error occurred. Please try again later."

// StatusFor maps an error kind to its HTTP status.
func StatusFor(k errs.Kind) int {
	switch k {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindUnauthorized:
		return http.StatusUnauthorized
	case errs.KindForbidden:
		return http.StatusForbidden
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindCanceled:
		return http.StatusRequestTimeout
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindExternal:
		return http.StatusBadGateway
	case errs.KindDatabase:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError converts err into an error envelope. expose keeps the original
// message on 5xx responses.
func writeError(c *gin.Context, err error, expose bool) {
	status := StatusFor(errs.KindOf(err))
	code, msg := ErrCodeInternal, err.Error()
	if e, ok := errs.As(err); ok {
		code, msg = e.Code, e.Description
		if msg == "" {
			msg = e.Code
		}
	}
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().Err(err).Int("status", status).Str("code", code).Msg("request failed")
		if !expose {
			msg = genericServerMessage
		}
	}
	abort(c, status, code, msg)
}

// failErr writes err using the handler's exposure setting.
func (h *Handlers) failErr(c *gin.Context, err error) {
	writeError(c, err, h.opts.ExposeErrors)
}
