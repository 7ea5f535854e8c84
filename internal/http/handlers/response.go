// Package handlers provides HTTP handler implementations for the handoff API.
//
// This file defines the response helpers shared by every endpoint. All errors
// are written as an ErrorResponse with a stable code; fail() logs 5xx with the
// request-scoped logger, and failErr() maps service errors onto status codes:
//
//	ValidationError    400 validation_failed
//	NotFoundError      404 not_found
//	TransitionError    409 invalid_transition
//	PreconditionError  422 precondition_failed
//	anything else      500 internal_error
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-handoff-backend/internal/http/middleware"
	"github.com/tbourn/go-handoff-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"handoff \"42\" not found"`
}

// fail aborts the request with a structured error. Server errors are logged.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr translates a service error into the envelope.
func failErr(c *gin.Context, err error) {
	var (
		ve *services.ValidationError
		te *services.TransitionError
		pe *services.PreconditionError
		ne *services.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		fail(c, http.StatusBadRequest, ErrCodeValidation, ve.Error())
	case errors.As(err, &ne):
		fail(c, http.StatusNotFound, ErrCodeNotFound, ne.Error())
	case errors.As(err, &te):
		fail(c, http.StatusConflict, ErrCodeInvalidTransition, te.Error())
	case errors.As(err, &pe):
		fail(c, http.StatusUnprocessableEntity, ErrCodePrecondition, pe.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
