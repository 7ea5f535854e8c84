// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes the symbolic error codes written into the ErrorResponse
// envelope by fail() and failErr(). They give clients a stable,
// machine-readable error taxonomy next to the human-readable message.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes (bad_request, unauthorized, not_found) mirror HTTP status
//     semantics.
//   - Domain codes name lifecycle, presence and piping failures that the
//     status alone does not convey (a 409 is always invalid_transition, a 503
//     from the event endpoint is always cache_not_warm).
//   - Every error response carries both an HTTP status and one of these codes.
//
// Usage:
//   - failErr maps service errors (ValidationError, TransitionError,
//     PreconditionError, NotFoundError) to status and code; handlers call fail
//     directly for binding errors and pipe outcomes.
//   - Clients branch on the code, never on the message.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_transition",
//	  "message": "cannot transition handoff from \"resolved\" to \"assigned\""
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeValidation          = "validation_failed"
	ErrCodeInvalidTransition   = "invalid_transition"
	ErrCodePrecondition        = "precondition_failed"
	ErrCodeCacheNotWarm        = "cache_not_warm"
	ErrCodeDeliveryFailed      = "delivery_failed"
	ErrCodePresenceUnavailable = "presence_unavailable"
)
