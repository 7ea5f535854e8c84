// Package services defines the business logic for handoffs and operators.
// This file centralizes the service-level error taxonomy so that service
// methods return predictable errors and the HTTP layer can translate them into
// status codes consistently.
//
// Every typed error matches its sentinel with errors.Is, and can be unpacked
// with errors.As when the caller needs the details.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

var (
	// ErrValidation is matched by *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrTransition is matched by *TransitionError.
	ErrTransition = errors.New("invalid transition")

	// ErrPrecondition is matched by *PreconditionError.
	ErrPrecondition = errors.New("precondition failed")

	// ErrNotFound is matched by *NotFoundError.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports malformed input. Problems holds one human-readable
// line per offending field.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrValidation.Error()
	}
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransitionError reports a disallowed status change, including the loser of
// a concurrent transition.
type TransitionError struct {
	From domain.HandoffStatus
	To   domain.HandoffStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition handoff from %q to %q", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrTransition }

// PreconditionError reports an actor not allowed to perform the action, for
// example an operator assigning while offline.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }

func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }

// NotFoundError reports a missing handoff, thread or operator.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Precondition reasons.
const (
	ReasonAgentOffline = "agent is offline"
)
