// Package apperr defines the error taxonomy shared by every transport.
// Domain packages return these values (wrapped with %w where useful); the
// HTTP and gRPC layers map them to status codes.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// ─── Sentinel errors ─────────────────────────────────────────────────────────

var (
	// ErrUnauthorized means the caller presented no usable identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the identity is known but lacks the privilege.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the request collides with the current state.
	ErrConflict = errors.New("conflict")
	// ErrUpstreamUnavailable marks a failed external collaborator (discovery
	// source, ranker). Callers downgrade instead of failing.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Issue is a single field-level validation problem.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError wraps a user-facing validation message.
type ValidationError struct {
	Msg    string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return e.Msg
	}
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+": "+is.Message)
	}
	return e.Msg + " (" + strings.Join(parts, "; ") + ")"
}

// Invalid builds a ValidationError with a single field issue.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Msg: "validation failed", Issues: []Issue{{Field: field, Message: msg}}}
}

// StatusCoder is implemented by domain errors that carry their own HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	var sc StatusCoder
	var ve *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &sc):
		return sc.HTTPStatus()
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Issues returns the field issues carried by err, if any.
func Issues(err error) []Issue {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Issues
	}
	return nil
}

// PublicMessage returns the message safe to show a caller. Server-side
// failures collapse to a generic text so internals never leak.
func PublicMessage(err error) string {
	status := Status(err)
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Msg
	case status >= http.StatusInternalServerError:
		if status == http.StatusServiceUnavailable {
			return "service temporarily unavailable"
		}
		var sc StatusCoder
		if errors.As(err, &sc) {
			// Typed domain errors choose their own wording.
			return err.Error()
		}
		return "internal server error"
	case errors.Is(err, ErrUnauthorized):
		return "authentication required"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	}
	return err.Error()
}
