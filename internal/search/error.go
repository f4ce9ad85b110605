// Package search serves filtered, cursor-paginated and optionally ranked
// scholarship searches over the published catalog.
package search

import "net/http"

// Error is the typed failure of the search path. Status is an HTTP status:
// 4xx for caller input, 5xx for backend failures.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus implements apperr.StatusCoder.
func (e *Error) HTTPStatus() int { return e.Status }

func badRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

func internal(msg string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg, Err: err}
}
