// Package apperr carries the HTTP status of request-level failures.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a failure with a fixed status and client-facing message.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func BadRequest(message string) *Error { return New(http.StatusBadRequest, message) }
func Forbidden(message string) *Error  { return New(http.StatusForbidden, message) }

var (
	ErrUnauthorized     = New(http.StatusUnauthorized, "Unauthorized")
	ErrMethodNotAllowed = New(http.StatusMethodNotAllowed, "Method not allowed")
)

// Upstream prefixes a collaborator failure with what was being attempted.
// The upstream message stays visible to the client.
func Upstream(action string, err error) error {
	return fmt.Errorf("%s: %w", action, err)
}

// StatusOf returns the status of err, 500 when unclassified.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}
