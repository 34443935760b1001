// Package server provides the HTTP REST API for the compliance engine.
package server

import (
	"fmt"
	"net/http"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrRulesNotFound indicates no rules document matched the caller's ids
type ErrRulesNotFound struct {
	UserID string
	FileID string
}

func (e *ErrRulesNotFound) Error() string {
	return fmt.Sprintf("rules not found for user %s, file %s", e.UserID, e.FileID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrValidation:
		return http.StatusBadRequest
	case *ErrRulesNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
