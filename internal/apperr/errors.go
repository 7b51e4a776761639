// Package apperr defines the domain errors surfaced by repositories and mapped to HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is implemented by errors that carry their own response status.
type HTTPError interface {
	error
	StatusCode() int
}

var (
	// ErrNotFound matches every NotFoundError via errors.Is.
	ErrNotFound = errors.New("not found")
	// ErrConflict matches every ConflictError via errors.Is.
	ErrConflict = errors.New("already exists")
)

// MalformedIDError reports an identifier that failed the format check before any lookup.
type MalformedIDError struct {
	Field string
}

func (e *MalformedIDError) Error() string {
	return fmt.Sprintf("The `%s` is not valid", fieldOrDefault(e.Field, "id"))
}

func (e *MalformedIDError) StatusCode() int { return http.StatusBadRequest }

// MissingFieldError reports a required request field that was absent or blank.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Missing `%s` in request body", e.Field)
}

func (e *MissingFieldError) StatusCode() int { return http.StatusBadRequest }

// ValidationError reports a field constraint violation at registration.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) StatusCode() int { return http.StatusUnprocessableEntity }

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Resource string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("The %s already exists", e.Resource)
}

func (e *ConflictError) StatusCode() int { return http.StatusBadRequest }

// Is lets errors.Is match ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// InvalidReferenceError reports a folderId or tags value that does not resolve to an owned entity.
type InvalidReferenceError struct {
	Field string
}

func (e *InvalidReferenceError) Error() string {
	if e.Field == "tags" {
		return "The `tags` array contains an invalid `id`"
	}
	return fmt.Sprintf("The `%s` is not valid", e.Field)
}

func (e *InvalidReferenceError) StatusCode() int { return http.StatusBadRequest }

// NotFoundError reports a missing entity; foreign entities are reported the same way.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }

// Is lets errors.Is match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AuthenticationError reports rejected credentials.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return http.StatusText(http.StatusUnauthorized)
	}
	return e.Message
}

func (e *AuthenticationError) StatusCode() int { return http.StatusUnauthorized }

// StatusOf resolves the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	return http.StatusInternalServerError
}

func fieldOrDefault(field, fallback string) string {
	if field == "" {
		return fallback
	}
	return field
}
