package api

import (
	"errors"
	"net/http"

	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/service"
	"github.com/framefoundry/thumbgen-api/internal/service/auth"
	"github.com/framefoundry/thumbgen-api/internal/store"
)

// Request-shape errors whose messages are safe to show clients directly.
var (
	errInvalidWindow = errors.New("offset and limit must both be non-negative integers")
	errInvalidIDList = errors.New("ids must be a comma-separated list of UUIDs")
	errTooManyIDs    = errors.New("too many thumbnail IDs requested")
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, service.ErrTitleNotFound),
		errors.Is(err, service.ErrThumbnailNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrIdeaAlreadyDispatched):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"
	case errors.Is(err, service.ErrTitleNotFound):
		return "Title not found"
	case errors.Is(err, service.ErrThumbnailNotFound):
		return "Thumbnail not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"
	case errors.Is(err, store.ErrIdeaAlreadyDispatched):
		return "A thumbnail already exists for this idea"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request"
	default:
		return "An internal error occurred"
	}
}
