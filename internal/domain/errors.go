package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidTransition is returned when a thumbnail status transition
	// violates the state machine. This guards against duplicate completion
	// callbacks racing after a retry.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidThumbnailStatus is returned when a thumbnail status is not valid.
	ErrInvalidThumbnailStatus = errors.New("invalid thumbnail status")
)
