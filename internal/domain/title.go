package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Title
var (
	ErrEmptyTitleID   = errors.New("title ID cannot be empty")
	ErrEmptyTitleName = errors.New("title name cannot be empty")
)

// Title is the owning request that groups a set of thumbnails. It carries
// the subject text and optional custom instructions shared by every idea
// and generation attempt under it.
type Title struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Instructions string    `json:"instructions"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewTitle creates a new Title with the given name and instructions.
// It generates a new UUID and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewTitle(name, instructions string) (*Title, error) {
	title := &Title{
		ID:           uuid.New(),
		Name:         name,
		Instructions: instructions,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if err := title.Validate(); err != nil {
		return nil, err
	}

	return title, nil
}

// Validate checks if the Title has valid data.
func (t *Title) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTitleID
	}

	if t.Name == "" {
		return ErrEmptyTitleName
	}

	return nil
}
