package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Idea
var (
	ErrEmptyIdeaID         = errors.New("idea ID cannot be empty")
	ErrEmptyIdeaTitleID    = errors.New("idea title ID cannot be empty")
	ErrEmptyIdeaSummary    = errors.New("idea summary cannot be empty")
	ErrEmptyIdeaFullPrompt = errors.New("idea full prompt cannot be empty")
)

// Idea is a single thumbnail concept: a short human-readable summary plus
// the detailed prompt used to render the image. Ideas are produced once and
// immutable thereafter; regeneration reuses the same idea for a new
// generation attempt.
type Idea struct {
	ID         uuid.UUID `json:"id"`
	TitleID    uuid.UUID `json:"title_id"`
	Summary    string    `json:"summary"`
	FullPrompt string    `json:"full_prompt"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewIdea creates a new Idea for the given title.
// Returns an error if validation fails.
func NewIdea(titleID uuid.UUID, summary, fullPrompt string) (*Idea, error) {
	idea := &Idea{
		ID:         uuid.New(),
		TitleID:    titleID,
		Summary:    summary,
		FullPrompt: fullPrompt,
		CreatedAt:  time.Now().UTC(),
	}

	if err := idea.Validate(); err != nil {
		return nil, err
	}

	return idea, nil
}

// Validate checks if the Idea has valid data.
func (i *Idea) Validate() error {
	if i.ID == uuid.Nil {
		return ErrEmptyIdeaID
	}

	if i.TitleID == uuid.Nil {
		return ErrEmptyIdeaTitleID
	}

	if i.Summary == "" {
		return ErrEmptyIdeaSummary
	}

	if i.FullPrompt == "" {
		return ErrEmptyIdeaFullPrompt
	}

	return nil
}
