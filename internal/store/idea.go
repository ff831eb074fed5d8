package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/domain"
)

// IdeaStore defines the interface for idea data persistence.
type IdeaStore interface {
	// Create saves a new idea to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, idea *domain.Idea) error

	// GetByID retrieves an idea by its unique ID.
	// Returns ErrIdeaNotFound if the idea does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Idea, error)

	// ListByTitle retrieves all ideas for a title, newest first. The batch
	// orchestrator feeds these to the idea producer as duplicate-avoidance
	// context. Returns an empty slice when the title has no ideas.
	ListByTitle(ctx context.Context, titleID uuid.UUID) ([]*domain.Idea, error)

	// WithTx returns a new IdeaStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) IdeaStore
}

// TitleStore defines the interface for title data persistence.
// Titles are owned by the surrounding CRUD application; this core only
// reads them to build prompts and status payloads, plus creates them in
// tests and fixtures.
type TitleStore interface {
	// Create saves a new title to the store.
	Create(ctx context.Context, title *domain.Title) error

	// GetByID retrieves a title by its unique ID.
	// Returns ErrTitleNotFound if the title does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Title, error)

	// WithTx returns a new TitleStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TitleStore
}
