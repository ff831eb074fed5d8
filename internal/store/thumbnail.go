package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/domain"
)

// Window restricts a listing to a slice of a title's thumbnails, ordered by
// creation time. It lets a "generate 5 more" action poll only its own batch
// instead of re-scanning the whole title history.
type Window struct {
	Offset int
	Limit  int
}

// ThumbnailStatusRow is the denormalized read model for the status query
// surface: one thumbnail joined with its idea and title so a polling client
// can render progress without extra round trips.
//
// RawReferenceIDs carries the used_reference_ids column verbatim. The column
// may hold malformed JSON from older writers; decoding it tolerantly is the
// reader's job, so one corrupt row cannot take down the whole query.
type ThumbnailStatusRow struct {
	ID                uuid.UUID
	TitleID           uuid.UUID
	IdeaID            uuid.UUID
	Status            domain.ThumbnailStatus
	ImageURL          string
	ErrorMessage      string
	RawReferenceIDs   []byte
	CreatedAt         time.Time
	Summary           string
	FullPrompt        string
	TitleName         string
	TitleInstructions string
}

// ThumbnailStore defines the interface for thumbnail data persistence.
type ThumbnailStore interface {
	// Create saves a new thumbnail to the store.
	// It handles domain validation internally.
	// Returns ErrIdeaAlreadyDispatched if a thumbnail already exists for the idea.
	Create(ctx context.Context, thumbnail *domain.Thumbnail) error

	// GetByID retrieves a thumbnail by its unique ID.
	// Returns ErrThumbnailNotFound if the thumbnail does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Thumbnail, error)

	// Update saves changes to an existing thumbnail. Every status transition
	// the dispatcher performs goes through here.
	// Returns ErrThumbnailNotFound if the thumbnail does not exist.
	Update(ctx context.Context, thumbnail *domain.Thumbnail) error

	// ListByTitle retrieves denormalized status rows for all thumbnails of a
	// title, ordered by creation time, newest first. A nil window returns
	// everything. Returns an empty slice when the title has no thumbnails.
	ListByTitle(ctx context.Context, titleID uuid.UUID, window *Window) ([]*ThumbnailStatusRow, error)

	// ListByIDs retrieves denormalized status rows for the given thumbnail
	// IDs. Unknown IDs are silently omitted.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*ThumbnailStatusRow, error)

	// WithTx returns a new ThumbnailStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) ThumbnailStore
}
