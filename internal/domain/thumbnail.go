package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ThumbnailStatus represents the processing state of a thumbnail
type ThumbnailStatus string

// Possible thumbnail status values
const (
	ThumbnailStatusPending    ThumbnailStatus = "pending"
	ThumbnailStatusProcessing ThumbnailStatus = "processing"
	ThumbnailStatusCompleted  ThumbnailStatus = "completed"
	ThumbnailStatusFailed     ThumbnailStatus = "failed"
)

// MaxErrorMessageLen bounds the persisted failure detail. Longer messages
// are truncated so a runaway provider error cannot bloat the status row.
const MaxErrorMessageLen = 255

// Common validation errors for Thumbnail
var (
	ErrEmptyThumbnailID      = errors.New("thumbnail ID cannot be empty")
	ErrEmptyThumbnailTitleID = errors.New("thumbnail title ID cannot be empty")
	ErrEmptyThumbnailIdeaID  = errors.New("thumbnail idea ID cannot be empty")
	ErrEmptyImageURL         = errors.New("image URL cannot be empty")
	ErrEmptyErrorMessage     = errors.New("error message cannot be empty")
)

// Thumbnail is the unit the dispatcher manages: one requested artifact,
// paired 1:1 with the Idea it renders. Its status moves
// pending -> processing -> completed|failed; regeneration re-enters
// processing from a terminal state without creating a new row.
//
// Exactly one of ImageURL (completed) and ErrorMessage (failed) is non-empty
// for a terminal thumbnail.
type Thumbnail struct {
	ID               uuid.UUID       `json:"id"`
	TitleID          uuid.UUID       `json:"title_id"`
	IdeaID           uuid.UUID       `json:"idea_id"`
	Status           ThumbnailStatus `json:"status"`
	ImageURL         string          `json:"image_url"`
	ErrorMessage     string          `json:"error_message"`
	UsedReferenceIDs []uuid.UUID     `json:"used_reference_ids"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewThumbnail creates a new Thumbnail in pending status for the given
// title and idea. Returns an error if validation fails.
func NewThumbnail(titleID, ideaID uuid.UUID) (*Thumbnail, error) {
	thumbnail := &Thumbnail{
		ID:        uuid.New(),
		TitleID:   titleID,
		IdeaID:    ideaID,
		Status:    ThumbnailStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := thumbnail.Validate(); err != nil {
		return nil, err
	}

	return thumbnail, nil
}

// Validate checks if the Thumbnail has valid data.
func (t *Thumbnail) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyThumbnailID
	}

	if t.TitleID == uuid.Nil {
		return ErrEmptyThumbnailTitleID
	}

	if t.IdeaID == uuid.Nil {
		return ErrEmptyThumbnailIdeaID
	}

	if !isValidThumbnailStatus(t.Status) {
		return ErrInvalidThumbnailStatus
	}

	return nil
}

// MarkProcessing transitions the thumbnail into processing. Valid from
// pending (first dispatch) and from the terminal states (regeneration).
// A thumbnail that is already processing cannot be marked again; this
// prevents two tasks from owning the same row.
func (t *Thumbnail) MarkProcessing() error {
	if t.Status == ThumbnailStatusProcessing {
		return fmt.Errorf("%w: thumbnail %s is already processing", ErrInvalidTransition, t.ID)
	}

	t.Status = ThumbnailStatusProcessing
	t.ImageURL = ""
	t.ErrorMessage = ""
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted transitions the thumbnail from processing to completed,
// recording the rendered image URL and the reference images actually
// consumed during generation. Fails with ErrInvalidTransition from any
// other state, which guards against a stale retry callback completing a
// row twice.
func (t *Thumbnail) MarkCompleted(imageURL string, usedReferenceIDs []uuid.UUID) error {
	if t.Status != ThumbnailStatusProcessing {
		return fmt.Errorf("%w: cannot complete thumbnail %s in status %s",
			ErrInvalidTransition, t.ID, t.Status)
	}

	if imageURL == "" {
		return ErrEmptyImageURL
	}

	t.Status = ThumbnailStatusCompleted
	t.ImageURL = imageURL
	t.ErrorMessage = ""
	t.UsedReferenceIDs = usedReferenceIDs
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkFailed transitions the thumbnail from processing to failed with a
// human-readable cause, truncated to MaxErrorMessageLen. Fails with
// ErrInvalidTransition from any other state.
func (t *Thumbnail) MarkFailed(detail string) error {
	if t.Status != ThumbnailStatusProcessing {
		return fmt.Errorf("%w: cannot fail thumbnail %s in status %s",
			ErrInvalidTransition, t.ID, t.Status)
	}

	if detail == "" {
		return ErrEmptyErrorMessage
	}

	t.Status = ThumbnailStatusFailed
	t.ErrorMessage = truncate(detail, MaxErrorMessageLen)
	t.ImageURL = ""
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// IsTerminal reports whether the thumbnail has reached a final state.
// Both completed and failed count as terminal for batch-completion purposes.
func (t *Thumbnail) IsTerminal() bool {
	return t.Status == ThumbnailStatusCompleted || t.Status == ThumbnailStatusFailed
}

// isValidThumbnailStatus checks if the given status is a valid ThumbnailStatus.
func isValidThumbnailStatus(status ThumbnailStatus) bool {
	switch status {
	case ThumbnailStatusPending, ThumbnailStatusProcessing,
		ThumbnailStatusCompleted, ThumbnailStatusFailed:
		return true
	default:
		return false
	}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
