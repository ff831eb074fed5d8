package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/domain"
)

// ThumbnailEvent describes one observed status change of a thumbnail.
// Every event carries the same fields; ImageURL and ErrorMessage are empty
// where not applicable so consumers can rely on a single schema.
type ThumbnailEvent struct {
	// ThumbnailID identifies the thumbnail this event is about
	ThumbnailID uuid.UUID `json:"thumbnail_id"`

	// Status is the status the thumbnail just entered
	Status domain.ThumbnailStatus `json:"status"`

	// ImageURL is the rendered artifact locator, set only on completed
	ImageURL string `json:"image_url"`

	// ErrorMessage is the failure cause, set only on failed
	ErrorMessage string `json:"error_message"`

	// OccurredAt is the timestamp when the transition was observed
	OccurredAt time.Time `json:"occurred_at"`
}

// NewThumbnailEvent builds an event snapshot from a thumbnail's current state.
func NewThumbnailEvent(t *domain.Thumbnail) ThumbnailEvent {
	return ThumbnailEvent{
		ThumbnailID:  t.ID,
		Status:       t.Status,
		ImageURL:     t.ImageURL,
		ErrorMessage: t.ErrorMessage,
		OccurredAt:   time.Now().UTC(),
	}
}
