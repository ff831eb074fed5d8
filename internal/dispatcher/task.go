package dispatcher

import (
	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/domain"
)

// Result is the terminal outcome of one dispatched task, delivered on the
// channel returned by Enqueue. Exactly one Result is sent per task, after
// which the channel is closed.
type Result struct {
	// ThumbnailID identifies the thumbnail the task was generating
	ThumbnailID uuid.UUID

	// ImageURL is the rendered artifact locator, empty on failure
	ImageURL string

	// Attempts is the number of generation attempts made (1..maxRetries+1)
	Attempts int

	// Err is the final error when every attempt failed, nil on success
	Err error
}

// task is the dispatcher's unit of work: a plain data record processed by a
// stateless attempt function. Retries mutate only the attempt counter; there
// is no captured execution state to go stale between attempts.
type task struct {
	idea        *domain.Idea
	thumbnailID uuid.UUID
	refs        []*domain.ReferenceImage
	regenerate  bool
	attempt     int
	done        chan Result
}
