package api

import (
	"github.com/google/uuid"
)

// Common request/response structures

// GenerateThumbnailsRequest defines the payload for the batch generation endpoint.
type GenerateThumbnailsRequest struct {
	TitleID uuid.UUID `json:"title_id" validate:"required"`

	// Quantity is how many thumbnails to generate. Zero falls back to the
	// service default batch size.
	Quantity int `json:"quantity" validate:"gte=0,lte=20"`
}

// GenerateThumbnailsResponse acknowledges an accepted batch. Generation
// continues in the background; clients poll the status endpoint with these IDs.
type GenerateThumbnailsResponse struct {
	ThumbnailIDs []uuid.UUID `json:"thumbnail_ids"`
}

// RegenerateThumbnailRequest defines the payload for the regeneration endpoint.
type RegenerateThumbnailRequest struct {
	TitleID     uuid.UUID `json:"title_id"     validate:"required"`
	ThumbnailID uuid.UUID `json:"thumbnail_id" validate:"required"`
}

// RegenerateThumbnailResponse acknowledges an accepted regeneration.
type RegenerateThumbnailResponse struct {
	ThumbnailID uuid.UUID `json:"thumbnail_id"`
	TitleID     uuid.UUID `json:"title_id"`
	IdeaID      uuid.UUID `json:"idea_id"`
	Summary     string    `json:"summary"`
}
