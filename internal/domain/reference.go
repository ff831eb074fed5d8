package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for ReferenceImage
var (
	ErrEmptyReferenceID   = errors.New("reference image ID cannot be empty")
	ErrEmptyReferenceData = errors.New("reference image data cannot be empty")
)

// ReferenceImage is a stored image used to guide thumbnail generation.
// A reference is either scoped to one title or marked global, in which case
// it applies to every title of its owner.
type ReferenceImage struct {
	ID        uuid.UUID `json:"id"`
	TitleID   uuid.UUID `json:"title_id"` // uuid.Nil for global references
	Global    bool      `json:"global"`
	ImageData string    `json:"image_data"` // data URL, e.g. "data:image/png;base64,..."
	CreatedAt time.Time `json:"created_at"`
}

// NewReferenceImage creates a new ReferenceImage. Pass uuid.Nil as titleID
// together with global=true for a reference shared across titles.
func NewReferenceImage(titleID uuid.UUID, global bool, imageData string) (*ReferenceImage, error) {
	ref := &ReferenceImage{
		ID:        uuid.New(),
		TitleID:   titleID,
		Global:    global,
		ImageData: imageData,
		CreatedAt: time.Now().UTC(),
	}

	if err := ref.Validate(); err != nil {
		return nil, err
	}

	return ref, nil
}

// Validate checks if the ReferenceImage has valid data.
func (r *ReferenceImage) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyReferenceID
	}

	if r.ImageData == "" {
		return ErrEmptyReferenceData
	}

	return nil
}
