package gemini

import "errors"

// Common errors specific to the Gemini bindings
var (
	// ErrEmptyTitleName is returned when idea generation is requested
	// without a title name to build the prompt from
	ErrEmptyTitleName = errors.New("title name cannot be empty")

	// ErrEmptyPrompt is returned when image generation is requested with
	// an empty prompt
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrInvalidDataURL is returned when a reference image's data URL
	// cannot be decoded into mime type and raw bytes
	ErrInvalidDataURL = errors.New("invalid reference image data URL")
)
