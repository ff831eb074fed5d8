package generation

import (
	"context"

	"github.com/framefoundry/thumbgen-api/internal/domain"
)

// IdeaDraft is the raw output of the idea producer before persistence:
// a short human-readable summary and the detailed rendering prompt.
type IdeaDraft struct {
	Summary    string
	FullPrompt string
}

// IdeaGenerator defines the interface for producing one new thumbnail
// concept. This interface serves as a boundary between the application core
// and external AI/LLM services, following the hexagonal architecture pattern.
type IdeaGenerator interface {
	// GenerateIdea creates one new concept for the given title.
	// priorSummaries carries every previously produced summary so the
	// provider can avoid duplicates; callers grow it as a batch progresses,
	// which is why concepts within a batch must be produced sequentially.
	//
	// Returns an IdeaDraft or an error if generation fails (see errors.go
	// for the taxonomy). Callers treat a failure as "skip this slot", not
	// as a batch abort.
	GenerateIdea(
		ctx context.Context,
		titleName string,
		instructions string,
		priorSummaries []string,
	) (*IdeaDraft, error)
}

// ImageResult is the outcome of one successful image generation.
type ImageResult struct {
	// ImageURL is an opaque locator for the rendered artifact
	// (a data URL in the current implementation).
	ImageURL string
}

// ImageGenerator defines the interface for rendering one thumbnail image.
// Implementations perform a single attempt; retry policy belongs to the
// dispatcher, not the provider binding.
type ImageGenerator interface {
	// GenerateImage renders the given prompt, guided by at most a small
	// number of reference images (callers bound the slice before invoking).
	GenerateImage(
		ctx context.Context,
		prompt string,
		refs []*domain.ReferenceImage,
	) (*ImageResult, error)
}
