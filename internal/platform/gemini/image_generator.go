package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/framefoundry/thumbgen-api/internal/config"
	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/generation"
)

// ImageGenerator implements the generation.ImageGenerator interface using
// Google's Gemini API to render thumbnail images. It performs a single
// attempt per call; the dispatcher owns retry policy.
type ImageGenerator struct {
	// logger is used for structured logging
	logger *slog.Logger

	// client is the Gemini API client for making requests
	client *genai.Client

	// model is the name of the image-capable Gemini model to use
	model string
}

// NewImageGenerator creates a new instance of ImageGenerator with the
// provided dependencies.
//
// Parameters:
//   - ctx: Context for the operation, which can be used for cancellation
//   - logger: A structured logger for operation logging
//   - cfg: LLM configuration containing the API key and model names
//
// Returns:
//   - A properly initialized ImageGenerator or an error if initialization fails
func NewImageGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*ImageGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ImageModel == "" {
		return nil, fmt.Errorf("%w: image model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := newClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &ImageGenerator{
		logger: logger.With(slog.String("component", "image_generator")),
		client: client,
		model:  cfg.ImageModel,
	}, nil
}

// Ensure ImageGenerator implements generation.ImageGenerator
var _ generation.ImageGenerator = (*ImageGenerator)(nil)

// GenerateImage implements generation.ImageGenerator.GenerateImage
// The prompt rides as a text part and each reference image as inline data.
// The first inline image in the response comes back as a data URL.
func (g *ImageGenerator) GenerateImage(
	ctx context.Context,
	prompt string,
	refs []*domain.ReferenceImage,
) (*generation.ImageResult, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, ref := range refs {
		mimeType, data, err := parseDataURL(ref.ImageData)
		if err != nil {
			// A corrupt stored reference must not sink the whole attempt.
			g.logger.WarnContext(ctx, "skipping unreadable reference image",
				"reference_id", ref.ID,
				"error", err)
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(data, mimeType))
	}

	g.logger.DebugContext(ctx, "requesting image from Gemini",
		"model", g.model,
		"prompt_length", len(prompt),
		"references", len(parts)-1)

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini image call failed", "error", err)
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	candidate, err := firstCandidate(resp)
	if err != nil {
		return nil, err
	}

	for _, part := range candidate.Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return &generation.ImageResult{
				ImageURL: formatDataURL(part.InlineData.MIMEType, part.InlineData.Data),
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: no image data in response", generation.ErrInvalidResponse)
}

// parseDataURL splits a "data:<mime>;base64,<payload>" URL into its mime
// type and decoded bytes.
func parseDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURL)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURL)
	}

	mimeType, encoding, ok := strings.Cut(meta, ";")
	if !ok || encoding != "base64" {
		return "", nil, fmt.Errorf("%w: unsupported encoding", ErrInvalidDataURL)
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", ErrInvalidDataURL)
	}

	return mimeType, data, nil
}

// formatDataURL renders raw image bytes as a base64 data URL.
func formatDataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
