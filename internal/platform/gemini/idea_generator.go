package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/framefoundry/thumbgen-api/internal/config"
	"github.com/framefoundry/thumbgen-api/internal/generation"
)

// ideaSystemInstruction steers the model toward novel concepts; the prompt
// itself carries the already-used summaries.
const ideaSystemInstruction = "You are a creative thumbnail designer. " +
	"Generate unique thumbnail concepts that haven't been suggested before."

// ideaResponse is the JSON shape the model is asked to return.
type ideaResponse struct {
	Summary    string `json:"summary"`
	FullPrompt string `json:"full_prompt"`
}

// IdeaGenerator implements the generation.IdeaGenerator interface using
// Google's Gemini API to draft thumbnail concepts.
type IdeaGenerator struct {
	// logger is used for structured logging
	logger *slog.Logger

	// client is the Gemini API client for making requests
	client *genai.Client

	// model is the name of the Gemini model to use
	model string
}

// NewIdeaGenerator creates a new instance of IdeaGenerator with the provided
// dependencies.
//
// Parameters:
//   - ctx: Context for the operation, which can be used for cancellation
//   - logger: A structured logger for operation logging
//   - cfg: LLM configuration containing the API key and model names
//
// Returns:
//   - A properly initialized IdeaGenerator or an error if initialization fails
func NewIdeaGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*IdeaGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.IdeaModel == "" {
		return nil, fmt.Errorf("%w: idea model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := newClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &IdeaGenerator{
		logger: logger.With(slog.String("component", "idea_generator")),
		client: client,
		model:  cfg.IdeaModel,
	}, nil
}

// Ensure IdeaGenerator implements generation.IdeaGenerator
var _ generation.IdeaGenerator = (*IdeaGenerator)(nil)

// GenerateIdea implements generation.IdeaGenerator.GenerateIdea
// It makes a single API call asking for one structured concept and parses
// the JSON response into an IdeaDraft.
func (g *IdeaGenerator) GenerateIdea(
	ctx context.Context,
	titleName string,
	instructions string,
	priorSummaries []string,
) (*generation.IdeaDraft, error) {
	prompt, err := buildIdeaPrompt(titleName, instructions, priorSummaries)
	if err != nil {
		return nil, err
	}

	g.logger.DebugContext(ctx, "requesting idea from Gemini",
		"model", g.model,
		"prior_summaries", len(priorSummaries))

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(ideaSystemInstruction, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini idea call failed", "error", err)
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	var parsed ideaResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
			generation.ErrInvalidResponse, err)
	}
	if parsed.Summary == "" || parsed.FullPrompt == "" {
		return nil, fmt.Errorf("%w: incomplete idea data in response", generation.ErrInvalidResponse)
	}

	return &generation.IdeaDraft{
		Summary:    parsed.Summary,
		FullPrompt: parsed.FullPrompt,
	}, nil
}

// buildIdeaPrompt assembles the user prompt for one concept request. Prior
// summaries ride along as duplicate-avoidance context, which is why a batch
// produces its concepts sequentially.
func buildIdeaPrompt(titleName, instructions string, priorSummaries []string) (string, error) {
	if titleName == "" {
		return "", ErrEmptyTitleName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a thumbnail concept for the title: %q.\n", titleName)
	if instructions != "" {
		fmt.Fprintf(&b, "Custom instructions: %s\n", instructions)
	}
	if len(priorSummaries) > 0 {
		fmt.Fprintf(&b, "Previous thumbnail ideas: %s\n", strings.Join(priorSummaries, "; "))
	}
	b.WriteString("Please generate a completely new and different thumbnail idea that hasn't been suggested yet.\n")
	b.WriteString(`Respond with a JSON object of the form {"summary": ..., "full_prompt": ...} ` +
		"where summary is a short description of the concept (30-50 words) and full_prompt " +
		"is the full image-generation prompt (100-200 words with detailed visual instructions).")

	return b.String(), nil
}
