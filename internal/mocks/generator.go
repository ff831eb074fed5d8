package mocks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/generation"
)

// MockIdeaGenerator implements generation.IdeaGenerator for testing.
type MockIdeaGenerator struct {
	mu    sync.Mutex
	calls int

	// PriorSummariesSeen records the prior-summaries argument of each call,
	// in call order.
	PriorSummariesSeen [][]string

	GenerateIdeaFn func(ctx context.Context, titleName, instructions string, priorSummaries []string) (*generation.IdeaDraft, error)
}

// NewMockIdeaGenerator creates a generator that returns sequentially numbered
// drafts by default.
func NewMockIdeaGenerator() *MockIdeaGenerator {
	return &MockIdeaGenerator{}
}

// Calls returns the number of GenerateIdea invocations.
func (m *MockIdeaGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockIdeaGenerator) GenerateIdea(ctx context.Context, titleName, instructions string, priorSummaries []string) (*generation.IdeaDraft, error) {
	m.mu.Lock()
	m.calls++
	n := m.calls
	seen := make([]string, len(priorSummaries))
	copy(seen, priorSummaries)
	m.PriorSummariesSeen = append(m.PriorSummariesSeen, seen)
	m.mu.Unlock()

	if m.GenerateIdeaFn != nil {
		return m.GenerateIdeaFn(ctx, titleName, instructions, priorSummaries)
	}
	return &generation.IdeaDraft{
		Summary:    fmt.Sprintf("idea %d for %s", n, titleName),
		FullPrompt: fmt.Sprintf("detailed prompt %d for %s", n, titleName),
	}, nil
}

// Ensure MockIdeaGenerator implements generation.IdeaGenerator
var _ generation.IdeaGenerator = (*MockIdeaGenerator)(nil)

// MockImageGenerator implements generation.ImageGenerator for testing. It
// tracks the number of in-flight calls so tests can assert concurrency
// bounds.
type MockImageGenerator struct {
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	calls       atomic.Int64

	mu      sync.Mutex
	prompts []string

	// Block, when non-nil, is received from inside each call before the
	// generator returns. Tests close or send on it to release calls.
	Block chan struct{}

	GenerateImageFn func(ctx context.Context, prompt string, refs []*domain.ReferenceImage) (*generation.ImageResult, error)
}

// NewMockImageGenerator creates a generator that returns a fixed data URL
// by default.
func NewMockImageGenerator() *MockImageGenerator {
	return &MockImageGenerator{}
}

// Calls returns the total number of GenerateImage invocations.
func (m *MockImageGenerator) Calls() int {
	return int(m.calls.Load())
}

// MaxInFlight returns the highest number of concurrent GenerateImage calls
// observed.
func (m *MockImageGenerator) MaxInFlight() int {
	return int(m.maxInFlight.Load())
}

// Prompts returns the prompt of each call in call order.
func (m *MockImageGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

func (m *MockImageGenerator) GenerateImage(ctx context.Context, prompt string, refs []*domain.ReferenceImage) (*generation.ImageResult, error) {
	m.calls.Add(1)
	current := m.inFlight.Add(1)
	for {
		max := m.maxInFlight.Load()
		if current <= max || m.maxInFlight.CompareAndSwap(max, current) {
			break
		}
	}
	defer m.inFlight.Add(-1)

	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.GenerateImageFn != nil {
		return m.GenerateImageFn(ctx, prompt, refs)
	}
	return &generation.ImageResult{ImageURL: "data:image/png;base64,c3R1Yg=="}, nil
}

// Ensure MockImageGenerator implements generation.ImageGenerator
var _ generation.ImageGenerator = (*MockImageGenerator)(nil)
