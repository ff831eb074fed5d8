package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/store"
)

// MockIdeaStore implements store.IdeaStore for testing.
type MockIdeaStore struct {
	mu    sync.RWMutex
	ideas map[uuid.UUID]*domain.Idea

	CreateFn      func(ctx context.Context, idea *domain.Idea) error
	GetByIDFn     func(ctx context.Context, id uuid.UUID) (*domain.Idea, error)
	ListByTitleFn func(ctx context.Context, titleID uuid.UUID) ([]*domain.Idea, error)
}

// NewMockIdeaStore creates an empty in-memory idea store.
func NewMockIdeaStore() *MockIdeaStore {
	return &MockIdeaStore{ideas: make(map[uuid.UUID]*domain.Idea)}
}

// Seed inserts an idea directly, bypassing any Fn override.
func (m *MockIdeaStore) Seed(idea *domain.Idea) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *idea
	m.ideas[idea.ID] = &copied
}

// Count returns the number of stored ideas.
func (m *MockIdeaStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ideas)
}

func (m *MockIdeaStore) Create(ctx context.Context, idea *domain.Idea) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, idea)
	}
	if err := idea.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *idea
	m.ideas[idea.ID] = &copied
	return nil
}

func (m *MockIdeaStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Idea, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	idea, ok := m.ideas[id]
	if !ok {
		return nil, store.ErrIdeaNotFound
	}
	copied := *idea
	return &copied, nil
}

func (m *MockIdeaStore) ListByTitle(ctx context.Context, titleID uuid.UUID) ([]*domain.Idea, error) {
	if m.ListByTitleFn != nil {
		return m.ListByTitleFn(ctx, titleID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ideas := make([]*domain.Idea, 0)
	for _, idea := range m.ideas {
		if idea.TitleID == titleID {
			copied := *idea
			ideas = append(ideas, &copied)
		}
	}
	return ideas, nil
}

func (m *MockIdeaStore) WithTx(tx *sql.Tx) store.IdeaStore {
	return m
}

// Ensure MockIdeaStore implements store.IdeaStore
var _ store.IdeaStore = (*MockIdeaStore)(nil)

// MockTitleStore implements store.TitleStore for testing.
type MockTitleStore struct {
	mu     sync.RWMutex
	titles map[uuid.UUID]*domain.Title

	CreateFn  func(ctx context.Context, title *domain.Title) error
	GetByIDFn func(ctx context.Context, id uuid.UUID) (*domain.Title, error)
}

// NewMockTitleStore creates an empty in-memory title store.
func NewMockTitleStore() *MockTitleStore {
	return &MockTitleStore{titles: make(map[uuid.UUID]*domain.Title)}
}

// Seed inserts a title directly, bypassing any Fn override.
func (m *MockTitleStore) Seed(title *domain.Title) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *title
	m.titles[title.ID] = &copied
}

func (m *MockTitleStore) Create(ctx context.Context, title *domain.Title) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, title)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *title
	m.titles[title.ID] = &copied
	return nil
}

func (m *MockTitleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Title, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	title, ok := m.titles[id]
	if !ok {
		return nil, store.ErrTitleNotFound
	}
	copied := *title
	return &copied, nil
}

func (m *MockTitleStore) WithTx(tx *sql.Tx) store.TitleStore {
	return m
}

// Ensure MockTitleStore implements store.TitleStore
var _ store.TitleStore = (*MockTitleStore)(nil)
