package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/store"
)

// MockThumbnailStore implements store.ThumbnailStore for testing. By default
// it behaves as an in-memory store; individual methods can be overridden via
// the Fn fields to inject failures.
type MockThumbnailStore struct {
	mu         sync.RWMutex
	thumbnails map[uuid.UUID]*domain.Thumbnail

	CreateFn    func(ctx context.Context, thumbnail *domain.Thumbnail) error
	GetByIDFn   func(ctx context.Context, id uuid.UUID) (*domain.Thumbnail, error)
	UpdateFn    func(ctx context.Context, thumbnail *domain.Thumbnail) error
	ListByTitleFn func(ctx context.Context, titleID uuid.UUID, window *store.Window) ([]*store.ThumbnailStatusRow, error)
	ListByIDsFn func(ctx context.Context, ids []uuid.UUID) ([]*store.ThumbnailStatusRow, error)

	// UpdateCalls records every status persisted through Update, in order.
	UpdateCalls []domain.ThumbnailStatus
}

// NewMockThumbnailStore creates an empty in-memory thumbnail store.
func NewMockThumbnailStore() *MockThumbnailStore {
	return &MockThumbnailStore{
		thumbnails: make(map[uuid.UUID]*domain.Thumbnail),
	}
}

// Seed inserts a thumbnail directly, bypassing any Fn override.
func (m *MockThumbnailStore) Seed(thumbnail *domain.Thumbnail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *thumbnail
	m.thumbnails[thumbnail.ID] = &copied
}

// Get returns the stored copy of a thumbnail, or nil.
func (m *MockThumbnailStore) Get(id uuid.UUID) *domain.Thumbnail {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.thumbnails[id]; ok {
		copied := *t
		return &copied
	}
	return nil
}

// StatusCounts tallies stored thumbnails by status.
func (m *MockThumbnailStore) StatusCounts() map[domain.ThumbnailStatus]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[domain.ThumbnailStatus]int)
	for _, t := range m.thumbnails {
		counts[t.Status]++
	}
	return counts
}

func (m *MockThumbnailStore) Create(ctx context.Context, thumbnail *domain.Thumbnail) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, thumbnail)
	}
	if err := thumbnail.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *thumbnail
	m.thumbnails[thumbnail.ID] = &copied
	return nil
}

func (m *MockThumbnailStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Thumbnail, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.thumbnails[id]
	if !ok {
		return nil, store.ErrThumbnailNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *MockThumbnailStore) Update(ctx context.Context, thumbnail *domain.Thumbnail) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, thumbnail)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.thumbnails[thumbnail.ID]; !ok {
		return store.ErrThumbnailNotFound
	}
	copied := *thumbnail
	m.thumbnails[thumbnail.ID] = &copied
	m.UpdateCalls = append(m.UpdateCalls, thumbnail.Status)
	return nil
}

func (m *MockThumbnailStore) ListByTitle(
	ctx context.Context,
	titleID uuid.UUID,
	window *store.Window,
) ([]*store.ThumbnailStatusRow, error) {
	if m.ListByTitleFn != nil {
		return m.ListByTitleFn(ctx, titleID, window)
	}
	return []*store.ThumbnailStatusRow{}, nil
}

func (m *MockThumbnailStore) ListByIDs(
	ctx context.Context,
	ids []uuid.UUID,
) ([]*store.ThumbnailStatusRow, error) {
	if m.ListByIDsFn != nil {
		return m.ListByIDsFn(ctx, ids)
	}
	return []*store.ThumbnailStatusRow{}, nil
}

func (m *MockThumbnailStore) WithTx(tx *sql.Tx) store.ThumbnailStore {
	return m
}

// Ensure MockThumbnailStore implements store.ThumbnailStore
var _ store.ThumbnailStore = (*MockThumbnailStore)(nil)
