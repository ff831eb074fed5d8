package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/store"
)

// MockReferenceStore implements store.ReferenceStore for testing.
type MockReferenceStore struct {
	mu   sync.RWMutex
	refs map[uuid.UUID]*domain.ReferenceImage

	CreateFn       func(ctx context.Context, ref *domain.ReferenceImage) error
	ListForTitleFn func(ctx context.Context, titleID uuid.UUID) ([]*domain.ReferenceImage, error)
	GetByIDsFn     func(ctx context.Context, ids []uuid.UUID) ([]*domain.ReferenceImage, error)
}

// NewMockReferenceStore creates an empty in-memory reference image store.
func NewMockReferenceStore() *MockReferenceStore {
	return &MockReferenceStore{refs: make(map[uuid.UUID]*domain.ReferenceImage)}
}

// Seed inserts a reference image directly, bypassing any Fn override.
func (m *MockReferenceStore) Seed(ref *domain.ReferenceImage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *ref
	m.refs[ref.ID] = &copied
}

func (m *MockReferenceStore) Create(ctx context.Context, ref *domain.ReferenceImage) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, ref)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *ref
	m.refs[ref.ID] = &copied
	return nil
}

func (m *MockReferenceStore) ListForTitle(ctx context.Context, titleID uuid.UUID) ([]*domain.ReferenceImage, error) {
	if m.ListForTitleFn != nil {
		return m.ListForTitleFn(ctx, titleID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	refs := make([]*domain.ReferenceImage, 0)
	for _, ref := range m.refs {
		if ref.Global || ref.TitleID == titleID {
			copied := *ref
			refs = append(refs, &copied)
		}
	}
	return refs, nil
}

func (m *MockReferenceStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.ReferenceImage, error) {
	if m.GetByIDsFn != nil {
		return m.GetByIDsFn(ctx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	refs := make([]*domain.ReferenceImage, 0, len(ids))
	for _, id := range ids {
		if ref, ok := m.refs[id]; ok {
			copied := *ref
			refs = append(refs, &copied)
		}
	}
	return refs, nil
}

func (m *MockReferenceStore) WithTx(tx *sql.Tx) store.ReferenceStore {
	return m
}

// Ensure MockReferenceStore implements store.ReferenceStore
var _ store.ReferenceStore = (*MockReferenceStore)(nil)
