package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/domain"
)

// ReferenceStore defines the interface for reference image persistence.
type ReferenceStore interface {
	// Create saves a new reference image to the store.
	Create(ctx context.Context, ref *domain.ReferenceImage) error

	// ListForTitle retrieves the reference set applicable to one title:
	// title-scoped references plus global ones, deduplicated, oldest first.
	// Returns an empty slice when no references apply.
	ListForTitle(ctx context.Context, titleID uuid.UUID) ([]*domain.ReferenceImage, error)

	// GetByIDs retrieves reference images by ID. Unknown IDs are silently
	// omitted; the status query must keep working when a recorded reference
	// has since been deleted.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.ReferenceImage, error)

	// WithTx returns a new ReferenceStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ReferenceStore
}
