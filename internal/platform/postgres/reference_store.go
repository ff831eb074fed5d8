package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/store"
)

// PostgresReferenceStore implements the store.ReferenceStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReferenceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReferenceStore creates a new PostgreSQL implementation of the
// ReferenceStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresReferenceStore(db store.DBTX, logger *slog.Logger) *PostgresReferenceStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReferenceStore{
		db:     db,
		logger: logger.With(slog.String("component", "reference_store")),
	}
}

// Ensure PostgresReferenceStore implements store.ReferenceStore interface
var _ store.ReferenceStore = (*PostgresReferenceStore)(nil)

// Create implements store.ReferenceStore.Create
// Global references are stored with a NULL title_id.
func (s *PostgresReferenceStore) Create(ctx context.Context, ref *domain.ReferenceImage) error {
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO reference_images (id, title_id, is_global, image_data, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	titleID := uuid.NullUUID{UUID: ref.TitleID, Valid: ref.TitleID != uuid.Nil}

	_, err := s.db.ExecContext(ctx, query,
		ref.ID,
		titleID,
		ref.Global,
		ref.ImageData,
		ref.CreatedAt,
	)
	if err != nil {
		s.logger.Error("failed to create reference image",
			slog.String("reference_id", ref.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// ListForTitle implements store.ReferenceStore.ListForTitle
// It returns the title-scoped references plus the global ones, oldest first,
// so reference selection stays deterministic across calls.
func (s *PostgresReferenceStore) ListForTitle(ctx context.Context, titleID uuid.UUID) ([]*domain.ReferenceImage, error) {
	query := `
		SELECT id, title_id, is_global, image_data, created_at
		FROM reference_images
		WHERE title_id = $1 OR is_global = TRUE
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, titleID)
	if err != nil {
		s.logger.Error("failed to list reference images for title",
			slog.String("title_id", titleID.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return s.scanReferences(rows)
}

// GetByIDs implements store.ReferenceStore.GetByIDs
// Unknown IDs are silently omitted so the status surface keeps working when
// a recorded reference has since been deleted.
func (s *PostgresReferenceStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.ReferenceImage, error) {
	if len(ids) == 0 {
		return []*domain.ReferenceImage{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `
		SELECT id, title_id, is_global, image_data, created_at
		FROM reference_images
		WHERE id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to get reference images by IDs",
			slog.Int("count", len(ids)),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return s.scanReferences(rows)
}

// WithTx implements store.ReferenceStore.WithTx
func (s *PostgresReferenceStore) WithTx(tx *sql.Tx) store.ReferenceStore {
	return &PostgresReferenceStore{
		db:     tx,
		logger: s.logger,
	}
}

func (s *PostgresReferenceStore) scanReferences(rows *sql.Rows) ([]*domain.ReferenceImage, error) {
	refs := []*domain.ReferenceImage{}
	for rows.Next() {
		var ref domain.ReferenceImage
		var titleID uuid.NullUUID
		if err := rows.Scan(
			&ref.ID,
			&titleID,
			&ref.Global,
			&ref.ImageData,
			&ref.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reference image row: %w", err)
		}
		if titleID.Valid {
			ref.TitleID = titleID.UUID
		}
		refs = append(refs, &ref)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return refs, nil
}
