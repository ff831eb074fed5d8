package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/store"
)

// PostgresThumbnailStore implements the store.ThumbnailStore interface
// using a PostgreSQL database as the storage backend.
type PostgresThumbnailStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresThumbnailStore creates a new PostgreSQL implementation of the
// ThumbnailStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresThumbnailStore(db store.DBTX, logger *slog.Logger) *PostgresThumbnailStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresThumbnailStore{
		db:     db,
		logger: logger.With(slog.String("component", "thumbnail_store")),
	}
}

// Ensure PostgresThumbnailStore implements store.ThumbnailStore interface
var _ store.ThumbnailStore = (*PostgresThumbnailStore)(nil)

// Create implements store.ThumbnailStore.Create
// It saves a new thumbnail to the database after domain validation.
// Returns store.ErrIdeaAlreadyDispatched when a thumbnail already exists
// for the idea (thumbnails and ideas pair 1:1).
func (s *PostgresThumbnailStore) Create(ctx context.Context, thumbnail *domain.Thumbnail) error {
	log := s.logger.With(slog.String("thumbnail_id", thumbnail.ID.String()))

	if err := thumbnail.Validate(); err != nil {
		log.Warn("thumbnail validation failed during create", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	refIDs, err := encodeReferenceIDs(thumbnail.UsedReferenceIDs)
	if err != nil {
		return fmt.Errorf("failed to encode used reference IDs: %w", err)
	}

	query := `
		INSERT INTO thumbnails (id, title_id, idea_id, status, image_url, error_message,
			used_reference_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.ExecContext(ctx, query,
		thumbnail.ID,
		thumbnail.TitleID,
		thumbnail.IdeaID,
		thumbnail.Status,
		thumbnail.ImageURL,
		thumbnail.ErrorMessage,
		refIDs,
		thumbnail.CreatedAt,
		thumbnail.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("thumbnail already exists for idea",
				slog.String("idea_id", thumbnail.IdeaID.String()))
			return store.ErrIdeaAlreadyDispatched
		}
		log.Error("failed to create thumbnail", slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// GetByID implements store.ThumbnailStore.GetByID
// Returns store.ErrThumbnailNotFound if the thumbnail does not exist.
func (s *PostgresThumbnailStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Thumbnail, error) {
	query := `
		SELECT id, title_id, idea_id, status, image_url, error_message,
			used_reference_ids, created_at, updated_at
		FROM thumbnails
		WHERE id = $1
	`

	var thumbnail domain.Thumbnail
	var rawRefIDs []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&thumbnail.ID,
		&thumbnail.TitleID,
		&thumbnail.IdeaID,
		&thumbnail.Status,
		&thumbnail.ImageURL,
		&thumbnail.ErrorMessage,
		&rawRefIDs,
		&thumbnail.CreatedAt,
		&thumbnail.UpdatedAt,
	)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrThumbnailNotFound
		}
		s.logger.Error("failed to get thumbnail by ID",
			slog.String("thumbnail_id", id.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	// A malformed used_reference_ids column must not make the row
	// unreadable; the row loads with an empty reference list instead.
	thumbnail.UsedReferenceIDs = decodeReferenceIDs(rawRefIDs, s.logger, id)

	return &thumbnail, nil
}

// Update implements store.ThumbnailStore.Update
// Every status transition the dispatcher performs goes through here.
// Returns store.ErrThumbnailNotFound if the thumbnail does not exist.
func (s *PostgresThumbnailStore) Update(ctx context.Context, thumbnail *domain.Thumbnail) error {
	log := s.logger.With(slog.String("thumbnail_id", thumbnail.ID.String()))

	if err := thumbnail.Validate(); err != nil {
		log.Warn("thumbnail validation failed during update", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	refIDs, err := encodeReferenceIDs(thumbnail.UsedReferenceIDs)
	if err != nil {
		return fmt.Errorf("failed to encode used reference IDs: %w", err)
	}

	query := `
		UPDATE thumbnails
		SET status = $1, image_url = $2, error_message = $3,
			used_reference_ids = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := s.db.ExecContext(ctx, query,
		thumbnail.Status,
		thumbnail.ImageURL,
		thumbnail.ErrorMessage,
		refIDs,
		thumbnail.UpdatedAt,
		thumbnail.ID,
	)
	if err != nil {
		log.Error("failed to update thumbnail",
			slog.String("status", string(thumbnail.Status)),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "thumbnail"); err != nil {
		if IsNotFoundError(err) {
			return store.ErrThumbnailNotFound
		}
		return err
	}

	return nil
}

// statusRowColumns is the shared projection for the denormalized status
// queries: the thumbnail joined with its idea and owning title.
const statusRowColumns = `
	t.id, t.title_id, t.idea_id, t.status, t.image_url, t.error_message,
	t.used_reference_ids, t.created_at,
	i.summary, i.full_prompt,
	ti.name, ti.instructions
`

// ListByTitle implements store.ThumbnailStore.ListByTitle
// Rows come back newest first; a nil window returns everything.
func (s *PostgresThumbnailStore) ListByTitle(
	ctx context.Context,
	titleID uuid.UUID,
	window *store.Window,
) ([]*store.ThumbnailStatusRow, error) {
	query := `
		SELECT ` + statusRowColumns + `
		FROM thumbnails t
		JOIN ideas i ON i.id = t.idea_id
		JOIN titles ti ON ti.id = t.title_id
		WHERE t.title_id = $1
		ORDER BY t.created_at DESC
	`
	args := []interface{}{titleID}

	if window != nil {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, window.Limit, window.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to list thumbnails by title",
			slog.String("title_id", titleID.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return s.scanStatusRows(rows)
}

// ListByIDs implements store.ThumbnailStore.ListByIDs
// Unknown IDs are silently omitted.
func (s *PostgresThumbnailStore) ListByIDs(
	ctx context.Context,
	ids []uuid.UUID,
) ([]*store.ThumbnailStatusRow, error) {
	if len(ids) == 0 {
		return []*store.ThumbnailStatusRow{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `
		SELECT ` + statusRowColumns + `
		FROM thumbnails t
		JOIN ideas i ON i.id = t.idea_id
		JOIN titles ti ON ti.id = t.title_id
		WHERE t.id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY t.created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to list thumbnails by IDs",
			slog.Int("count", len(ids)),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return s.scanStatusRows(rows)
}

// WithTx implements store.ThumbnailStore.WithTx
// It returns a new ThumbnailStore instance that uses the provided transaction.
func (s *PostgresThumbnailStore) WithTx(tx *sql.Tx) store.ThumbnailStore {
	return &PostgresThumbnailStore{
		db:     tx,
		logger: s.logger,
	}
}

func (s *PostgresThumbnailStore) scanStatusRows(rows *sql.Rows) ([]*store.ThumbnailStatusRow, error) {
	out := []*store.ThumbnailStatusRow{}
	for rows.Next() {
		var row store.ThumbnailStatusRow
		err := rows.Scan(
			&row.ID,
			&row.TitleID,
			&row.IdeaID,
			&row.Status,
			&row.ImageURL,
			&row.ErrorMessage,
			&row.RawReferenceIDs,
			&row.CreatedAt,
			&row.Summary,
			&row.FullPrompt,
			&row.TitleName,
			&row.TitleInstructions,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thumbnail status row: %w", err)
		}
		out = append(out, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// encodeReferenceIDs marshals the used-reference list for the JSONB column.
// A nil slice is stored as an empty JSON array, never as SQL NULL.
func encodeReferenceIDs(ids []uuid.UUID) ([]byte, error) {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return json.Marshal(ids)
}

// decodeReferenceIDs unmarshals a used_reference_ids column, tolerating
// malformed content: a bad value is logged and treated as empty.
func decodeReferenceIDs(raw []byte, log *slog.Logger, thumbnailID uuid.UUID) []uuid.UUID {
	if len(raw) == 0 {
		return nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		log.Warn("malformed used_reference_ids column, ignoring",
			slog.String("thumbnail_id", thumbnailID.String()),
			slog.String("error", err.Error()))
		return nil
	}
	return ids
}
