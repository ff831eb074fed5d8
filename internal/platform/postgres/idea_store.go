package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/store"
)

// PostgresIdeaStore implements the store.IdeaStore interface
// using a PostgreSQL database as the storage backend.
type PostgresIdeaStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresIdeaStore creates a new PostgreSQL implementation of the
// IdeaStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresIdeaStore(db store.DBTX, logger *slog.Logger) *PostgresIdeaStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresIdeaStore{
		db:     db,
		logger: logger.With(slog.String("component", "idea_store")),
	}
}

// Ensure PostgresIdeaStore implements store.IdeaStore interface
var _ store.IdeaStore = (*PostgresIdeaStore)(nil)

// Create implements store.IdeaStore.Create
func (s *PostgresIdeaStore) Create(ctx context.Context, idea *domain.Idea) error {
	if err := idea.Validate(); err != nil {
		s.logger.Warn("idea validation failed during create",
			slog.String("idea_id", idea.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO ideas (id, title_id, summary, full_prompt, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		idea.ID,
		idea.TitleID,
		idea.Summary,
		idea.FullPrompt,
		idea.CreatedAt,
	)
	if err != nil {
		s.logger.Error("failed to create idea",
			slog.String("idea_id", idea.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// GetByID implements store.IdeaStore.GetByID
// Returns store.ErrIdeaNotFound if the idea does not exist.
func (s *PostgresIdeaStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Idea, error) {
	query := `
		SELECT id, title_id, summary, full_prompt, created_at
		FROM ideas
		WHERE id = $1
	`

	var idea domain.Idea
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&idea.ID,
		&idea.TitleID,
		&idea.Summary,
		&idea.FullPrompt,
		&idea.CreatedAt,
	)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrIdeaNotFound
		}
		s.logger.Error("failed to get idea by ID",
			slog.String("idea_id", id.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return &idea, nil
}

// ListByTitle implements store.IdeaStore.ListByTitle
// Ideas come back newest first so the most recent concepts lead the
// duplicate-avoidance context.
func (s *PostgresIdeaStore) ListByTitle(ctx context.Context, titleID uuid.UUID) ([]*domain.Idea, error) {
	query := `
		SELECT id, title_id, summary, full_prompt, created_at
		FROM ideas
		WHERE title_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, titleID)
	if err != nil {
		s.logger.Error("failed to list ideas by title",
			slog.String("title_id", titleID.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	ideas := []*domain.Idea{}
	for rows.Next() {
		var idea domain.Idea
		if err := rows.Scan(
			&idea.ID,
			&idea.TitleID,
			&idea.Summary,
			&idea.FullPrompt,
			&idea.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan idea row: %w", err)
		}
		ideas = append(ideas, &idea)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return ideas, nil
}

// WithTx implements store.IdeaStore.WithTx
func (s *PostgresIdeaStore) WithTx(tx *sql.Tx) store.IdeaStore {
	return &PostgresIdeaStore{
		db:     tx,
		logger: s.logger,
	}
}

// PostgresTitleStore implements the store.TitleStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTitleStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTitleStore creates a new PostgreSQL implementation of the
// TitleStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTitleStore(db store.DBTX, logger *slog.Logger) *PostgresTitleStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTitleStore{
		db:     db,
		logger: logger.With(slog.String("component", "title_store")),
	}
}

// Ensure PostgresTitleStore implements store.TitleStore interface
var _ store.TitleStore = (*PostgresTitleStore)(nil)

// Create implements store.TitleStore.Create
func (s *PostgresTitleStore) Create(ctx context.Context, title *domain.Title) error {
	if err := title.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO titles (id, name, instructions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		title.ID,
		title.Name,
		title.Instructions,
		title.CreatedAt,
		title.UpdatedAt,
	)
	if err != nil {
		s.logger.Error("failed to create title",
			slog.String("title_id", title.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// GetByID implements store.TitleStore.GetByID
// Returns store.ErrTitleNotFound if the title does not exist.
func (s *PostgresTitleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Title, error) {
	query := `
		SELECT id, name, instructions, created_at, updated_at
		FROM titles
		WHERE id = $1
	`

	var title domain.Title
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&title.ID,
		&title.Name,
		&title.Instructions,
		&title.CreatedAt,
		&title.UpdatedAt,
	)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrTitleNotFound
		}
		s.logger.Error("failed to get title by ID",
			slog.String("title_id", id.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return &title, nil
}

// WithTx implements store.TitleStore.WithTx
func (s *PostgresTitleStore) WithTx(tx *sql.Tx) store.TitleStore {
	return &PostgresTitleStore{
		db:     tx,
		logger: s.logger,
	}
}
