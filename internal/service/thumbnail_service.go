package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/dispatcher"
	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/generation"
	"github.com/framefoundry/thumbgen-api/internal/store"
)

// DefaultBatchQuantity is the number of thumbnails a batch produces when the
// caller does not specify one.
const DefaultBatchQuantity = 5

// backfillRounds bounds how many times the background backfill retries to
// make up the shortfall of a partially failed batch.
const backfillRounds = 2

// ImageDispatcher is the slice of the dispatcher the service depends on.
type ImageDispatcher interface {
	// Enqueue submits one idea for image generation. The returned channel
	// resolves with the terminal outcome; batch callers discard it.
	Enqueue(
		idea *domain.Idea,
		thumbnailID uuid.UUID,
		refs []*domain.ReferenceImage,
		regenerate bool,
	) (<-chan dispatcher.Result, error)
}

// RegenerateReceipt acknowledges an accepted regeneration request. The row
// keeps its previous terminal status until the dispatched task starts, so
// callers poll rather than read a state change out of the receipt.
type RegenerateReceipt struct {
	ThumbnailID uuid.UUID `json:"thumbnail_id"`
	TitleID     uuid.UUID `json:"title_id"`
	IdeaID      uuid.UUID `json:"idea_id"`
	Summary     string    `json:"summary"`
}

// ThumbnailService provides thumbnail-generation operations: batch creation,
// regeneration, and the polling status surface.
type ThumbnailService interface {
	// GenerateBatch produces up to quantity new thumbnails for the title and
	// returns the IDs of the work items created synchronously. Image
	// rendering continues in the background; callers poll for progress.
	// A zero-length result is a legitimate degraded outcome, not an error.
	GenerateBatch(ctx context.Context, titleID uuid.UUID, quantity int) ([]uuid.UUID, error)

	// Regenerate re-renders an existing thumbnail using its original idea.
	// No new row is created and sibling thumbnails are untouched.
	Regenerate(ctx context.Context, titleID, thumbnailID uuid.UUID) (*RegenerateReceipt, error)

	// GetThumbnails returns the status page for a title's thumbnails,
	// optionally restricted to a window of the newest-first ordering.
	GetThumbnails(ctx context.Context, titleID uuid.UUID, window *store.Window) (*StatusPage, error)

	// GetThumbnailsByIDs returns the status page for an explicit set of
	// thumbnails, typically the IDs a GenerateBatch call handed back.
	GetThumbnailsByIDs(ctx context.Context, ids []uuid.UUID) (*StatusPage, error)
}

// thumbnailServiceImpl implements the ThumbnailService interface
type thumbnailServiceImpl struct {
	db         *sql.DB
	titles     store.TitleStore
	ideas      store.IdeaStore
	thumbnails store.ThumbnailStore
	references store.ReferenceStore
	ideaGen    generation.IdeaGenerator
	dispatcher ImageDispatcher
	logger     *slog.Logger
}

// NewThumbnailService creates a new ThumbnailService.
// It returns an error if any of the required dependencies are nil. The db
// handle may be nil when the stores are not database-backed (in-memory
// stores in tests); persistence then runs without a transaction.
func NewThumbnailService(
	db *sql.DB,
	titles store.TitleStore,
	ideas store.IdeaStore,
	thumbnails store.ThumbnailStore,
	references store.ReferenceStore,
	ideaGen generation.IdeaGenerator,
	imageDispatcher ImageDispatcher,
	logger *slog.Logger,
) (ThumbnailService, error) {
	if titles == nil {
		return nil, &ThumbnailServiceError{Operation: "create_service", Message: "titles store cannot be nil"}
	}
	if ideas == nil {
		return nil, &ThumbnailServiceError{Operation: "create_service", Message: "ideas store cannot be nil"}
	}
	if thumbnails == nil {
		return nil, &ThumbnailServiceError{Operation: "create_service", Message: "thumbnails store cannot be nil"}
	}
	if references == nil {
		return nil, &ThumbnailServiceError{Operation: "create_service", Message: "references store cannot be nil"}
	}
	if ideaGen == nil {
		return nil, &ThumbnailServiceError{Operation: "create_service", Message: "idea generator cannot be nil"}
	}
	if imageDispatcher == nil {
		return nil, &ThumbnailServiceError{Operation: "create_service", Message: "dispatcher cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &thumbnailServiceImpl{
		db:         db,
		titles:     titles,
		ideas:      ideas,
		thumbnails: thumbnails,
		references: references,
		ideaGen:    ideaGen,
		dispatcher: imageDispatcher,
		logger:     logger.With("component", "thumbnail_service"),
	}, nil
}

// GenerateBatch implements ThumbnailService.GenerateBatch
// Concepts are produced sequentially so each request sees every summary
// already taken; a failed slot is skipped, and a background backfill tries
// to make up the shortfall afterwards.
func (s *thumbnailServiceImpl) GenerateBatch(
	ctx context.Context,
	titleID uuid.UUID,
	quantity int,
) ([]uuid.UUID, error) {
	if quantity <= 0 {
		quantity = DefaultBatchQuantity
	}

	title, err := s.titles.GetByID(ctx, titleID)
	if err != nil {
		if errors.Is(err, store.ErrTitleNotFound) {
			return nil, ErrTitleNotFound
		}
		return nil, NewThumbnailServiceError("generate_batch", "failed to load title", err)
	}

	refs, err := s.references.ListForTitle(ctx, titleID)
	if err != nil {
		return nil, NewThumbnailServiceError("generate_batch", "failed to load reference images", err)
	}

	prior, err := s.ideas.ListByTitle(ctx, titleID)
	if err != nil {
		return nil, NewThumbnailServiceError("generate_batch", "failed to load prior ideas", err)
	}
	priorSummaries := make([]string, 0, len(prior)+quantity)
	for _, idea := range prior {
		priorSummaries = append(priorSummaries, idea.Summary)
	}

	s.logger.Info("starting thumbnail batch",
		"title_id", titleID,
		"quantity", quantity,
		"references", len(refs),
		"prior_ideas", len(prior))

	created := make([]uuid.UUID, 0, quantity)
	for i := 0; i < quantity; i++ {
		draft, err := s.ideaGen.GenerateIdea(ctx, title.Name, title.Instructions, priorSummaries)
		if err != nil {
			// A failed slot shrinks the batch; it never aborts it.
			s.logger.Warn("idea generation failed, skipping slot",
				"title_id", titleID,
				"slot", i,
				"error", err)
			continue
		}

		thumbnailID, err := s.createAndEnqueue(ctx, title, draft, refs)
		if err != nil {
			return nil, err
		}

		created = append(created, thumbnailID)
		priorSummaries = append(priorSummaries, draft.Summary)
	}

	if len(created) < quantity {
		shortfall := quantity - len(created)
		s.logger.Info("batch short of requested quantity, starting backfill",
			"title_id", titleID,
			"created", len(created),
			"shortfall", shortfall)
		// The request returns now; the backfill owns its own lifetime.
		go s.backfill(context.WithoutCancel(ctx), title, refs, priorSummaries, shortfall)
	}

	return created, nil
}

// backfill runs after a partial batch, requesting up to twice the remaining
// shortfall per round so a flaky provider still has a chance to fill the
// batch. It stops early when a round yields nothing.
func (s *thumbnailServiceImpl) backfill(
	ctx context.Context,
	title *domain.Title,
	refs []*domain.ReferenceImage,
	priorSummaries []string,
	remaining int,
) {
	for round := 0; round < backfillRounds && remaining > 0; round++ {
		obtained := 0
		for attempt := 0; attempt < remaining*2 && obtained < remaining; attempt++ {
			draft, err := s.ideaGen.GenerateIdea(ctx, title.Name, title.Instructions, priorSummaries)
			if err != nil {
				s.logger.Warn("backfill idea generation failed",
					"title_id", title.ID,
					"round", round+1,
					"error", err)
				continue
			}

			if _, err := s.createAndEnqueue(ctx, title, draft, refs); err != nil {
				s.logger.Error("backfill persistence failed, abandoning backfill",
					"title_id", title.ID,
					"round", round+1,
					"error", err)
				return
			}

			obtained++
			priorSummaries = append(priorSummaries, draft.Summary)
		}

		if obtained == 0 {
			s.logger.Warn("backfill round produced no ideas, giving up",
				"title_id", title.ID,
				"round", round+1)
			return
		}
		remaining -= obtained
	}
}

// createAndEnqueue persists one idea with its pending thumbnail atomically,
// then hands the pair to the dispatcher. An enqueue failure (shutdown) is
// logged but does not unwind the persisted rows: the item simply stays
// pending.
func (s *thumbnailServiceImpl) createAndEnqueue(
	ctx context.Context,
	title *domain.Title,
	draft *generation.IdeaDraft,
	refs []*domain.ReferenceImage,
) (uuid.UUID, error) {
	idea, err := domain.NewIdea(title.ID, draft.Summary, draft.FullPrompt)
	if err != nil {
		return uuid.Nil, NewThumbnailServiceError("generate_batch", "failed to create idea object", err)
	}
	thumbnail, err := domain.NewThumbnail(title.ID, idea.ID)
	if err != nil {
		return uuid.Nil, NewThumbnailServiceError("generate_batch", "failed to create thumbnail object", err)
	}

	err = s.runInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.ideas.WithTx(tx).Create(ctx, idea); err != nil {
			return NewThumbnailServiceError("generate_batch", "failed to save idea", err)
		}
		if err := s.thumbnails.WithTx(tx).Create(ctx, thumbnail); err != nil {
			return NewThumbnailServiceError("generate_batch", "failed to save thumbnail", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	if _, err := s.dispatcher.Enqueue(idea, thumbnail.ID, refs, false); err != nil {
		s.logger.Error("failed to enqueue thumbnail for generation",
			"thumbnail_id", thumbnail.ID,
			"idea_id", idea.ID,
			"error", err)
	}

	return thumbnail.ID, nil
}

// Regenerate implements ThumbnailService.Regenerate
func (s *thumbnailServiceImpl) Regenerate(
	ctx context.Context,
	titleID, thumbnailID uuid.UUID,
) (*RegenerateReceipt, error) {
	thumbnail, err := s.thumbnails.GetByID(ctx, thumbnailID)
	if err != nil {
		if errors.Is(err, store.ErrThumbnailNotFound) {
			return nil, ErrThumbnailNotFound
		}
		return nil, NewThumbnailServiceError("regenerate", "failed to load thumbnail", err)
	}
	// A thumbnail reached through the wrong title is treated as absent
	// rather than leaking that the ID exists elsewhere.
	if thumbnail.TitleID != titleID {
		return nil, ErrThumbnailNotFound
	}

	idea, err := s.ideas.GetByID(ctx, thumbnail.IdeaID)
	if err != nil {
		return nil, NewThumbnailServiceError("regenerate", "failed to load idea", err)
	}

	refs, err := s.references.ListForTitle(ctx, titleID)
	if err != nil {
		return nil, NewThumbnailServiceError("regenerate", "failed to load reference images", err)
	}

	if _, err := s.dispatcher.Enqueue(idea, thumbnail.ID, refs, true); err != nil {
		return nil, NewThumbnailServiceError("regenerate", "failed to enqueue regeneration", err)
	}

	s.logger.Info("regeneration enqueued",
		"thumbnail_id", thumbnail.ID,
		"idea_id", idea.ID,
		"title_id", titleID)

	return &RegenerateReceipt{
		ThumbnailID: thumbnail.ID,
		TitleID:     titleID,
		IdeaID:      idea.ID,
		Summary:     idea.Summary,
	}, nil
}

// runInTransaction wraps fn in a database transaction when a handle is
// available. Without one the stores are in-memory and fn runs directly.
func (s *thumbnailServiceImpl) runInTransaction(
	ctx context.Context,
	fn func(ctx context.Context, tx *sql.Tx) error,
) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return store.RunInTransaction(ctx, s.db, fn)
}

// ThumbnailServiceError wraps errors from the thumbnail service with context.
type ThumbnailServiceError struct {
	// Operation is the operation that failed (e.g., "generate_batch", "regenerate")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ThumbnailServiceError.
func (e *ThumbnailServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("thumbnail service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("thumbnail service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ThumbnailServiceError) Unwrap() error {
	return e.Err
}

// NewThumbnailServiceError creates a new ThumbnailServiceError.
// It returns known sentinel errors directly without wrapping.
func NewThumbnailServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrTitleNotFound) || errors.Is(err, ErrThumbnailNotFound) {
		return err
	}
	if errors.Is(err, store.ErrTitleNotFound) {
		return ErrTitleNotFound
	}
	if errors.Is(err, store.ErrThumbnailNotFound) {
		return ErrThumbnailNotFound
	}

	return &ThumbnailServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
