package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/events"
	"github.com/framefoundry/thumbgen-api/internal/generation"
	"github.com/framefoundry/thumbgen-api/internal/store"
)

// maxReferencesPerTask bounds how many reference images accompany one
// generation call. When more are available, the first ones win; the
// selection must be deterministic so retries and regeneration see the
// same subset.
const maxReferencesPerTask = 3

// causeTruncateLen bounds how much of the provider's error text makes it
// into the persisted failure message.
const causeTruncateLen = 200

// Common errors returned by the Dispatcher
var (
	ErrNilIdea          = errors.New("idea cannot be nil")
	ErrEmptyThumbnailID = errors.New("thumbnail ID cannot be empty")
	ErrClosed           = errors.New("dispatcher is shut down")

	// ErrAlreadyProcessing is returned when a task finds its thumbnail row
	// already claimed by a running task, as happens when the same thumbnail
	// is enqueued twice back to back. The later task is skipped entirely so
	// two tasks never race toward one row's terminal write.
	ErrAlreadyProcessing = errors.New("thumbnail is already being processed")
)

// Config holds configuration for the dispatcher
type Config struct {
	// MaxParallel determines how many tasks may run image generation
	// concurrently
	MaxParallel int

	// MaxRetries is the number of retries after a failed attempt, so
	// MaxRetries=2 allows at most 3 attempts per task
	MaxRetries int

	// SettleDelay is the pause between a slot freeing and the next task
	// starting
	SettleDelay time.Duration
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		MaxParallel: 5,
		MaxRetries:  2,
		SettleDelay: 200 * time.Millisecond,
	}
}

// Dispatcher runs image-generation tasks with bounded concurrency.
type Dispatcher struct {
	cfg        Config
	thumbnails store.ThumbnailStore
	images     generation.ImageGenerator
	notifier   *events.Notifier
	logger     *slog.Logger

	mu      sync.Mutex
	active  int
	waiting []*task
	closed  bool
	wg      sync.WaitGroup
}

// New creates a Dispatcher. Invalid config values fall back to defaults.
func New(
	cfg Config,
	thumbnails store.ThumbnailStore,
	images generation.ImageGenerator,
	notifier *events.Notifier,
	logger *slog.Logger,
) *Dispatcher {
	if cfg.MaxParallel <= 0 {
		logger.Warn("invalid max parallel specified, using default",
			"specified", cfg.MaxParallel,
			"default", DefaultConfig().MaxParallel)
		cfg.MaxParallel = DefaultConfig().MaxParallel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &Dispatcher{
		cfg:        cfg,
		thumbnails: thumbnails,
		images:     images,
		notifier:   notifier,
		logger:     logger.With("component", "dispatcher"),
	}
}

// Enqueue accepts one idea for image generation. If a slot is free the task
// starts immediately, otherwise it waits in FIFO order. The thumbnail row
// moves to processing only when the task actually starts, so callers must
// not assume an immediate state change.
//
// The returned channel delivers exactly one Result when the task reaches a
// terminal outcome and is then closed. The batch path may discard it and
// rely on polling; regeneration callers typically await it.
func (d *Dispatcher) Enqueue(
	idea *domain.Idea,
	thumbnailID uuid.UUID,
	refs []*domain.ReferenceImage,
	regenerate bool,
) (<-chan Result, error) {
	if idea == nil {
		return nil, ErrNilIdea
	}
	if thumbnailID == uuid.Nil {
		return nil, ErrEmptyThumbnailID
	}

	t := &task{
		idea:        idea,
		thumbnailID: thumbnailID,
		refs:        refs,
		regenerate:  regenerate,
		done:        make(chan Result, 1),
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}

	if d.active < d.cfg.MaxParallel {
		d.active++
		d.wg.Add(1)
		go d.run(t)
	} else {
		d.waiting = append(d.waiting, t)
	}

	d.logger.Debug("task enqueued",
		"thumbnail_id", t.thumbnailID,
		"idea_id", idea.ID,
		"regenerate", regenerate,
		"active", d.active,
		"waiting", len(d.waiting))

	return t.done, nil
}

// Shutdown stops the dispatcher: queued tasks that never started are
// resolved with ErrClosed, and the call blocks until in-flight tasks finish
// or ctx expires. Queued work is not persisted across restarts.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	dropped := d.waiting
	d.waiting = nil
	d.mu.Unlock()

	for _, t := range dropped {
		t.done <- Result{ThumbnailID: t.thumbnailID, Attempts: t.attempt, Err: ErrClosed}
		close(t.done)
	}
	if len(dropped) > 0 {
		d.logger.Info("dropped queued tasks on shutdown", "count", len(dropped))
	}

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}

// run executes one attempt of the task and routes the outcome: success and
// exhausted-retry failures resolve the future, retryable failures requeue
// the task at the front. Tasks run on a background context because the work
// outlives the request that enqueued it.
func (d *Dispatcher) run(t *task) {
	defer d.wg.Done()

	ctx := context.Background()
	logger := d.logger.With(
		"thumbnail_id", t.thumbnailID,
		"idea_id", t.idea.ID,
		"attempt", t.attempt+1,
		"max_attempts", d.cfg.MaxRetries+1,
	)
	logger.Info("starting generation attempt")

	imageURL, err := d.attempt(ctx, t)

	retry := false
	switch {
	case err == nil:
		logger.Info("generation attempt succeeded")
		t.done <- Result{
			ThumbnailID: t.thumbnailID,
			ImageURL:    imageURL,
			Attempts:    t.attempt + 1,
		}
		close(t.done)

	case errors.Is(err, ErrAlreadyProcessing):
		// No retry and no MarkFailed: the owning task decides the row's
		// terminal state, this one just reports that it stepped aside.
		logger.Warn("thumbnail already in flight, skipping duplicate task")
		t.done <- Result{
			ThumbnailID: t.thumbnailID,
			Attempts:    t.attempt + 1,
			Err:         err,
		}
		close(t.done)

	case t.attempt < d.cfg.MaxRetries:
		logger.Warn("generation attempt failed, will retry", "error", err)
		t.attempt++
		retry = true

	default:
		attempts := t.attempt + 1
		logger.Error("generation failed permanently", "error", err, "attempts", attempts)
		detail := fmt.Sprintf("failed after %d attempts: %s", attempts, truncateCause(err))
		if terr := d.transition(ctx, t.thumbnailID, func(th *domain.Thumbnail) error {
			return th.MarkFailed(detail)
		}); terr != nil {
			// The failure marking must never take the task loop down or hang
			// a waiting caller; degraded visibility is the lesser evil.
			logger.Error("failed to persist failed status", "error", terr)
		}
		t.done <- Result{
			ThumbnailID: t.thumbnailID,
			Attempts:    attempts,
			Err:         err,
		}
		close(t.done)
	}

	d.release(t, retry)
}

// release frees the task's slot and hands it to the next waiting task, if
// any, after the settle delay. A retrying task goes to the FRONT of the
// queue so it runs before fresh work.
func (d *Dispatcher) release(t *task, retry bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if retry {
		if d.closed {
			// Shutting down; the retry will never run.
			d.logger.Warn("dropping retry on shutdown", "thumbnail_id", t.thumbnailID)
			t.done <- Result{ThumbnailID: t.thumbnailID, Attempts: t.attempt, Err: ErrClosed}
			close(t.done)
		} else {
			d.waiting = append([]*task{t}, d.waiting...)
		}
	}

	if len(d.waiting) > 0 && !d.closed {
		next := d.waiting[0]
		d.waiting = d.waiting[1:]
		// Slot handoff: the sleeping goroutine keeps the slot occupied, so
		// the concurrency bound holds through the settle delay.
		d.wg.Add(1)
		go func() {
			time.Sleep(d.cfg.SettleDelay)
			d.run(next)
		}()
		return
	}

	d.active--
}

// attempt performs exactly one generation attempt for the task record.
// It is stateless with respect to the task: everything it needs is in the
// record, and the only mutation between attempts is the counter.
func (d *Dispatcher) attempt(ctx context.Context, t *task) (string, error) {
	logger := d.logger.With("thumbnail_id", t.thumbnailID, "idea_id", t.idea.ID)

	// First attempts flip the row to processing. Retries do not touch the
	// persisted status: transient failures stay invisible to polling
	// clients, who simply observe continued processing.
	if t.attempt == 0 {
		if err := d.transition(ctx, t.thumbnailID, func(th *domain.Thumbnail) error {
			return th.MarkProcessing()
		}); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				// Another task owns the row right now. Skip before calling the
				// provider so the duplicate never burns an API call.
				return "", ErrAlreadyProcessing
			}
			logger.Error("failed to mark thumbnail processing", "error", err)
		}
	}

	prompt := t.idea.FullPrompt
	if t.attempt > 0 {
		prompt = fmt.Sprintf(
			"%s [IMPORTANT: this is retry #%d, make sure the image is clear, high quality, and follows all instructions carefully]",
			prompt, t.attempt,
		)
	}

	selected := selectReferences(t.refs)

	result, err := d.images.GenerateImage(ctx, prompt, selected)
	if err != nil {
		return "", err
	}

	usedRefIDs := make([]uuid.UUID, 0, len(selected))
	for _, ref := range selected {
		usedRefIDs = append(usedRefIDs, ref.ID)
	}

	if terr := d.transition(ctx, t.thumbnailID, func(th *domain.Thumbnail) error {
		return th.MarkCompleted(result.ImageURL, usedRefIDs)
	}); terr != nil {
		// The artifact exists; losing the status write must not fail the
		// task or hang a waiting caller.
		logger.Error("failed to persist completed status", "error", terr)
	}

	return result.ImageURL, nil
}

// transition loads the thumbnail, applies the state change and persists the
// row. The event is published once the in-memory transition succeeds; it
// reflects the task's actual outcome even when the persistence write fails.
func (d *Dispatcher) transition(
	ctx context.Context,
	thumbnailID uuid.UUID,
	apply func(*domain.Thumbnail) error,
) error {
	thumbnail, err := d.thumbnails.GetByID(ctx, thumbnailID)
	if err != nil {
		return fmt.Errorf("failed to load thumbnail: %w", err)
	}

	if err := apply(thumbnail); err != nil {
		return err
	}

	if d.notifier != nil {
		d.notifier.Publish(events.NewThumbnailEvent(thumbnail))
	}

	if err := d.thumbnails.Update(ctx, thumbnail); err != nil {
		return fmt.Errorf("failed to persist thumbnail status %s: %w", thumbnail.Status, err)
	}

	return nil
}

// selectReferences picks the bounded subset of reference images passed to
// the provider: the first maxReferencesPerTask, deterministically.
func selectReferences(refs []*domain.ReferenceImage) []*domain.ReferenceImage {
	if len(refs) <= maxReferencesPerTask {
		return refs
	}
	return refs[:maxReferencesPerTask]
}

// truncateCause bounds the provider error text used in failure messages.
func truncateCause(err error) string {
	msg := err.Error()
	runes := []rune(msg)
	if len(runes) <= causeTruncateLen {
		return msg
	}
	return string(runes[:causeTruncateLen])
}
