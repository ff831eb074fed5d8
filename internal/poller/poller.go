// Package poller implements the client-side polling protocol for thumbnail
// batches: read the status surface on a fixed interval until every work item
// reaches a terminal state or the attempt budget runs out.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/service"
	"github.com/framefoundry/thumbgen-api/internal/store"
)

// Common errors returned by the Poller
var (
	// ErrStillProcessing is returned when the attempt budget runs out while
	// work items are still pending or processing. Nothing is cancelled
	// server-side; generation continues and a later poll may find it done.
	ErrStillProcessing = errors.New("thumbnails still processing after polling budget")

	// ErrAlreadyPolling is returned when a wait is already in flight for
	// the same title.
	ErrAlreadyPolling = errors.New("a poll for this title is already in flight")

	// ErrNilReader is returned when the poller is constructed without a
	// status reader.
	ErrNilReader = errors.New("status reader cannot be nil")
)

// StatusReader is the slice of the status surface the poller depends on.
type StatusReader interface {
	GetThumbnails(ctx context.Context, titleID uuid.UUID, window *store.Window) (*service.StatusPage, error)
}

// Config holds configuration for the poller
type Config struct {
	// Interval is the pause between status reads
	Interval time.Duration

	// MaxAttempts bounds how many reads one wait performs
	MaxAttempts int
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		Interval:    3 * time.Second,
		MaxAttempts: 60,
	}
}

// Poller waits for thumbnail batches to finish by reading the status
// surface. Per-title in-flight tracking stops redundant concurrent waits
// for the same title.
type Poller struct {
	cfg    Config
	reader StatusReader
	logger *slog.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

// New creates a Poller. Invalid config values fall back to defaults.
func New(cfg Config, reader StatusReader, logger *slog.Logger) (*Poller, error) {
	if reader == nil {
		return nil, ErrNilReader
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}

	return &Poller{
		cfg:      cfg,
		reader:   reader,
		logger:   logger.With("component", "poller"),
		inFlight: make(map[uuid.UUID]bool),
	}, nil
}

// WaitForTitle polls the title's thumbnails, restricted to the given window
// when non-nil, until every item is terminal. It returns the final snapshot,
// or the last observed one together with ErrStillProcessing when the budget
// runs out. Completed and failed both count as terminal; a failed thumbnail
// never blocks batch completion.
func (p *Poller) WaitForTitle(
	ctx context.Context,
	titleID uuid.UUID,
	window *store.Window,
) (*service.StatusPage, error) {
	p.mu.Lock()
	if p.inFlight[titleID] {
		p.mu.Unlock()
		return nil, ErrAlreadyPolling
	}
	p.inFlight[titleID] = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.inFlight, titleID)
		p.mu.Unlock()
	}()

	var last *service.StatusPage
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		page, err := p.reader.GetThumbnails(ctx, titleID, window)
		if err != nil {
			return nil, err
		}
		last = page

		if allTerminal(page) {
			p.logger.Debug("batch finished",
				"title_id", titleID,
				"items", len(page.Items),
				"attempts", attempt)
			return page, nil
		}

		if attempt == p.cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(p.cfg.Interval):
		case <-ctx.Done():
			return last, ctx.Err()
		}
	}

	p.logger.Warn("polling budget exhausted",
		"title_id", titleID,
		"max_attempts", p.cfg.MaxAttempts)
	return last, ErrStillProcessing
}

// allTerminal reports whether every item on the page has settled. An empty
// page counts as settled: a batch that created nothing has nothing to wait
// for.
func allTerminal(page *service.StatusPage) bool {
	for _, item := range page.Items {
		switch item.Status {
		case domain.ThumbnailStatusCompleted, domain.ThumbnailStatusFailed:
		default:
			return false
		}
	}
	return true
}
