package poller_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/poller"
	"github.com/framefoundry/thumbgen-api/internal/service"
	"github.com/framefoundry/thumbgen-api/internal/store"
)

// scriptedReader returns one prepared page per call, repeating the last one
// once the script runs out.
type scriptedReader struct {
	mu    sync.Mutex
	pages []*service.StatusPage
	calls int
	err   error
}

func (r *scriptedReader) GetThumbnails(ctx context.Context, titleID uuid.UUID, window *store.Window) (*service.StatusPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	idx := r.calls - 1
	if idx >= len(r.pages) {
		idx = len(r.pages) - 1
	}
	return r.pages[idx], nil
}

func (r *scriptedReader) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func page(statuses ...domain.ThumbnailStatus) *service.StatusPage {
	p := &service.StatusPage{
		Items:        make([]*service.ThumbnailStatus, 0, len(statuses)),
		ReferenceMap: map[uuid.UUID]string{},
	}
	for _, status := range statuses {
		p.Items = append(p.Items, &service.ThumbnailStatus{ID: uuid.New(), Status: status})
	}
	return p
}

func newPoller(t *testing.T, cfg poller.Config, reader poller.StatusReader) *poller.Poller {
	t.Helper()
	p, err := poller.New(cfg, reader, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return p
}

func TestWaitForTitle_FinishesWhenAllTerminal(t *testing.T) {
	t.Parallel()

	reader := &scriptedReader{pages: []*service.StatusPage{
		page(domain.ThumbnailStatusProcessing, domain.ThumbnailStatusPending),
		page(domain.ThumbnailStatusCompleted, domain.ThumbnailStatusProcessing),
		page(domain.ThumbnailStatusCompleted, domain.ThumbnailStatusFailed),
	}}
	p := newPoller(t, poller.Config{Interval: time.Millisecond, MaxAttempts: 10}, reader)

	got, err := p.WaitForTitle(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	// A failed sibling counts as settled; it never blocks completion.
	assert.Equal(t, 3, reader.Calls())
}

func TestWaitForTitle_EmptyPageIsSettled(t *testing.T) {
	t.Parallel()

	reader := &scriptedReader{pages: []*service.StatusPage{page()}}
	p := newPoller(t, poller.Config{Interval: time.Millisecond, MaxAttempts: 10}, reader)

	got, err := p.WaitForTitle(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Equal(t, 1, reader.Calls())
}

func TestWaitForTitle_BudgetExhausted(t *testing.T) {
	t.Parallel()

	reader := &scriptedReader{pages: []*service.StatusPage{
		page(domain.ThumbnailStatusProcessing),
	}}
	p := newPoller(t, poller.Config{Interval: time.Millisecond, MaxAttempts: 4}, reader)

	got, err := p.WaitForTitle(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, poller.ErrStillProcessing)
	// The last snapshot still comes back so the caller can show progress.
	require.NotNil(t, got)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 4, reader.Calls())
}

func TestWaitForTitle_ReaderErrorStopsPolling(t *testing.T) {
	t.Parallel()

	reader := &scriptedReader{err: errors.New("status surface down")}
	p := newPoller(t, poller.Config{Interval: time.Millisecond, MaxAttempts: 10}, reader)

	_, err := p.WaitForTitle(context.Background(), uuid.New(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, reader.Calls())
}

func TestWaitForTitle_ContextCancellation(t *testing.T) {
	t.Parallel()

	reader := &scriptedReader{pages: []*service.StatusPage{
		page(domain.ThumbnailStatusProcessing),
	}}
	p := newPoller(t, poller.Config{Interval: time.Hour, MaxAttempts: 10}, reader)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	got, err := p.WaitForTitle(ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, got)
}

func TestWaitForTitle_OnePollPerTitle(t *testing.T) {
	t.Parallel()

	titleID := uuid.New()
	reader := &scriptedReader{pages: []*service.StatusPage{
		page(domain.ThumbnailStatusProcessing),
	}}
	p := newPoller(t, poller.Config{Interval: time.Hour, MaxAttempts: 10}, reader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		close(started)
		_, _ = p.WaitForTitle(ctx, titleID, nil)
		close(finished)
	}()

	<-started
	require.Eventually(t, func() bool {
		return reader.Calls() == 1
	}, 2*time.Second, time.Millisecond)

	// The same title is rejected while the first wait is in flight.
	_, err := p.WaitForTitle(ctx, titleID, nil)
	assert.ErrorIs(t, err, poller.ErrAlreadyPolling)

	cancel()
	<-finished

	// After the first wait ends the title is pollable again.
	doneCtx, doneCancel := context.WithCancel(context.Background())
	doneCancel()
	_, err = p.WaitForTitle(doneCtx, titleID, nil)
	assert.NotErrorIs(t, err, poller.ErrAlreadyPolling)
}
