package dispatcher_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framefoundry/thumbgen-api/internal/dispatcher"
	"github.com/framefoundry/thumbgen-api/internal/domain"
	"github.com/framefoundry/thumbgen-api/internal/events"
	"github.com/framefoundry/thumbgen-api/internal/generation"
	"github.com/framefoundry/thumbgen-api/internal/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedTask creates a pending thumbnail and its idea in the store and
// returns both.
func seedTask(t *testing.T, thumbs *mocks.MockThumbnailStore) (*domain.Idea, *domain.Thumbnail) {
	t.Helper()

	titleID := uuid.New()
	idea, err := domain.NewIdea(titleID, "a bold summary", "a detailed render prompt")
	require.NoError(t, err)

	thumb, err := domain.NewThumbnail(titleID, idea.ID)
	require.NoError(t, err)
	thumbs.Seed(thumb)

	return idea, thumb
}

func awaitResult(t *testing.T, ch <-chan dispatcher.Result) dispatcher.Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for task result")
		return dispatcher.Result{}
	}
}

func TestDispatcher_SuccessMarksCompleted(t *testing.T) {
	t.Parallel()

	thumbs := mocks.NewMockThumbnailStore()
	images := mocks.NewMockImageGenerator()
	d := dispatcher.New(dispatcher.Config{MaxParallel: 2, MaxRetries: 2}, thumbs, images, nil, testLogger())

	idea, thumb := seedTask(t, thumbs)

	done, err := d.Enqueue(idea, thumb.ID, nil, false)
	require.NoError(t, err)

	res := awaitResult(t, done)
	require.NoError(t, res.Err)
	assert.Equal(t, thumb.ID, res.ThumbnailID)
	assert.Equal(t, 1, res.Attempts)
	assert.NotEmpty(t, res.ImageURL)

	stored := thumbs.Get(thumb.ID)
	require.NotNil(t, stored)
	assert.Equal(t, domain.ThumbnailStatusCompleted, stored.Status)
	assert.Equal(t, res.ImageURL, stored.ImageURL)
	assert.Empty(t, stored.ErrorMessage)
}

func TestDispatcher_DuplicateEnqueueSkipsInFlightThumbnail(t *testing.T) {
	t.Parallel()

	thumbs := mocks.NewMockThumbnailStore()
	images := mocks.NewMockImageGenerator()
	images.Block = make(chan struct{})
	d := dispatcher.New(
		dispatcher.Config{MaxParallel: 2, MaxRetries: 2, SettleDelay: time.Millisecond},
		thumbs, images, nil, testLogger(),
	)

	idea, thumb := seedTask(t, thumbs)

	first, err := d.Enqueue(idea, thumb.ID, nil, false)
	require.NoError(t, err)

	// Wait until the first task has claimed the row and reached the
	// provider call before enqueueing the duplicate.
	require.Eventually(t, func() bool {
		return images.Calls() == 1
	}, 2*time.Second, 5*time.Millisecond)

	second, err := d.Enqueue(idea, thumb.ID, nil, true)
	require.NoError(t, err)

	res := awaitResult(t, second)
	require.ErrorIs(t, res.Err, dispatcher.ErrAlreadyProcessing)
	assert.Equal(t, thumb.ID, res.ThumbnailID)

	// The duplicate never reached the provider and never touched the row.
	assert.Equal(t, 1, images.Calls())
	stored := thumbs.Get(thumb.ID)
	require.NotNil(t, stored)
	assert.Equal(t, domain.ThumbnailStatusProcessing, stored.Status)

	close(images.Block)
	res = awaitResult(t, first)
	require.NoError(t, res.Err)
	assert.Equal(t, domain.ThumbnailStatusCompleted, thumbs.Get(thumb.ID).Status)
}

func TestDispatcher_ConcurrencyBound(t *testing.T) {
	t.Parallel()

	const maxParallel = 3
	const total = 10

	thumbs := mocks.NewMockThumbnailStore()
	images := mocks.NewMockImageGenerator()
	images.Block = make(chan struct{})
	d := dispatcher.New(
		dispatcher.Config{MaxParallel: maxParallel, MaxRetries: 0, SettleDelay: time.Millisecond},
		thumbs, images, nil, testLogger(),
	)

	channels := make([]<-chan dispatcher.Result, 0, total)
	for i := 0; i < total; i++ {
		idea, thumb := seedTask(t, thumbs)
		done, err := d.Enqueue(idea, thumb.ID, nil, false)
		require.NoError(t, err)
		channels = append(channels, done)
	}

	// The first maxParallel tasks start immediately; the rest must wait.
	require.Eventually(t, func() bool {
		return images.Calls() == maxParallel
	}, 2*time.Second, 5*time.Millisecond)

	close(images.Block)
	for _, ch := range channels {
		res := awaitResult(t, ch)
		require.NoError(t, res.Err)
	}

	assert.Equal(t, total, images.Calls())
	assert.LessOrEqual(t, images.MaxInFlight(), maxParallel)
	assert.Equal(t, total, thumbs.StatusCounts()[domain.ThumbnailStatusCompleted])
}

func TestDispatcher_FIFOStartOrder(t *testing.T) {
	t.Parallel()

	thumbs := mocks.NewMockThumbnailStore()
	images := mocks.NewMockImageGenerator()
	d := dispatcher.New(
		dispatcher.Config{MaxParallel: 1, MaxRetries: 0},
		thumbs, images, nil, testLogger(),
	)

	prompts := []string{"first prompt", "second prompt", "third prompt"}
	channels := make([]<-chan dispatcher.Result, 0, len(prompts))
	for _, p := range prompts {
		idea, err := domain.NewIdea(uuid.New(), "summary", p)
		require.NoError(t, err)
		thumb, err := domain.NewThumbnail(idea.TitleID, idea.ID)
		require.NoError(t, err)
		thumbs.Seed(thumb)

		done, enqErr := d.Enqueue(idea, thumb.ID, nil, false)
		require.NoError(t, enqErr)
		channels = append(channels, done)
	}

	for _, ch := range channels {
		res := awaitResult(t, ch)
		require.NoError(t, res.Err)
	}

	assert.Equal(t, prompts, images.Prompts())
}

func TestDispatcher_RetryThenSuccess(t *testing.T) {
	t.Parallel()

	thumbs := mocks.NewMockThumbnailStore()
	images := mocks.NewMockImageGenerator()
	var failures atomic.Int64
	images.GenerateImageFn = func(ctx context.Context, prompt string, refs []*domain.ReferenceImage) (*generation.ImageResult, error) {
		if failures.Add(1) == 1 {
			return nil, errors.New("provider hiccup")
		}
		return &generation.ImageResult{ImageURL: "data:image/png;base64,b2s="}, nil
	}
	d := dispatcher.New(
		dispatcher.Config{MaxParallel: 1, MaxRetries: 2, SettleDelay: time.Millisecond},
		thumbs, images, nil, testLogger(),
	)

	idea, thumb := seedTask(t, thumbs)
	done, err := d.Enqueue(idea, thumb.ID, nil, false)
	require.NoError(t, err)

	res := awaitResult(t, done)
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Attempts)

	stored := thumbs.Get(thumb.ID)
	require.NotNil(t, stored)
	assert.Equal(t, domain.ThumbnailStatusCompleted, stored.Status)

	prompts := images.Prompts()
	require.Len(t, prompts, 2)
	assert.Equal(t, idea.FullPrompt, prompts[0])
	assert.Contains(t, prompts[1], idea.FullPrompt)
	assert.Contains(t, prompts[1], "retry #1")

	// Processing is written once on the first attempt only, then the
	// single terminal write.
	assert.Equal(t,
		[]domain.ThumbnailStatus{domain.ThumbnailStatusProcessing, domain.ThumbnailStatusCompleted},
		thumbs.UpdateCalls)
}

func TestDispatcher_TransientFailureStaysProcessing(t *testing.T) {
	t.Parallel()

	thumbs := mocks.NewMockThumbnailStore()
	images := mocks.NewMockImageGenerator()
	release := make(chan struct{})
	var calls atomic.Int64
	images.GenerateImageFn = func(ctx context.Context, prompt string, refs []*domain.ReferenceImage) (*generation.ImageResult, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("transient blip")
		}
		<-release
		return &generation.ImageResult{ImageURL: "data:image/png;base64,b2s="}, nil
	}
	d := dispatcher.New(
		dispatcher.Config{MaxParallel: 1, MaxRetries: 2, SettleDelay: time.Millisecond},
		thumbs, images, nil, testLogger(),
	)

	idea, thumb := seedTask(t, thumbs)
	done, err := d.Enqueue(idea, thumb.ID, nil, false)
	require.NoError(t, err)

	// Wait until the retry attempt is in flight: the first attempt has
	// already failed, yet the row must still read as processing.
	require.Eventually(t, func() bool {
		return calls.Load() == 2
	}, 2*time.Second, 5*time.Millisecond)

	stored := thumbs.Get(thumb.ID)
	require.NotNil(t, stored)
	assert.Equal(t, domain.ThumbnailStatusProcessing, stored.Status)
	assert.Empty(t, stored.ErrorMessage)

	close(release)
	res := awaitResult(t, done)
	require.NoError(t, res.Err)
}

func TestDispatcher_ExhaustedRetriesMarksFailed(t *testing.T) {
	t.Parallel()

	thumbs := mocks.NewMockThumbnailStore()
	images := mocks.NewMockImageGenerator()
	images.GenerateImageFn = func(ctx context.Context, prompt string, refs []*domain.ReferenceImage) (*generation.ImageResult, error) {
		return nil, errors.New("model refused to draw")
	}
	d := dispatcher.New(
		dispatcher.Config{MaxParallel: 1, MaxRetries: 2, SettleDelay: time.Millisecond},
		thumbs, images, nil, testLogger(),
	)

	idea, thumb := seedTask(t, thumbs)
	done, err := d.Enqueue(idea, thumb.ID, nil, false)
	require.NoError(t, err)

	res := awaitResult(t, done)
	require.Error(t, res.Err)
	assert.Equal(t, 3, res.Attempts)
	assert.Empty(t, res.ImageURL)
	assert.Equal(t, 3, images.Calls())

	stored := thumbs.Get(thumb.ID)
	require.NotNil(t, stored)
	assert.Equal(t, domain.ThumbnailStatusFailed, stored.Status)
	assert.Empty(t, stored.ImageURL)
	assert.Equal(t, "failed after 3 attempts: model refused to draw", stored.ErrorMessage)

	// One processing write, one terminal write, nothing in between.
	assert.Equal(t,
		[]domain.ThumbnailStatus{domain.ThumbnailStatusProcessing, domain.ThumbnailStatusFailed},
		thumbs.UpdateCalls)
}

func TestDispatcher_FailureMessageTruncated(t *testing.T) {
	t.Parallel()

	thumbs := mocks.NewMockThumbnailStore()
	images := mocks.NewMockImageGenerator()
	images.GenerateImageFn = func(ctx context.Context, prompt string, refs []*domain.ReferenceImage) (*generation.ImageResult, error) {
		return nil, errors.New(strings.Repeat("x", 500))
	}
	d := dispatcher.New(
		dispatcher.Config{MaxParallel: 1, MaxRetries: 0},
		thumbs, images, nil, testLogger(),
	)

	idea, thumb := seedTask(t, thumbs)
	done, err := d.Enqueue(idea, thumb.ID, nil, false)
	require.NoError(t, err)

	res := awaitResult(t, done)
	require.Error(t, res.Err)

	stored := thumbs.Get(thumb.ID)
	require.NotNil(t, stored)
	assert.Equal(t, domain.ThumbnailStatusFailed, stored.Status)
	assert.True(t, strings.HasPrefix(stored.ErrorMessage, "failed after 1 attempts: xxx"))
	assert.LessOrEqual(t, len(stored.ErrorMessage), domain.MaxErrorMessageLen)
}

func TestDispatcher_RetryJumpsQueue(t *testing.T) {
	t.Parallel()

	thumbs := mocks.NewMockThumbnailStore()
	images := mocks.NewMockImageGenerator()

	const flakyPrompt = "flaky prompt"
	var failedOnce atomic.Bool
	images.GenerateImageFn = func(ctx context.Context, prompt string, refs []*domain.ReferenceImage) (*generation.ImageResult, error) {
		if prompt == flakyPrompt && failedOnce.CompareAndSwap(false, true) {
			return nil, errors.New("first attempt drops")
		}
		return &generation.ImageResult{ImageURL: "data:image/png;base64,b2s="}, nil
	}
	d := dispatcher.New(
		dispatcher.Config{MaxParallel: 1, MaxRetries: 2, SettleDelay: time.Millisecond},
		thumbs, images, nil, testLogger(),
	)

	prompts := []string{flakyPrompt, "steady prompt", "patient prompt"}
	channels := make([]<-chan dispatcher.Result, 0, len(prompts))
	for _, p := range prompts {
		idea, err := domain.NewIdea(uuid.New(), "summary", p)
		require.NoError(t, err)
		thumb, err := domain.NewThumbnail(idea.TitleID, idea.ID)
		require.NoError(t, err)
		thumbs.Seed(thumb)

		done, enqErr := d.Enqueue(idea, thumb.ID, nil, false)
		require.NoError(t, enqErr)
		channels = append(channels, done)
	}

	for _, ch := range channels {
		res := awaitResult(t, ch)
		require.NoError(t, res.Err)
	}

	// The retry runs before the tasks that were already waiting.
	seen := images.Prompts()
	require.Len(t, seen, 4)
	assert.Equal(t, flakyPrompt, seen[0])
	assert.Contains(t, seen[1], flakyPrompt)
	assert.Contains(t, seen[1], "retry #1")
	assert.Equal(t, "steady prompt", seen[2])
	assert.Equal(t, "patient prompt", seen[3])
}

func TestDispatcher_SelectsFirstThreeReferences(t *testing.T) {
	t.Parallel()

	thumbs := mocks.NewMockThumbnailStore()
	images := mocks.NewMockImageGenerator()

	var gotRefs []*domain.ReferenceImage
	var mu sync.Mutex
	images.GenerateImageFn = func(ctx context.Context, prompt string, refs []*domain.ReferenceImage) (*generation.ImageResult, error) {
		mu.Lock()
		gotRefs = refs
		mu.Unlock()
		return &generation.ImageResult{ImageURL: "data:image/png;base64,b2s="}, nil
	}
	d := dispatcher.New(dispatcher.Config{MaxParallel: 1, MaxRetries: 0}, thumbs, images, nil, testLogger())

	idea, thumb := seedTask(t, thumbs)

	refs := make([]*domain.ReferenceImage, 0, 5)
	for i := 0; i < 5; i++ {
		ref, err := domain.NewReferenceImage(idea.TitleID, false, "data:image/png;base64,cmVm")
		require.NoError(t, err)
		refs = append(refs, ref)
	}

	done, err := d.Enqueue(idea, thumb.ID, refs, false)
	require.NoError(t, err)
	res := awaitResult(t, done)
	require.NoError(t, res.Err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, gotRefs, 3)
	assert.Equal(t, refs[0].ID, gotRefs[0].ID)
	assert.Equal(t, refs[1].ID, gotRefs[1].ID)
	assert.Equal(t, refs[2].ID, gotRefs[2].ID)

	stored := thumbs.Get(thumb.ID)
	require.NotNil(t, stored)
	assert.Equal(t, []uuid.UUID{refs[0].ID, refs[1].ID, refs[2].ID}, stored.UsedReferenceIDs)
}

func TestDispatcher_SettleDelayBetweenTasks(t *testing.T) {
	t.Parallel()

	const settle = 120 * time.Millisecond

	thumbs := mocks.NewMockThumbnailStore()
	images := mocks.NewMockImageGenerator()

	var mu sync.Mutex
	var starts []time.Time
	images.GenerateImageFn = func(ctx context.Context, prompt string, refs []*domain.ReferenceImage) (*generation.ImageResult, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return &generation.ImageResult{ImageURL: "data:image/png;base64,b2s="}, nil
	}
	d := dispatcher.New(
		dispatcher.Config{MaxParallel: 1, MaxRetries: 0, SettleDelay: settle},
		thumbs, images, nil, testLogger(),
	)

	var channels []<-chan dispatcher.Result
	for i := 0; i < 2; i++ {
		idea, thumb := seedTask(t, thumbs)
		done, err := d.Enqueue(idea, thumb.ID, nil, false)
		require.NoError(t, err)
		channels = append(channels, done)
	}
	for _, ch := range channels {
		res := awaitResult(t, ch)
		require.NoError(t, res.Err)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, starts, 2)
	gap := starts[1].Sub(starts[0])
	assert.GreaterOrEqual(t, gap, settle-20*time.Millisecond,
		"queued task should wait out the settle delay, started after %v", gap)
}

func TestDispatcher_ResultDeliveredWhenPersistFails(t *testing.T) {
	t.Parallel()

	thumbs := mocks.NewMockThumbnailStore()
	thumbs.UpdateFn = func(ctx context.Context, thumbnail *domain.Thumbnail) error {
		return errors.New("database unavailable")
	}
	images := mocks.NewMockImageGenerator()
	d := dispatcher.New(dispatcher.Config{MaxParallel: 1, MaxRetries: 0}, thumbs, images, nil, testLogger())

	idea, thumb := seedTask(t, thumbs)
	done, err := d.Enqueue(idea, thumb.ID, nil, false)
	require.NoError(t, err)

	res := awaitResult(t, done)
	require.NoError(t, res.Err)
	assert.NotEmpty(t, res.ImageURL)
}

func TestDispatcher_PublishesStatusEvents(t *testing.T) {
	t.Parallel()

	thumbs := mocks.NewMockThumbnailStore()
	images := mocks.NewMockImageGenerator()
	notifier := events.NewNotifier(testLogger())
	d := dispatcher.New(dispatcher.Config{MaxParallel: 1, MaxRetries: 0}, thumbs, images, notifier, testLogger())

	idea, thumb := seedTask(t, thumbs)
	sub, cancel := notifier.Subscribe(thumb.ID)
	defer cancel()

	done, err := d.Enqueue(idea, thumb.ID, nil, false)
	require.NoError(t, err)
	res := awaitResult(t, done)
	require.NoError(t, res.Err)

	first := <-sub
	assert.Equal(t, domain.ThumbnailStatusProcessing, first.Status)
	second := <-sub
	assert.Equal(t, domain.ThumbnailStatusCompleted, second.Status)
	assert.Equal(t, res.ImageURL, second.ImageURL)
}

func TestDispatcher_EnqueueValidation(t *testing.T) {
	t.Parallel()

	thumbs := mocks.NewMockThumbnailStore()
	d := dispatcher.New(dispatcher.DefaultConfig(), thumbs, mocks.NewMockImageGenerator(), nil, testLogger())

	_, err := d.Enqueue(nil, uuid.New(), nil, false)
	assert.ErrorIs(t, err, dispatcher.ErrNilIdea)

	idea, err := domain.NewIdea(uuid.New(), "summary", "prompt")
	require.NoError(t, err)
	_, err = d.Enqueue(idea, uuid.Nil, nil, false)
	assert.ErrorIs(t, err, dispatcher.ErrEmptyThumbnailID)
}

func TestDispatcher_ShutdownDrainsQueue(t *testing.T) {
	t.Parallel()

	thumbs := mocks.NewMockThumbnailStore()
	images := mocks.NewMockImageGenerator()
	images.Block = make(chan struct{})
	d := dispatcher.New(
		dispatcher.Config{MaxParallel: 1, MaxRetries: 0},
		thumbs, images, nil, testLogger(),
	)

	runningIdea, runningThumb := seedTask(t, thumbs)
	running, err := d.Enqueue(runningIdea, runningThumb.ID, nil, false)
	require.NoError(t, err)

	queuedIdea, queuedThumb := seedTask(t, thumbs)
	queued, err := d.Enqueue(queuedIdea, queuedThumb.ID, nil, false)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return images.Calls() == 1
	}, 2*time.Second, 5*time.Millisecond)

	shutdownDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownDone <- d.Shutdown(ctx)
	}()

	// The queued task never started and resolves immediately with ErrClosed.
	queuedRes := awaitResult(t, queued)
	assert.ErrorIs(t, queuedRes.Err, dispatcher.ErrClosed)

	// The in-flight task still finishes normally.
	close(images.Block)
	runningRes := awaitResult(t, running)
	require.NoError(t, runningRes.Err)

	require.NoError(t, <-shutdownDone)

	_, err = d.Enqueue(runningIdea, runningThumb.ID, nil, false)
	assert.ErrorIs(t, err, dispatcher.ErrClosed)
}
