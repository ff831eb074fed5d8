package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer is the channel capacity handed to each subscriber.
// Publish never blocks the dispatcher; a subscriber that falls this far
// behind starts losing events and must re-read current state from the store.
const subscriberBuffer = 8

// Notifier fans out thumbnail events to per-thumbnail subscribers.
// It is safe for concurrent use.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID][]chan ThumbnailEvent
	logger      *slog.Logger
}

// NewNotifier creates a new Notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		subscribers: make(map[uuid.UUID][]chan ThumbnailEvent),
		logger:      logger.With("component", "event_notifier"),
	}
}

// Subscribe registers interest in one thumbnail's events and returns the
// channel events arrive on plus a cancel function. The cancel function
// closes the channel and must be called exactly once.
func (n *Notifier) Subscribe(thumbnailID uuid.UUID) (<-chan ThumbnailEvent, func()) {
	ch := make(chan ThumbnailEvent, subscriberBuffer)

	n.mu.Lock()
	n.subscribers[thumbnailID] = append(n.subscribers[thumbnailID], ch)
	count := len(n.subscribers[thumbnailID])
	n.mu.Unlock()

	n.logger.Debug("subscriber registered",
		"thumbnail_id", thumbnailID,
		"subscriber_count", count)

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		subs := n.subscribers[thumbnailID]
		for i, c := range subs {
			if c == ch {
				n.subscribers[thumbnailID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(n.subscribers[thumbnailID]) == 0 {
			delete(n.subscribers, thumbnailID)
		}
		close(ch)
	}

	return ch, cancel
}

// Publish delivers the event to every subscriber of its thumbnail.
// Delivery is best-effort: a subscriber with a full buffer is skipped so a
// slow observer can never stall the dispatcher's task loop.
func (n *Notifier) Publish(event ThumbnailEvent) {
	// Sends happen under the read lock: cancel needs the write lock to close
	// a channel, so no send can race a close. Buffered channels plus the
	// non-blocking send keep the critical section short.
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ch := range n.subscribers[event.ThumbnailID] {
		select {
		case ch <- event:
		default:
			n.logger.Warn("dropping event for slow subscriber",
				"thumbnail_id", event.ThumbnailID,
				"status", event.Status)
		}
	}
}
