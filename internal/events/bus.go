// Package events implements an in-process publish/subscribe bus carrying
// VideoStatusChanged notifications from the Status Updater's commit hook to
// the SSE listener, decoupling database commit latency from SSE send
// latency (the transaction's goroutine must never block on a slow socket).
package events

import (
	"log/slog"

	"github.com/hszk-dev/gostream/internal/domain/repository"
)

// Bus is an in-process, buffered channel of VideoStatusChanged events with a
// single consumer; it does not fan events out to multiple subscribers.
// Publish never blocks the caller; if the channel is momentarily full the
// event is dropped and logged, since SSE delivery is best-effort by design.
type Bus struct {
	events chan repository.VideoStatusChanged
}

// NewBus creates a Bus with the given channel capacity.
func NewBus(capacity int) *Bus {
	return &Bus{events: make(chan repository.VideoStatusChanged, capacity)}
}

// Publish hands event off to the bus. Called only after the originating
// transaction has committed.
func (b *Bus) Publish(event repository.VideoStatusChanged) {
	select {
	case b.events <- event:
	default:
		slog.Warn("event bus full, dropping status change event",
			"public_id", event.PublicID,
			"status", event.Status,
		)
	}
}

// Subscribe returns the channel listeners should range over. There is a
// single logical consumer (the SSE dispatcher); it runs on its own
// goroutine, never on the commit path.
func (b *Bus) Subscribe() <-chan repository.VideoStatusChanged {
	return b.events
}

// Compile-time verification that Bus implements repository.EventPublisher.
var _ repository.EventPublisher = (*Bus)(nil)
