package sse

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hszk-dev/gostream/internal/domain/repository"
	"github.com/hszk-dev/gostream/internal/infrastructure/metrics"
)

// videoStatusUpdate is the wire payload delivered as the "videoStatusUpdate"
// SSE event.
type videoStatusUpdate struct {
	PublicID string `json:"publicId"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

// EventSource is the subset of events.Bus the dispatcher consumes from.
type EventSource interface {
	Subscribe() <-chan repository.VideoStatusChanged
}

// Dispatcher converts committed VideoStatusChanged events into SSE frames
// and fans them out to the owner's live emitters. It runs on its own
// goroutine so that a slow client's socket never back-pressures the
// transaction that produced the event.
type Dispatcher struct {
	source   EventSource
	registry *Registry
}

// NewDispatcher creates a Dispatcher over source, delivering to registry.
func NewDispatcher(source EventSource, registry *Registry) *Dispatcher {
	return &Dispatcher{source: source, registry: registry}
}

// Run consumes events until ctx is cancelled or the source channel closes.
func (d *Dispatcher) Run(ctx context.Context) {
	events := d.source.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			d.dispatch(event)
		}
	}
}

func (d *Dispatcher) dispatch(event repository.VideoStatusChanged) {
	payload, err := json.Marshal(videoStatusUpdate{
		PublicID: event.PublicID.String(),
		Status:   string(event.Status),
		Message:  event.Message,
	})
	if err != nil {
		slog.Error("sse: marshal status update failed", "public_id", event.PublicID, "error", err)
		return
	}

	before := d.registry.Count(event.OwnerUsername)
	d.registry.SendEventToUser(event.OwnerUsername, Event{Name: "videoStatusUpdate", Data: payload})

	outcome := metrics.SSEOutcomeDelivered
	if before == 0 {
		outcome = metrics.SSEOutcomeDropped
	}
	metrics.SSEEventsTotal.WithLabelValues(outcome).Inc()
}
