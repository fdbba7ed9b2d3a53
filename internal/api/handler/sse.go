package handler

import (
	"fmt"
	"net/http"
	"time"

	apimw "github.com/hszk-dev/gostream/internal/api/middleware"
	"github.com/hszk-dev/gostream/internal/infrastructure/metrics"
	"github.com/hszk-dev/gostream/internal/sse"
)

// SSEHandler handles GET /api/sse/subscribe, registering a live emitter for
// the authenticated caller and streaming frames until the client disconnects,
// the emitter's soft timeout fires, or the server shuts down.
type SSEHandler struct {
	registry *sse.Registry
	timeout  time.Duration
}

// NewSSEHandler creates an SSEHandler. timeout is the emitter's soft
// timeout (config.SSEConfig.EmitterTimeout).
func NewSSEHandler(registry *sse.Registry, timeout time.Duration) *SSEHandler {
	return &SSEHandler{registry: registry, timeout: timeout}
}

// Subscribe handles GET /api/sse/subscribe.
func (h *SSEHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	principal, ok := apimw.PrincipalFromContext(r.Context())
	if !ok {
		WriteProblem(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteProblem(w, r, http.StatusInternalServerError, "internal error", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emitter := h.registry.AddEmitter(principal.Username, h.timeout)
	metrics.SSEActiveEmitters.Inc()
	defer metrics.SSEActiveEmitters.Dec()
	defer emitter.Complete()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-emitter.Events():
			if !ok {
				return
			}
			if err := writeFrame(w, event); err != nil {
				emitter.Error()
				return
			}
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, event sse.Event) error {
	if event.Name == "" {
		_, err := w.Write(event.Data)
		return err
	}
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, event.Data)
	return err
}
