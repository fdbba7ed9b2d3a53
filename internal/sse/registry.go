// Package sse implements the per-user emitter registry: a thread-safe
// mapping from username to an ordered, copy-on-write list of live emitter
// handles, with heartbeat and eviction-on-terminal-state support.
package sse

import (
	"sync"
	"time"
)

// Event is a single server-sent-event frame.
type Event struct {
	Name string
	Data []byte
}

// Registry is the concurrent map of username -> live emitters.
// The cyclic reference between an Emitter and the Registry that owns it is
// broken by having the Emitter's terminal callbacks reference the Registry
// and the emitter's identity (username + id), not the other way around.
type Registry struct {
	mu       sync.Mutex
	emitters map[string][]*Emitter
	nextID   uint64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{emitters: make(map[string][]*Emitter)}
}

// AddEmitter installs a new emitter for username with the given soft
// timeout, wires its terminal callbacks to remove itself from the registry,
// and returns the handle for the caller (the SSE handler) to write to.
func (r *Registry) AddEmitter(username string, timeout time.Duration) *Emitter {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.mu.Unlock()

	e := newEmitter(id, username, timeout, r.removeEmitter)

	r.mu.Lock()
	r.emitters[username] = append(copySlice(r.emitters[username]), e)
	r.mu.Unlock()

	return e
}

// removeEmitter deletes the emitter with the given id from username's list.
// Called by the emitter's own terminal callbacks (onCompletion/onTimeout/onError).
func (r *Registry) removeEmitter(username string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.emitters[username]
	if len(list) == 0 {
		return
	}

	filtered := make([]*Emitter, 0, len(list))
	for _, e := range list {
		if e.id != id {
			filtered = append(filtered, e)
		}
	}

	if len(filtered) == 0 {
		delete(r.emitters, username)
		return
	}
	r.emitters[username] = filtered
}

// snapshot returns a copy of username's current emitter list, safe to
// iterate over without holding the lock.
func (r *Registry) snapshot(username string) []*Emitter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copySlice(r.emitters[username])
}

// SendEventToUser delivers event to every live handle for username. A
// send failure on a specific handle evicts only that handle and does not
// interrupt delivery to the rest. Absence of handles is a silent no-op.
func (r *Registry) SendEventToUser(username string, event Event) {
	for _, e := range r.snapshot(username) {
		e.send(event)
	}
}

// SendHeartbeat broadcasts a keep-alive comment to every live handle across
// all users. Tolerates zero emitters.
func (r *Registry) SendHeartbeat() {
	r.mu.Lock()
	all := make([]*Emitter, 0)
	for _, list := range r.emitters {
		all = append(all, list...)
	}
	r.mu.Unlock()

	for _, e := range all {
		e.heartbeat()
	}
}

// Shutdown marks every handle completed and clears the registry.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	all := make([]*Emitter, 0)
	for _, list := range r.emitters {
		all = append(all, list...)
	}
	r.emitters = make(map[string][]*Emitter)
	r.mu.Unlock()

	for _, e := range all {
		e.Complete()
	}
}

// Count returns the number of live emitters for username, for metrics/tests.
func (r *Registry) Count(username string) int {
	return len(r.snapshot(username))
}

func copySlice(in []*Emitter) []*Emitter {
	out := make([]*Emitter, len(in))
	copy(out, in)
	return out
}
