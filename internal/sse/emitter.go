package sse

import (
	"sync"
	"time"
)

// terminal states an Emitter can reach; once set, further sends are no-ops.
type terminalState int

const (
	terminalNone terminalState = iota
	terminalCompleted
	terminalTimedOut
	terminalErrored
)

// removeFunc is called exactly once, on the first terminal transition, with
// the emitter's owning username and identity so the registry can locate and
// drop the entry without the emitter holding a reference back to the registry.
type removeFunc func(username string, id uint64)

// Emitter is a single live SSE connection's write sink. The HTTP handler
// owning the connection ranges over Events() and writes frames to the
// response, calling Error/Timeout/Complete on the corresponding condition.
type Emitter struct {
	id       uint64
	username string
	events   chan Event
	timeout  time.Duration
	timer    *time.Timer
	remove   removeFunc

	mu    sync.Mutex
	state terminalState
}

func newEmitter(id uint64, username string, timeout time.Duration, remove removeFunc) *Emitter {
	e := &Emitter{
		id:       id,
		username: username,
		events:   make(chan Event, 32),
		timeout:  timeout,
		remove:   remove,
	}
	if timeout > 0 {
		e.timer = time.AfterFunc(timeout, e.Timeout)
	}
	return e
}

// Events returns the channel the owning HTTP handler reads frames from.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// send enqueues event for delivery. A full buffer (a stalled client) counts
// as an I/O-class failure and evicts the handle rather than blocking the
// registry's broadcast loop.
func (e *Emitter) send(event Event) {
	e.mu.Lock()
	if e.state != terminalNone {
		e.mu.Unlock()
		return
	}
	select {
	case e.events <- event:
		e.mu.Unlock()
		e.resetTimer()
	default:
		e.mu.Unlock()
		e.Error()
	}
}

// heartbeat sends a comment-only keep-alive frame.
func (e *Emitter) heartbeat() {
	e.send(Event{Name: "", Data: []byte(": keep-alive\n\n")})
}

func (e *Emitter) resetTimer() {
	if e.timer != nil && e.timeout > 0 {
		e.timer.Reset(e.timeout)
	}
}

// Complete marks the emitter as having finished normally (client closed the
// stream, context cancelled). Idempotent.
func (e *Emitter) Complete() {
	e.terminate(terminalCompleted)
}

// Timeout marks the emitter as having exceeded its soft timeout. Idempotent.
func (e *Emitter) Timeout() {
	e.terminate(terminalTimedOut)
}

// Error marks the emitter as having failed an I/O-class send. Idempotent.
func (e *Emitter) Error() {
	e.terminate(terminalErrored)
}

func (e *Emitter) terminate(state terminalState) {
	e.mu.Lock()
	if e.state != terminalNone {
		e.mu.Unlock()
		return
	}
	e.state = state
	close(e.events)
	e.mu.Unlock()

	if e.timer != nil {
		e.timer.Stop()
	}
	e.remove(e.username, e.id)
}

func (e *Emitter) isTerminal() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != terminalNone
}
