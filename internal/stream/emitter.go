// Package stream carries per-request progress envelopes from graph nodes to
// the SSE boundary. Each request gets its own queue; nothing is shared
// across requests.
package stream

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Envelope types with boundary-level meaning. Intermediate envelopes use
// component-specific types ("tagger", "web_search", ...).
const (
	TypeFinalResult = "final_result"
	TypeError       = "error"
	TypeKeepalive   = "keepalive"
)

// Envelope is one streamed chunk.
type Envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Emitter is a per-request envelope queue. A nil *Emitter is valid and
// drops everything, so graph nodes emit unconditionally.
type Emitter struct {
	ch   chan Envelope
	once sync.Once

	// Guards closed. The detached voice branch can outlive the terminal
	// envelope, so Emit must stay safe after the queue closes.
	mu     sync.Mutex
	closed bool
}

// NewEmitter creates a queue with the given buffer size.
func NewEmitter(buffer int) *Emitter {
	if buffer <= 0 {
		buffer = 64
	}
	return &Emitter{ch: make(chan Envelope, buffer)}
}

// Emit enqueues an intermediate envelope. Full queues drop the envelope
// rather than blocking a graph node.
func (e *Emitter) Emit(envType string, data any) {
	if e == nil {
		return
	}
	env := Envelope{
		Type:      envType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.ch <- env:
	default:
		log.Warn().Str("type", envType).Msg("stream: dropping envelope, queue full")
	}
}

// Final enqueues the terminal final_result envelope and closes the queue.
func (e *Emitter) Final(data any) {
	if e == nil {
		return
	}
	e.terminal(Envelope{
		Type:      TypeFinalResult,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Error enqueues the terminal error envelope and closes the queue.
func (e *Emitter) Error(err error) {
	if e == nil {
		return
	}
	e.terminal(Envelope{
		Type:      TypeError,
		Data:      map[string]string{"error": err.Error()},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// terminal sends the closing envelope exactly once. The send blocks so the
// terminal envelope is never dropped.
func (e *Emitter) terminal(env Envelope) {
	e.once.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		e.ch <- env
		close(e.ch)
	})
}

// C exposes the queue for the boundary to drain. The channel is closed
// after the terminal envelope.
func (e *Emitter) C() <-chan Envelope {
	if e == nil {
		return nil
	}
	return e.ch
}
