// Package registry owns the handle tables that multiplex runtime sessions
// and active streams behind 1-byte handles.
//
// Handle 0 never denotes a live resource. Allocation uses a monotonically
// increasing 8-bit counter per resource class, wrapping past 255 back to 1:
// the 256th live allocation without an intervening destruction therefore
// reuses handle 1 even if that resource is still alive, silently aliasing two
// logical resources onto one slot. That caveat is inherited behavior and is
// deliberately preserved rather than fixed.
//
// All table access is serialized by a single mutex per registry; no
// operation blocks while holding it. Runtime session construction and
// teardown happen outside the lock, in the caller.
package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aibridge/aibridge-go/internal/toolbridge"
	"github.com/aibridge/aibridge-go/runtime"
)

// Session is one live session slot: the exclusively-owned runtime session
// plus the bridge-side state attached to it.
type Session struct {
	Handle  uint8
	Runtime runtime.Session

	// Tools is the callback set the session's bound runtime tools resolve
	// against. It carries its own lock; see package toolbridge.
	Tools *toolbridge.Set

	// DefaultSchemaJSON is the session-level fallback schema for structured
	// generation when a request supplies none.
	DefaultSchemaJSON string

	// Instructions is retained for introspection only; the runtime session
	// already carries it.
	Instructions string
}

// Stream is one live stream slot: the cancellation hook for its task and a
// channel closed when the task finishes.
type Stream struct {
	Handle uint8
	Cancel context.CancelFunc
	Done   chan struct{}
}

// Registry is the thread-safe handle table for sessions and streams.
type Registry struct {
	log *slog.Logger

	mu          sync.Mutex
	sessions    map[uint8]*Session
	streams     map[uint8]*Stream
	nextSession uint8
	nextStream  uint8
}

// New returns an empty registry.
func New(log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		sessions: make(map[uint8]*Session),
		streams:  make(map[uint8]*Stream),
	}
}

// AddSession inserts s and returns its newly allocated handle.
func (r *Registry) AddSession(s *Session) uint8 {
	r.mu.Lock()
	r.nextSession++
	if r.nextSession == 0 {
		r.nextSession++
	}
	h := r.nextSession
	s.Handle = h
	r.sessions[h] = s
	n := len(r.sessions)
	r.mu.Unlock()

	r.log.Debug("registry.add_session", slog.Int("handle", int(h)), slog.Int("live", n))
	return h
}

// Session returns the live session for h, if any.
func (r *Registry) Session(h uint8) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[h]
	r.mu.Unlock()
	return s, ok
}

// RegisterTool installs fn as the callback for (h, name). It reports false
// on an unknown handle.
func (r *Registry) RegisterTool(h uint8, name string, fn toolbridge.Func) bool {
	r.mu.Lock()
	s, ok := r.sessions[h]
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.Tools.Register(name, fn)
	r.log.Debug("registry.register_tool", slog.Int("handle", int(h)), slog.String("tool", name))
	return true
}

// RemoveSession removes and returns the session for h. The caller closes
// the runtime session outside the registry lock. Unknown handles are a
// silent no-op.
func (r *Registry) RemoveSession(h uint8) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[h]
	delete(r.sessions, h)
	r.mu.Unlock()
	if ok {
		r.log.Debug("registry.remove_session", slog.Int("handle", int(h)))
	}
	return s, ok
}

// AddStream inserts st and returns its newly allocated handle.
func (r *Registry) AddStream(st *Stream) uint8 {
	r.mu.Lock()
	r.nextStream++
	if r.nextStream == 0 {
		r.nextStream++
	}
	h := r.nextStream
	st.Handle = h
	r.streams[h] = st
	r.mu.Unlock()

	r.log.Debug("registry.add_stream", slog.Int("handle", int(h)))
	return h
}

// CancelStream requests cooperative cancellation of the stream's task and
// removes the handle. It reports false for unknown handles, including a
// second cancellation of the same handle.
func (r *Registry) CancelStream(h uint8) bool {
	r.mu.Lock()
	st, ok := r.streams[h]
	delete(r.streams, h)
	r.mu.Unlock()
	if !ok {
		return false
	}
	st.Cancel()
	r.log.Debug("registry.cancel_stream", slog.Int("handle", int(h)))
	return true
}

// RemoveStream drops the handle without cancelling; used when a stream's
// task finishes on its own. Unknown handles are a silent no-op.
func (r *Registry) RemoveStream(h uint8) {
	r.mu.Lock()
	delete(r.streams, h)
	r.mu.Unlock()
}

// Drain empties both tables, returning the removed resources so the caller
// can close sessions and cancel streams outside the lock.
func (r *Registry) Drain() ([]*Session, []*Stream) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	streams := make([]*Stream, 0, len(r.streams))
	for _, st := range r.streams {
		streams = append(streams, st)
	}
	r.sessions = make(map[uint8]*Session)
	r.streams = make(map[uint8]*Stream)
	r.mu.Unlock()
	return sessions, streams
}
