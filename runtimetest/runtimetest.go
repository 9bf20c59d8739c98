// Package runtimetest provides a scripted, in-memory runtime.Runtime for
// tests and examples. Behavior is keyed by prompt text: each prompt can be
// given a canned response, a cumulative snapshot sequence for streaming, a
// structured result, a forced error, or a tool invocation to perform.
//
// The fake records what flows through it — created sessions, transcripts,
// the last schema and tool result seen — so tests can assert on the
// runtime-facing side of the bridge.
package runtimetest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/aibridge/aibridge-go/runtime"
)

// Script describes the behavior for one prompt.
type Script struct {
	// Response is the Respond result. When empty, the fake echoes the
	// prompt.
	Response string

	// Err fails the operation. For streams it is returned after Snapshots
	// are exhausted, so a stream can fail mid-flight.
	Err error

	// Snapshots is the cumulative snapshot sequence yielded by Stream.
	Snapshots []string

	// HoldOpen keeps the snapshot stream blocked after the last snapshot
	// until the context is cancelled; used to exercise cancellation.
	HoldOpen bool

	// Structured is the RespondStructured result; when nil the fake returns
	// a one-field structure echoing the prompt. StructuredText is the
	// accompanying raw text (falls back to Response).
	Structured     *runtime.Content
	StructuredText string

	// ToolName, when set, makes Respond invoke the named session tool with
	// ToolArgs before producing its response.
	ToolName string
	ToolArgs runtime.Content
}

// Runtime is the scripted fake.
type Runtime struct {
	mu       sync.Mutex
	code     runtime.Availability
	reason   string
	langs    []string
	scripts  map[string]*Script
	newErr   error
	sessions []*Session
}

var _ runtime.Runtime = (*Runtime)(nil)

// New returns an available runtime with a small language list and no
// scripts.
func New() *Runtime {
	return &Runtime{
		code:    runtime.Available,
		reason:  "model ready",
		langs:   []string{"en-US", "fr-FR", "de-DE", "ja-JP"},
		scripts: make(map[string]*Script),
	}
}

// SetAvailability overrides the availability code and reason.
func (r *Runtime) SetAvailability(code runtime.Availability, reason string) {
	r.mu.Lock()
	r.code, r.reason = code, reason
	r.mu.Unlock()
}

// SetLanguages overrides the supported language list.
func (r *Runtime) SetLanguages(langs ...string) {
	r.mu.Lock()
	r.langs = langs
	r.mu.Unlock()
}

// FailSessions makes NewSession return err; nil restores normal behavior.
func (r *Runtime) FailSessions(err error) {
	r.mu.Lock()
	r.newErr = err
	r.mu.Unlock()
}

// Script installs the behavior for a prompt.
func (r *Runtime) Script(prompt string, s *Script) {
	r.mu.Lock()
	r.scripts[prompt] = s
	r.mu.Unlock()
}

// Sessions returns every session created so far, in creation order.
func (r *Runtime) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

func (r *Runtime) Availability(ctx context.Context) (runtime.Availability, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.code, r.reason
}

func (r *Runtime) SupportedLanguages(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.langs))
	copy(out, r.langs)
	return out, nil
}

func (r *Runtime) NewSession(ctx context.Context, opts runtime.SessionOptions) (runtime.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.newErr != nil {
		return nil, r.newErr
	}
	s := &Session{
		rt:   r,
		id:   uuid.NewString(),
		Opts: opts,
	}
	if opts.Instructions != "" {
		s.transcript = append(s.transcript, runtime.TranscriptEntry{
			Role:    runtime.RoleSystem,
			Content: opts.Instructions,
		})
	}
	r.sessions = append(r.sessions, s)
	return s, nil
}

func (r *Runtime) script(prompt string) *Script {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scripts[prompt]
}

// Session is one fake conversation. Exported fields are safe to read once
// the operations touching them have returned.
type Session struct {
	rt *Runtime
	id string

	// Opts are the options the session was created with.
	Opts runtime.SessionOptions

	mu         sync.Mutex
	transcript []runtime.TranscriptEntry
	closed     bool

	// LastToolResult is the content the most recent tool invocation
	// produced, as seen by the runtime.
	LastToolResult *runtime.Content

	// LastSchema and LastDeps record the most recent structured request.
	LastSchema *runtime.Schema
	LastDeps   []runtime.NamedSchema
}

var _ runtime.Session = (*Session)(nil)

// ID returns the fake session's unique identifier.
func (s *Session) ID() string { return s.id }

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Respond(ctx context.Context, p runtime.Prompt) (string, error) {
	sc := s.rt.script(p.Text)
	s.record(runtime.TranscriptEntry{Role: runtime.RoleUser, Content: p.Text})

	if sc != nil && sc.ToolName != "" {
		if err := s.callTool(ctx, sc.ToolName, sc.ToolArgs); err != nil {
			return "", err
		}
	}
	if sc != nil && sc.Err != nil {
		return "", sc.Err
	}

	resp := "echo: " + p.Text
	if sc != nil && sc.Response != "" {
		resp = sc.Response
	}
	s.record(runtime.TranscriptEntry{Role: runtime.RoleAssistant, Content: resp})
	return resp, nil
}

func (s *Session) callTool(ctx context.Context, name string, args runtime.Content) error {
	var tool *runtime.Tool
	for i := range s.Opts.Tools {
		if s.Opts.Tools[i].Name == name {
			tool = &s.Opts.Tools[i]
			break
		}
	}
	if tool == nil {
		return fmt.Errorf("runtimetest: session has no tool %q", name)
	}

	callID := uuid.NewString()
	s.record(runtime.TranscriptEntry{
		Role:      runtime.RoleAssistant,
		ToolCalls: []runtime.TranscriptToolCall{{ID: callID, Name: name}},
	})

	result, err := tool.Invoke(ctx, args)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.LastToolResult = &result
	s.mu.Unlock()

	s.record(runtime.TranscriptEntry{
		Role:       runtime.RoleTool,
		ToolCallID: callID,
		ToolName:   name,
	})
	return nil
}

func (s *Session) RespondStructured(ctx context.Context, p runtime.Prompt, root runtime.Schema, deps []runtime.NamedSchema) (runtime.Content, string, error) {
	sc := s.rt.script(p.Text)
	s.record(runtime.TranscriptEntry{Role: runtime.RoleUser, Content: p.Text})

	s.mu.Lock()
	s.LastSchema = &root
	s.LastDeps = deps
	s.mu.Unlock()

	if sc != nil && sc.Err != nil {
		return runtime.Content{}, "", sc.Err
	}

	content := runtime.StructureContent(runtime.Field{Key: "echo", Value: runtime.StringContent(p.Text)})
	text := ""
	if sc != nil {
		if sc.Structured != nil {
			content = *sc.Structured
		}
		if sc.StructuredText != "" {
			text = sc.StructuredText
		} else {
			text = sc.Response
		}
	}
	s.record(runtime.TranscriptEntry{Role: runtime.RoleAssistant, Content: text})
	return content, text, nil
}

func (s *Session) Stream(ctx context.Context, p runtime.Prompt) (runtime.SnapshotStream, error) {
	sc := s.rt.script(p.Text)
	s.record(runtime.TranscriptEntry{Role: runtime.RoleUser, Content: p.Text})
	st := &snapshotStream{}
	if sc != nil {
		st.snapshots = sc.Snapshots
		st.err = sc.Err
		st.holdOpen = sc.HoldOpen
	} else {
		st.snapshots = []string{"echo: " + p.Text}
	}
	return st, nil
}

func (s *Session) Transcript(ctx context.Context) ([]runtime.TranscriptEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]runtime.TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Session) record(e runtime.TranscriptEntry) {
	s.mu.Lock()
	s.transcript = append(s.transcript, e)
	s.mu.Unlock()
}

// snapshotStream yields the scripted cumulative snapshots.
type snapshotStream struct {
	snapshots []string
	err       error
	holdOpen  bool
	i         int
}

func (st *snapshotStream) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if st.i < len(st.snapshots) {
		snap := st.snapshots[st.i]
		st.i++
		return snap, nil
	}
	if st.err != nil {
		return "", st.err
	}
	if st.holdOpen {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "", io.EOF
}
