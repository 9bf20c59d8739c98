package aibridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/aibridge/aibridge-go/internal/contentcodec"
	"github.com/aibridge/aibridge-go/internal/logctx"
	"github.com/aibridge/aibridge-go/internal/registry"
	"github.com/aibridge/aibridge-go/internal/schematrans"
	"github.com/aibridge/aibridge-go/internal/streaming"
	"github.com/aibridge/aibridge-go/internal/toolbridge"
	"github.com/aibridge/aibridge-go/runtime"
)

// Version identifies the bridge library build.
const Version = "1.0.0"

// Handle is a 1-byte token identifying a live session or stream. Handle 0
// never denotes a live resource.
type Handle uint8

// InvalidHandle is returned by creation entry points on failure.
const InvalidHandle Handle = 0

// StreamFunc receives stream output. Non-empty deltas arrive in generation
// order with done=false; the terminal sentinel is one invocation with an
// empty delta and done=true. Failures arrive as an "Error: …" delta followed
// by the sentinel. A cancelled stream simply stops.
type StreamFunc func(delta string, done bool)

// SessionConfig configures CreateSession.
type SessionConfig struct {
	// Instructions is the optional system prompt.
	Instructions string

	// ToolsJSON is an optional JSON array of tool definitions:
	// [{"name", "description"?, "input_schema"?}, …]. Callbacks are wired
	// separately via RegisterTool.
	ToolsJSON string

	// DefaultSchemaJSON is the session-level fallback schema for structured
	// generation when a request supplies none.
	DefaultSchemaJSON string

	// The following flags are accepted for surface parity but currently
	// change no behavior: guardrails and history are owned by the runtime.
	EnableGuardrails          bool
	EnableHistory             bool
	EnableStructuredResponses bool

	// Prewarm asks the runtime to load model resources eagerly.
	Prewarm bool
}

// Stats counts requests issued through the bridge's generation entry points.
type Stats struct {
	TotalRequests      uint64
	SuccessfulRequests uint64
	FailedRequests     uint64
}

// Bridge multiplexes sessions of one model runtime behind small integer
// handles. Construct it once with New and share it freely: every method is
// safe for concurrent use from multiple goroutines.
type Bridge struct {
	rt   runtime.Runtime
	log  *slog.Logger
	cfg  Config
	reg  *registry.Registry
	pool *streaming.Pool

	total     atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64

	lastErrMu sync.Mutex
	lastErr   string
}

// New constructs a Bridge over rt. Configuration defaults come from the
// environment (see Config) unless overridden with WithConfig.
func New(rt runtime.Runtime, opts ...Option) (*Bridge, error) {
	if rt == nil {
		return nil, fmt.Errorf("%w: nil runtime", ErrInvalidInput)
	}
	b := &Bridge{
		rt:  rt,
		log: slog.Default(),
		cfg: ConfigFromEnv(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = slog.New(logctx.Handler{Handler: b.log.Handler()})
	b.reg = registry.New(b.log)
	b.pool = streaming.NewPool(b.cfg.MaxConcurrentStreams, b.fail, b.log)
	return b, nil
}

// fail records err as the bridge's last error and renders the boundary
// payload for it. It is also the streaming pool's payload formatter.
func (b *Bridge) fail(err error) string {
	p := errorPayload(err)
	b.lastErrMu.Lock()
	b.lastErr = strings.TrimPrefix(p, ErrorPrefix)
	b.lastErrMu.Unlock()
	return p
}

// CheckAvailability reports the runtime's readiness code.
func (b *Bridge) CheckAvailability(ctx context.Context) runtime.Availability {
	code, _ := b.rt.Availability(ctx)
	return code
}

// AvailabilityReason returns the runtime's human-readable availability
// explanation.
func (b *Bridge) AvailabilityReason(ctx context.Context) string {
	_, reason := b.rt.Availability(ctx)
	return reason
}

// CreateSession builds a runtime session with the declared tools and
// registers it under a fresh handle. It returns InvalidHandle if the runtime
// reports unavailable or the configuration fails to decode.
func (b *Bridge) CreateSession(ctx context.Context, cfg SessionConfig) Handle {
	code, reason := b.rt.Availability(ctx)
	if code != runtime.Available {
		b.fail(fmt.Errorf("%w: %s", ErrModelUnavailable, reason))
		b.log.InfoContext(ctx, "bridge.create_session.unavailable", slog.String("code", code.String()))
		return InvalidHandle
	}

	defs, err := decodeToolDefs(cfg.ToolsJSON)
	if err != nil {
		b.fail(err)
		b.log.InfoContext(ctx, "bridge.create_session.invalid", slog.String("err", err.Error()))
		return InvalidHandle
	}
	if cfg.DefaultSchemaJSON != "" && !json.Valid([]byte(cfg.DefaultSchemaJSON)) {
		b.fail(fmt.Errorf("%w: default schema", ErrInvalidJSON))
		b.log.InfoContext(ctx, "bridge.create_session.invalid", slog.String("err", "default schema is not valid JSON"))
		return InvalidHandle
	}

	set := toolbridge.NewSet()
	tools := make([]runtime.Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, toolbridge.Bind(def, set, b.log))
	}

	sess, err := b.rt.NewSession(ctx, runtime.SessionOptions{
		Instructions: cfg.Instructions,
		Tools:        tools,
		Prewarm:      cfg.Prewarm,
	})
	if err != nil {
		b.fail(err)
		b.log.ErrorContext(ctx, "bridge.create_session.fail", slog.String("err", err.Error()))
		return InvalidHandle
	}

	h := b.reg.AddSession(&registry.Session{
		Runtime:           sess,
		Tools:             set,
		DefaultSchemaJSON: cfg.DefaultSchemaJSON,
		Instructions:      cfg.Instructions,
	})
	b.log.InfoContext(ctx, "bridge.create_session.ok", slog.Int("handle", int(h)), slog.Int("tools", len(tools)))
	return Handle(h)
}

// RegisterTool installs fn as the callback for the named tool on the given
// session. It reports false for an unknown handle, an empty name, or a nil
// callback.
func (b *Bridge) RegisterTool(h Handle, name string, fn ToolFunc) bool {
	if name == "" || fn == nil {
		return false
	}
	return b.reg.RegisterTool(uint8(h), name, toolbridge.Func(fn))
}

// DestroySession releases the session's runtime resources and frees its
// handle. Unknown handles are a silent no-op.
func (b *Bridge) DestroySession(h Handle) {
	s, ok := b.reg.RemoveSession(uint8(h))
	if !ok {
		return
	}
	if err := s.Runtime.Close(); err != nil {
		b.log.Warn("bridge.destroy_session.close_fail", slog.Int("handle", int(h)), slog.String("err", err.Error()))
	}
}

// SessionHistory returns the session transcript as a JSON array of
// {role, content, name?, toolCalls?, toolCallId?, toolName?} entries. The
// second return is false for unknown handles or a transcript failure.
func (b *Bridge) SessionHistory(ctx context.Context, h Handle) (string, bool) {
	s, ok := b.reg.Session(uint8(h))
	if !ok {
		return "", false
	}
	entries, err := s.Runtime.Transcript(ctx)
	if err != nil {
		b.fail(err)
		return "", false
	}
	if entries == nil {
		entries = []runtime.TranscriptEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		b.fail(fmt.Errorf("%w: transcript: %v", ErrEncoding, err))
		return "", false
	}
	return string(raw), true
}

// ClearSessionHistory reports whether the handle is live. History is owned
// by the runtime, so this is deliberately a no-op beyond the liveness check.
func (b *Bridge) ClearSessionHistory(h Handle) bool {
	_, ok := b.reg.Session(uint8(h))
	return ok
}

// GenerateResponse runs one blocking text generation. It always returns a
// value: generated text on success, an "Error: …" payload on failure.
func (b *Bridge) GenerateResponse(ctx context.Context, h Handle, prompt string, temperature float64, maxTokens int) string {
	b.total.Add(1)
	s, ok := b.reg.Session(uint8(h))
	if !ok {
		b.failed.Add(1)
		return b.fail(fmt.Errorf("%w: handle %d", ErrSessionNotFound, h))
	}
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{Handle: uint8(h)})
	p := b.prompt(prompt, temperature, maxTokens)

	out := b.pool.RunSync(ctx, func(ctx context.Context) (string, error) {
		return s.Runtime.Respond(ctx, p)
	})
	b.count(out)
	return out
}

// GenerateStructuredResponse runs one blocking schema-constrained
// generation. schemaJSON may be empty, in which case the session's default
// schema applies; with neither, the call fails. On success the payload is a
// JSON object {"text": …, "object": …}.
func (b *Bridge) GenerateStructuredResponse(ctx context.Context, h Handle, prompt, schemaJSON string, temperature float64, maxTokens int) string {
	b.total.Add(1)
	s, ok := b.reg.Session(uint8(h))
	if !ok {
		b.failed.Add(1)
		return b.fail(fmt.Errorf("%w: handle %d", ErrSessionNotFound, h))
	}
	if schemaJSON == "" {
		schemaJSON = s.DefaultSchemaJSON
	}
	if schemaJSON == "" {
		b.failed.Add(1)
		return b.fail(fmt.Errorf("%w: structured generation requires a schema", ErrInvalidInput))
	}
	root, deps, err := schematrans.Translate([]byte(schemaJSON))
	if err != nil {
		b.failed.Add(1)
		return b.fail(fmt.Errorf("%w: schema: %v", ErrInvalidJSON, err))
	}

	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{Handle: uint8(h)})
	p := b.prompt(prompt, temperature, maxTokens)

	out := b.pool.RunSync(ctx, func(ctx context.Context) (string, error) {
		content, text, err := s.Runtime.RespondStructured(ctx, p, root, deps)
		if err != nil {
			return "", err
		}
		payload, err := json.Marshal(struct {
			Text   string `json:"text"`
			Object any    `json:"object"`
		}{Text: text, Object: contentcodec.ToValue(content)})
		if err != nil {
			return "", fmt.Errorf("%w: structured result: %v", ErrEncoding, err)
		}
		return string(payload), nil
	})
	b.count(out)
	return out
}

// GenerateResponseStream starts an incremental text generation delivered to
// cb. It returns the stream handle, or InvalidHandle for an unknown session.
// The stream's lifetime is detached from ctx: it ends on completion, failure
// or CancelStream.
func (b *Bridge) GenerateResponseStream(ctx context.Context, h Handle, prompt string, temperature float64, maxTokens int, cb StreamFunc) Handle {
	b.total.Add(1)
	s, ok := b.reg.Session(uint8(h))
	if !ok || cb == nil {
		b.failed.Add(1)
		b.fail(fmt.Errorf("%w: handle %d", ErrSessionNotFound, h))
		return InvalidHandle
	}

	sctx, st, sh := b.newStream(ctx, uint8(h))
	p := b.prompt(prompt, temperature, maxTokens)
	b.pool.StreamText(sctx, s.Runtime, p, streaming.Callback(cb), b.finishStream(st, sh))
	return Handle(sh)
}

// GenerateStructuredResponseStream starts a schema-constrained generation
// delivered to cb as a single {"text","object"} payload plus the terminal
// sentinel. schemaJSON may be empty if the session has a default schema;
// with neither, or with an unparseable schema, it returns InvalidHandle.
func (b *Bridge) GenerateStructuredResponseStream(ctx context.Context, h Handle, prompt, schemaJSON string, temperature float64, maxTokens int, cb StreamFunc) Handle {
	b.total.Add(1)
	s, ok := b.reg.Session(uint8(h))
	if !ok || cb == nil {
		b.failed.Add(1)
		b.fail(fmt.Errorf("%w: handle %d", ErrSessionNotFound, h))
		return InvalidHandle
	}
	if schemaJSON == "" {
		schemaJSON = s.DefaultSchemaJSON
	}
	if schemaJSON == "" {
		b.failed.Add(1)
		b.fail(fmt.Errorf("%w: structured generation requires a schema", ErrInvalidInput))
		return InvalidHandle
	}
	root, deps, err := schematrans.Translate([]byte(schemaJSON))
	if err != nil {
		b.failed.Add(1)
		b.fail(fmt.Errorf("%w: schema: %v", ErrInvalidJSON, err))
		return InvalidHandle
	}

	sctx, st, sh := b.newStream(ctx, uint8(h))
	p := b.prompt(prompt, temperature, maxTokens)
	b.pool.StreamStructured(sctx, s.Runtime, p, root, deps, streaming.Callback(cb), b.finishStream(st, sh))
	return Handle(sh)
}

// CancelStream requests cooperative cancellation of the stream's task and
// frees its handle. It reports false for unknown handles; a second
// cancellation of the same handle therefore returns false.
func (b *Bridge) CancelStream(h Handle) bool {
	return b.reg.CancelStream(uint8(h))
}

// SupportedLanguages lists the languages the runtime can generate in, or nil
// on failure.
func (b *Bridge) SupportedLanguages(ctx context.Context) []string {
	langs, err := b.rt.SupportedLanguages(ctx)
	if err != nil {
		b.fail(err)
		return nil
	}
	return langs
}

// Stats returns a snapshot of the request counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		TotalRequests:      b.total.Load(),
		SuccessfulRequests: b.succeeded.Load(),
		FailedRequests:     b.failed.Load(),
	}
}

// LastError returns the message of the most recent failure, or "" if none.
func (b *Bridge) LastError() string {
	b.lastErrMu.Lock()
	defer b.lastErrMu.Unlock()
	return b.lastErr
}

// BridgeVersion returns the library version string.
func (b *Bridge) BridgeVersion() string {
	return Version
}

// Close destroys every live session and cancels every live stream. The
// bridge must not be used afterwards.
func (b *Bridge) Close() {
	sessions, streams := b.reg.Drain()
	for _, st := range streams {
		st.Cancel()
	}
	for _, s := range sessions {
		if err := s.Runtime.Close(); err != nil {
			b.log.Warn("bridge.close.session_fail", slog.Int("handle", int(s.Handle)), slog.String("err", err.Error()))
		}
	}
	b.log.Debug("bridge.close", slog.Int("sessions", len(sessions)), slog.Int("streams", len(streams)))
}

// newStream allocates a stream slot and its detached, cancellable context.
func (b *Bridge) newStream(ctx context.Context, sessionHandle uint8) (context.Context, *registry.Stream, uint8) {
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	st := &registry.Stream{Cancel: cancel, Done: make(chan struct{})}
	sh := b.reg.AddStream(st)
	sctx = logctx.WithSessionData(sctx, &logctx.SessionData{Handle: sessionHandle})
	sctx = logctx.WithStreamData(sctx, &logctx.StreamData{Handle: sh, TaskID: uuid.NewString()})
	return sctx, st, sh
}

// finishStream builds the completion hook for a stream task: free the
// handle, signal waiters, count the outcome.
func (b *Bridge) finishStream(st *registry.Stream, sh uint8) func(error) {
	return func(err error) {
		b.reg.RemoveStream(sh)
		close(st.Done)
		if err != nil {
			b.failed.Add(1)
		} else {
			b.succeeded.Add(1)
		}
	}
}

// count classifies a synchronous entry point's payload. The "Error: "
// prefix is the boundary's only failure signal, so the bridge inspects it
// the same way callers do.
func (b *Bridge) count(out string) {
	if IsErrorPayload(out) {
		b.failed.Add(1)
	} else {
		b.succeeded.Add(1)
	}
}

// prompt applies configuration defaults to raw prompt parameters.
func (b *Bridge) prompt(text string, temperature float64, maxTokens int) runtime.Prompt {
	if temperature < 0 {
		temperature = b.cfg.DefaultTemperature
	}
	if maxTokens <= 0 {
		maxTokens = b.cfg.DefaultMaxTokens
	}
	return runtime.Prompt{Text: text, Temperature: temperature, MaxTokens: maxTokens}
}
