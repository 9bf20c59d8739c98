package runtime

import (
	"context"
	"errors"
)

// Sentinel errors surfaced by Runtime implementations. Bridge code classifies
// failures with errors.Is rather than by string matching.
var (
	// ErrUnavailable reports that the model runtime cannot serve requests
	// on this device right now.
	ErrUnavailable = errors.New("model runtime unavailable")

	// ErrGuardrailViolation reports that the runtime's content safety layer
	// rejected the prompt or the generated output.
	ErrGuardrailViolation = errors.New("guardrail violation")
)

// Availability is the runtime's readiness code. The zero value means the
// runtime can serve requests; the remaining codes explain why it cannot.
type Availability int

const (
	Available               Availability = 0
	DeviceNotEligible       Availability = 1
	IntelligenceNotEnabled  Availability = 2
	ModelNotReady           Availability = 3
	AvailabilityUnknownError Availability = -1
)

// String returns the canonical lowercase name for the availability code.
func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case DeviceNotEligible:
		return "device_not_eligible"
	case IntelligenceNotEnabled:
		return "intelligence_not_enabled"
	case ModelNotReady:
		return "model_not_ready"
	default:
		return "unknown_error"
	}
}

// Runtime is the external inference capability the bridge multiplexes. It is
// stateful and opaque: sessions carry conversation history internally, and the
// runtime owns all model-level behavior (sampling, guardrails, tool routing).
//
// Implementations must be safe for concurrent use; the bridge performs no
// locking around runtime calls beyond its own handle tables.
type Runtime interface {
	// Availability reports the readiness code and a human-readable reason.
	Availability(ctx context.Context) (Availability, string)

	// SupportedLanguages lists the languages the runtime can generate in.
	SupportedLanguages(ctx context.Context) ([]string, error)

	// NewSession creates a new, exclusively-owned conversation session.
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
}

// SessionOptions configures a new runtime session.
type SessionOptions struct {
	// Instructions is the optional system prompt for the session.
	Instructions string

	// Tools are the runtime-invocable capabilities available to the model
	// for the life of the session.
	Tools []Tool

	// Prewarm asks the runtime to load model resources eagerly.
	Prewarm bool
}

// Tool exposes a callable capability to the model. The runtime invokes Invoke
// zero or more times during generation; the call blocks the enclosing
// generation task until it returns.
type Tool struct {
	Name        string
	Description string

	// Parameters constrains the argument content the runtime will produce
	// when calling the tool. Dependencies carries the named schemas any
	// Reference nodes in Parameters resolve against.
	Parameters   Schema
	Dependencies []NamedSchema

	Invoke func(ctx context.Context, args Content) (Content, error)
}

// Prompt is a single generation request against a session.
type Prompt struct {
	Text        string
	Temperature float64
	MaxTokens   int
}

// Session is one stateful conversation with the runtime. A session is not
// required to support concurrent generations; the bridge serializes use per
// caller and relies on the runtime's own internal safety otherwise.
type Session interface {
	// Respond generates a complete text response.
	Respond(ctx context.Context, p Prompt) (string, error)

	// RespondStructured generates content constrained by the given schema.
	// It returns the structured content alongside the raw response text.
	RespondStructured(ctx context.Context, p Prompt, root Schema, deps []NamedSchema) (Content, string, error)

	// Stream starts an incremental generation. The returned stream yields
	// successive cumulative snapshots of the response text.
	Stream(ctx context.Context, p Prompt) (SnapshotStream, error)

	// Transcript returns the session's conversation history. History is
	// owned by the runtime; the bridge only reads it.
	Transcript(ctx context.Context) ([]TranscriptEntry, error)

	// Close releases the session's runtime resources.
	Close() error
}

// SnapshotStream yields cumulative response snapshots. Next returns io.EOF
// after the final snapshot, or ctx.Err() if the context is cancelled while
// waiting. Each snapshot contains the entire response generated so far, not
// a delta.
type SnapshotStream interface {
	Next(ctx context.Context) (string, error)
}

// TranscriptEntry is one message of a session transcript.
type TranscriptEntry struct {
	Role       string               `json:"role"`
	Content    string               `json:"content"`
	Name       string               `json:"name,omitempty"`
	ToolCalls  []TranscriptToolCall `json:"toolCalls,omitempty"`
	ToolCallID string               `json:"toolCallId,omitempty"`
	ToolName   string               `json:"toolName,omitempty"`
}

// TranscriptToolCall records a model-initiated tool invocation.
type TranscriptToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// Transcript roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)
