package aibridge

import (
	"errors"
	"strings"

	"github.com/aibridge/aibridge-go/internal/toolbridge"
	"github.com/aibridge/aibridge-go/runtime"
)

// The bridge's error taxonomy. Synchronous entry points never return these
// directly: every failure collapses to an "Error: <message>" string payload,
// and streaming entry points report failures through the same callback
// channel with the identical prefix. The sentinels exist so internal code
// and tests can classify failures with errors.Is.
var (
	ErrModelUnavailable  = errors.New("model unavailable")
	ErrInvalidJSON       = errors.New("invalid JSON")
	ErrInvalidInput      = errors.New("invalid input")
	ErrEncoding          = errors.New("encoding error")
	ErrSessionNotFound   = errors.New("session not found")
	ErrStreamNotFound    = errors.New("stream not found")
	ErrToolNotFound      = toolbridge.ErrNotFound
	ErrToolExecution     = toolbridge.ErrExecution
	ErrGuardrailViolation = runtime.ErrGuardrailViolation
	ErrUnknown           = errors.New("unknown error")
)

// ErrorPrefix starts every failure payload returned across the boundary.
// Callers distinguish failures from degenerate successes by inspecting it.
const ErrorPrefix = "Error: "

// guardrailMessage is the fixed human-readable text used for guardrail
// rejections regardless of the runtime's internal reason detail.
const guardrailMessage = "Response was blocked by content safety guardrails"

// errorPayload renders err as a boundary payload.
func errorPayload(err error) string {
	if err == nil {
		err = ErrUnknown
	}
	if errors.Is(err, runtime.ErrGuardrailViolation) {
		return ErrorPrefix + guardrailMessage
	}
	return ErrorPrefix + err.Error()
}

// IsErrorPayload reports whether a value returned across the boundary is a
// failure payload rather than generated text.
func IsErrorPayload(s string) bool {
	return strings.HasPrefix(s, ErrorPrefix)
}
