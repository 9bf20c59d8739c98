package aibridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/aibridge/aibridge-go/internal/toolbridge"
)

// ToolFunc is a native tool callback. It receives the tool arguments as a
// JSON-encoded string and returns its result string; state the caller needs
// travels in the closure. A non-nil error — or an empty result with no
// error — fails the invocation with a tool execution error.
//
// If the returned string parses as JSON it is surfaced to the runtime
// structurally; otherwise it is wrapped as {"result": <raw string>}.
type ToolFunc func(ctx context.Context, argsJSON string) (string, error)

// ToolDef declares a tool at session creation time: its name, an optional
// description, and an optional JSON-Schema document constraining its
// arguments. The callback itself is registered separately with
// Bridge.RegisterTool.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// NewTool builds a ToolDef whose input schema is reflected from the Go
// argument struct A. Field names, json tags, jsonschema tags and required
// markers all carry through to the declared schema.
func NewTool[A any](name, description string) (ToolDef, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true, // inline defs
		ExpandedStruct: true, // put struct at root
	}
	s := r.Reflect(new(A))
	raw, err := json.Marshal(s)
	if err != nil {
		return ToolDef{}, fmt.Errorf("reflecting schema for tool %q: %w", name, err)
	}
	return ToolDef{Name: name, Description: description, InputSchema: raw}, nil
}

// MarshalToolDefs renders defs as the tools JSON accepted by CreateSession.
func MarshalToolDefs(defs ...ToolDef) (string, error) {
	b, err := json.Marshal(defs)
	if err != nil {
		return "", fmt.Errorf("encoding tool definitions: %w", err)
	}
	return string(b), nil
}

// decodeToolDefs parses the session-creation tools JSON strictly: a document
// that fails to decode fails session creation.
func decodeToolDefs(toolsJSON string) ([]toolbridge.Def, error) {
	if toolsJSON == "" {
		return nil, nil
	}
	var defs []toolbridge.Def
	if err := json.Unmarshal([]byte(toolsJSON), &defs); err != nil {
		return nil, fmt.Errorf("%w: tools: %v", ErrInvalidJSON, err)
	}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: tool definition missing name", ErrInvalidInput)
		}
	}
	return defs, nil
}
