// Package toolbridge exposes externally-registered synchronous callbacks as
// runtime-invocable tools.
//
// Callbacks are registered per (session, tool name) after the session — and
// therefore the runtime tool — already exists, so a bound tool resolves its
// callback at invocation time from the session's Set rather than capturing it
// at construction. Invocation marshals runtime content to JSON, validates it
// against the tool's declared parameter schema, and blocks the enclosing
// generation task until the callback returns.
package toolbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/aibridge/aibridge-go/internal/contentcodec"
	"github.com/aibridge/aibridge-go/internal/logctx"
	"github.com/aibridge/aibridge-go/internal/schematrans"
	"github.com/aibridge/aibridge-go/runtime"
)

var (
	// ErrNotFound reports an invocation of a tool name with no registered
	// callback.
	ErrNotFound = errors.New("tool not found")

	// ErrExecution reports a callback that failed or returned nothing.
	ErrExecution = errors.New("tool execution failed")
)

// Func is a registered native callback. It receives the tool arguments as a
// JSON-encoded string and returns its result as a string; any state the
// caller needs (the C ABI's userData) travels in the closure. An empty result
// with a nil error is treated as no result at all.
type Func func(ctx context.Context, argsJSON string) (string, error)

// Def is one externally-supplied tool definition, as carried in the
// session-creation tools JSON.
type Def struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// Set holds the callbacks registered against one session, keyed by tool
// name. It has its own lock so tool invocations running on runtime tasks
// never re-enter the handle registry's lock.
type Set struct {
	mu  sync.RWMutex
	fns map[string]Func
}

// NewSet returns an empty callback set.
func NewSet() *Set {
	return &Set{fns: make(map[string]Func)}
}

// Register installs fn for name, replacing any previous registration.
func (s *Set) Register(name string, fn Func) {
	s.mu.Lock()
	s.fns[name] = fn
	s.mu.Unlock()
}

// Lookup returns the callback registered for name.
func (s *Set) Lookup(name string) (Func, bool) {
	s.mu.RLock()
	fn, ok := s.fns[name]
	s.mu.RUnlock()
	return fn, ok
}

// Bind wraps def as a runtime tool whose invocations resolve callbacks from
// set. The declared input schema is translated for the runtime; a schema
// that fails to translate degrades to an empty object schema rather than
// failing the bind.
func Bind(def Def, set *Set, log *slog.Logger) runtime.Tool {
	params := runtime.EmptyObjectSchema()
	var deps []runtime.NamedSchema
	if len(def.InputSchema) > 0 {
		root, d, err := schematrans.Translate(def.InputSchema)
		if err != nil {
			log.Warn("toolbridge.bind.schema_fallback",
				slog.String("tool", def.Name),
				slog.String("err", err.Error()))
		} else {
			params = root
			deps = d
		}
	}

	v := newValidator(def.InputSchema)

	return runtime.Tool{
		Name:         def.Name,
		Description:  def.Description,
		Parameters:   params,
		Dependencies: deps,
		Invoke: func(ctx context.Context, args runtime.Content) (runtime.Content, error) {
			return invoke(ctx, def.Name, args, set, v, log)
		},
	}
}

func invoke(ctx context.Context, name string, args runtime.Content, set *Set, v *validator, log *slog.Logger) (runtime.Content, error) {
	argsJSON, err := contentcodec.Encode(args)
	if err != nil {
		return runtime.Content{}, fmt.Errorf("%w: encoding arguments for %q: %v", ErrExecution, name, err)
	}

	if verrs := v.validate(argsJSON); len(verrs) > 0 {
		return runtime.Content{}, fmt.Errorf("%w: arguments for %q rejected by schema: %s", ErrExecution, name, verrs[0])
	}

	fn, ok := set.Lookup(name)
	if !ok {
		return runtime.Content{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: name})
	log.DebugContext(ctx, "toolbridge.invoke")
	out, err := fn(ctx, string(argsJSON))
	if err != nil {
		return runtime.Content{}, fmt.Errorf("%w: %q: %v", ErrExecution, name, err)
	}
	if out == "" {
		return runtime.Content{}, fmt.Errorf("%w: %q returned no result", ErrExecution, name)
	}

	// A JSON result is surfaced structurally; anything else is wrapped as a
	// single-field structure.
	if json.Valid([]byte(out)) {
		return contentcodec.Decode([]byte(out)), nil
	}
	return runtime.StructureContent(runtime.Field{Key: "result", Value: runtime.StringContent(out)}), nil
}

// validator lazily compiles the declared parameter schema. Compilation
// failures disable validation for the tool instead of failing invocations.
type validator struct {
	raw    json.RawMessage
	once   sync.Once
	schema *gojsonschema.Schema
}

func newValidator(raw json.RawMessage) *validator {
	return &validator{raw: raw}
}

func (v *validator) validate(doc []byte) []string {
	if len(v.raw) == 0 {
		return nil
	}
	v.once.Do(func() {
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(v.raw))
		if err == nil {
			v.schema = s
		}
	})
	if v.schema == nil {
		return nil
	}
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil || result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return errs
}
