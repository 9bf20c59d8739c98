// Package aibridge multiplexes a stateful model runtime behind small
// integer handles, exposing a flat, synchronous-friendly surface suitable
// for embedding behind a foreign function boundary.
//
// The Bridge owns a handle registry mapping 1-byte tokens to runtime
// sessions and active streams, a translator from JSON Schema documents to
// the runtime's native schema representation, a bidirectional codec between
// JSON and the runtime's structured content, a streaming protocol that turns
// cumulative runtime snapshots into ordered delta callbacks, and a tool
// bridge that lets the model call back into externally-registered
// synchronous functions.
//
// # Construction
//
// Build a Bridge once per process over a runtime.Runtime implementation and
// share it; all methods are safe for concurrent use:
//
//	b, err := aibridge.New(rt, aibridge.WithLogger(logger))
//	if err != nil { … }
//	defer b.Close()
//
// # Error reporting
//
// Entry points never return Go errors across the surface. String-returning
// operations collapse every failure into an "Error: <message>" payload;
// handle-returning operations return 0; boolean operations return false.
// Streaming failures travel through the same callback channel as data, with
// the identical prefix. Use IsErrorPayload to classify results, and
// LastError for the most recent failure message.
//
// # Streams
//
// GenerateResponseStream delivers each new suffix of the runtime's
// cumulative output as one callback invocation, strictly in generation
// order, then exactly one terminal sentinel (empty delta, done=true). Error
// payloads are also followed by the sentinel. CancelStream stops a stream
// cooperatively: emission ceases at the task's next suspension point and
// already-delivered deltas are never retracted.
//
// # Tools
//
// Sessions declare tools at creation time (ToolsJSON or NewTool) and attach
// native callbacks afterwards with RegisterTool. When the model invokes a
// tool, the bridge marshals the arguments to JSON, validates them against
// the declared schema, and blocks the generation task until the callback
// returns. Do not call blocking generation entry points from inside a tool
// callback that is running on behalf of a stream; the bounded streaming
// pool could starve, and such calls are refused with an error payload.
package aibridge
