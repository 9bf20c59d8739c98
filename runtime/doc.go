// Package runtime defines the contract between the bridge and the external
// model runtime it multiplexes: the Runtime and Session interfaces plus the
// runtime-native schema and content representations exchanged across that
// boundary.
//
// The package is intentionally free of bridge mechanics: handle tables,
// streaming delta computation, schema translation and the tool-invocation
// bridge all live elsewhere and consume these types. A Runtime implementation
// adapts one concrete inference capability (an on-device model, a remote
// endpoint, or the scripted fake in package runtimetest) to this contract.
//
// # Sessions
//
// A Session is stateful and exclusively owned: conversation history, loaded
// model resources and tool routing are the runtime's concern. The bridge
// never mutates a session beyond issuing generation requests and closing it.
//
// # Schemas
//
// Schema is a tagged variant (reference, string enum, union, primitive,
// array, object) describing the structure of constrained output. Object
// properties are ordered, and references resolve against an accompanying
// NamedSchema dependency set rather than a global registry.
//
// # Content
//
// Content is the runtime-side value representation produced by structured
// generation and consumed by tool invocations. Structures are ordered lists
// of key/value pairs of arbitrary length; numbers keep their integral or
// floating classification so scalars survive a round trip through JSON.
//
// # Errors
//
// Implementations report content-safety rejections with an error matching
// ErrGuardrailViolation under errors.Is, and readiness problems with
// ErrUnavailable. All other failures are runtime-specific.
package runtime
