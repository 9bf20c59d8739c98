// Package contentcodec converts between JSON values and the runtime's
// structured-content representation.
//
// Decoding is total: malformed input degrades to an empty string value
// rather than an error, because content arriving from the runtime or from a
// tool callback must never fault the enclosing generation. Encoding can fail
// only on values JSON cannot represent (NaN, infinities).
package contentcodec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aibridge/aibridge-go/runtime"
)

// Decode parses JSON into runtime content. Anything that is not valid JSON
// becomes the empty string value.
func Decode(data []byte) runtime.Content {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return runtime.StringContent("")
	}
	return FromValue(v)
}

// FromValue converts a decoded JSON value tree (as produced by
// encoding/json with UseNumber) into runtime content. Objects become
// structures with their fields sorted by key ascending, so construction is
// deterministic regardless of Go map iteration order. Unrecognized values
// degrade to the empty string.
func FromValue(v any) runtime.Content {
	switch t := v.(type) {
	case nil:
		return runtime.NullContent()
	case bool:
		return runtime.BoolContent(t)
	case json.Number:
		return numberContent(t)
	case float64:
		// Plain json.Unmarshal without UseNumber produces float64; treat a
		// value with no fractional part as integral.
		if t == float64(int64(t)) {
			return runtime.IntContent(int64(t))
		}
		return runtime.FloatContent(t)
	case string:
		return runtime.StringContent(t)
	case []any:
		items := make([]runtime.Content, len(t))
		for i, el := range t {
			items[i] = FromValue(el)
		}
		return runtime.ArrayContent(items...)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]runtime.Field, len(keys))
		for i, k := range keys {
			fields[i] = runtime.Field{Key: k, Value: FromValue(t[k])}
		}
		return runtime.StructureContent(fields...)
	default:
		return runtime.StringContent("")
	}
}

// numberContent classifies a number by its own literal form, not its
// magnitude: "2.0" stays floating-typed even though it is a whole number.
func numberContent(n json.Number) runtime.Content {
	if !strings.ContainsAny(n.String(), ".eE") {
		if i, err := n.Int64(); err == nil {
			return runtime.IntContent(i)
		}
	}
	f, err := n.Float64()
	if err != nil {
		return runtime.StringContent("")
	}
	return runtime.FloatContent(f)
}

// ToValue converts runtime content into a plain Go value tree suitable for
// json.Marshal. Structure key order is not significant on the JSON side, so
// structures become ordinary maps.
func ToValue(c runtime.Content) any {
	switch c.Kind {
	case runtime.ContentNull:
		return nil
	case runtime.ContentBool:
		return c.Bool
	case runtime.ContentNumber:
		if c.Integral {
			return c.Int
		}
		return c.Float
	case runtime.ContentString:
		return c.Str
	case runtime.ContentArray:
		out := make([]any, len(c.Items))
		for i, el := range c.Items {
			out[i] = ToValue(el)
		}
		return out
	case runtime.ContentStructure:
		out := make(map[string]any, len(c.Fields))
		for _, f := range c.Fields {
			out[f.Key] = ToValue(f.Value)
		}
		return out
	default:
		return nil
	}
}

// Encode serializes runtime content to JSON.
func Encode(c runtime.Content) ([]byte, error) {
	b, err := json.Marshal(ToValue(c))
	if err != nil {
		return nil, fmt.Errorf("encoding content: %w", err)
	}
	return b, nil
}
