// Package schematrans translates JSON Schema documents into the runtime's
// native schema representation.
//
// Translation is one-way (the wire format never needs the reverse direction)
// and degrades rather than fails: unrecognized nodes become string
// primitives, and only an unparseable document yields an error. Internal
// definitions become a named dependency set so mutually recursive object
// graphs survive translation; every reference the translator emits resolves
// within that set.
package schematrans

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/aibridge/aibridge-go/runtime"
)

// schemaDoc is the subset of JSON Schema the translator understands. The
// properties map preserves document declaration order; everything the struct
// does not capture is ignored, which is what lets unknown constructs degrade
// instead of erroring.
type schemaDoc struct {
	Ref         string                                        `json:"$ref,omitempty"`
	Type        string                                        `json:"type,omitempty"`
	Title       string                                        `json:"title,omitempty"`
	Description string                                        `json:"description,omitempty"`
	Enum        []any                                         `json:"enum,omitempty"`
	AnyOf       []*schemaDoc                                  `json:"anyOf,omitempty"`
	OneOf       []*schemaDoc                                  `json:"oneOf,omitempty"`
	Items       *schemaDoc                                    `json:"items,omitempty"`
	MinItems    *int                                          `json:"minItems,omitempty"`
	MaxItems    *int                                          `json:"maxItems,omitempty"`
	Properties  *orderedmap.OrderedMap[string, *schemaDoc]    `json:"properties,omitempty"`
	Required    []string                                      `json:"required,omitempty"`
	Definitions map[string]*schemaDoc                         `json:"definitions,omitempty"`
	Defs        map[string]*schemaDoc                         `json:"$defs,omitempty"`
}

// Translate converts a JSON Schema document into a root runtime schema plus
// the named dependency set its references resolve against. Dependencies are
// returned in ascending name order. The only error condition is a document
// that does not parse as JSON.
func Translate(doc []byte) (runtime.Schema, []runtime.NamedSchema, error) {
	var d schemaDoc
	if err := json.Unmarshal(doc, &d); err != nil {
		return runtime.Schema{}, nil, fmt.Errorf("parsing schema document: %w", err)
	}

	defs := d.definitions()

	// A bare reference into the definitions map makes the referenced entry
	// the root; every other entry becomes a dependency.
	if name := refName(d.Ref); name != "" {
		if target, ok := defs[name]; ok {
			root := convert(target, name)
			return root, dependencies(defs, name), nil
		}
	}

	root := convert(&d, d.Title)
	return root, dependencies(defs, ""), nil
}

func (d *schemaDoc) definitions() map[string]*schemaDoc {
	if d.Definitions == nil && d.Defs == nil {
		return nil
	}
	out := make(map[string]*schemaDoc, len(d.Definitions)+len(d.Defs))
	for k, v := range d.Definitions {
		out[k] = v
	}
	for k, v := range d.Defs {
		out[k] = v
	}
	return out
}

func dependencies(defs map[string]*schemaDoc, rootName string) []runtime.NamedSchema {
	if len(defs) == 0 {
		return nil
	}
	names := make([]string, 0, len(defs))
	for name := range defs {
		if name == rootName {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]runtime.NamedSchema, 0, len(names))
	for _, name := range names {
		out = append(out, runtime.NamedSchema{Name: name, Schema: convert(defs[name], name)})
	}
	return out
}

// refName extracts the definition name from a reference of the form
// "#/definitions/Name" or "#/$defs/Name". Other forms yield "".
func refName(ref string) string {
	for _, prefix := range []string{"#/definitions/", "#/$defs/"} {
		if name, ok := strings.CutPrefix(ref, prefix); ok && name != "" && !strings.Contains(name, "/") {
			return name
		}
	}
	return ""
}

// convert translates one node. The per-node rules apply in priority order;
// anything unrecognized degrades to a string primitive.
func convert(d *schemaDoc, name string) runtime.Schema {
	if d == nil {
		return runtime.PrimitiveSchema(runtime.PrimitiveString)
	}

	if ref := refName(d.Ref); ref != "" {
		return runtime.ReferenceSchema(ref)
	}

	if branches := union(d); len(branches) > 0 {
		if choices, ok := singleValueEnums(branches); ok {
			return runtime.StringEnumSchema(choices...)
		}
		variants := make([]runtime.Schema, len(branches))
		for i, b := range branches {
			variants[i] = convert(b, "")
		}
		return runtime.UnionSchema(variants...)
	}

	if choices := stringEnum(d.Enum); len(choices) > 0 {
		return runtime.StringEnumSchema(choices...)
	}

	switch d.Type {
	case "":
		return runtime.PrimitiveSchema(runtime.PrimitiveString)
	case "array":
		element := runtime.PrimitiveSchema(runtime.PrimitiveString)
		if d.Items != nil {
			element = convert(d.Items, "")
		}
		return runtime.ArraySchema(element, d.MinItems, d.MaxItems)
	case "object":
		return convertObject(d, name)
	case "string":
		return runtime.PrimitiveSchema(runtime.PrimitiveString)
	case "number":
		return runtime.PrimitiveSchema(runtime.PrimitiveNumber)
	case "integer":
		return runtime.PrimitiveSchema(runtime.PrimitiveInteger)
	case "boolean":
		return runtime.PrimitiveSchema(runtime.PrimitiveBoolean)
	default:
		return runtime.PrimitiveSchema(runtime.PrimitiveString)
	}
}

func convertObject(d *schemaDoc, name string) runtime.Schema {
	if d.Title != "" {
		name = d.Title
	}
	required := make(map[string]bool, len(d.Required))
	for _, r := range d.Required {
		required[r] = true
	}
	var props []runtime.Property
	if d.Properties != nil {
		props = make([]runtime.Property, 0, d.Properties.Len())
		for el := d.Properties.Oldest(); el != nil; el = el.Next() {
			desc := ""
			if el.Value != nil {
				desc = el.Value.Description
			}
			props = append(props, runtime.Property{
				Name:        el.Key,
				Schema:      convert(el.Value, el.Key),
				Optional:    !required[el.Key],
				Description: desc,
			})
		}
	}
	return runtime.ObjectSchema(name, props...)
}

func union(d *schemaDoc) []*schemaDoc {
	if len(d.AnyOf) > 0 {
		return d.AnyOf
	}
	return d.OneOf
}

// singleValueEnums reports whether every branch is a single-valued string
// enumeration, returning the flattened choices when so.
func singleValueEnums(branches []*schemaDoc) ([]string, bool) {
	choices := make([]string, 0, len(branches))
	for _, b := range branches {
		if b == nil || b.Ref != "" || len(b.Enum) != 1 {
			return nil, false
		}
		s, ok := b.Enum[0].(string)
		if !ok {
			return nil, false
		}
		choices = append(choices, s)
	}
	return choices, true
}

func stringEnum(enum []any) []string {
	var out []string
	for _, v := range enum {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
