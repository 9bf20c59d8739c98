package runtime

// ContentKind discriminates the Content variant.
type ContentKind int

const (
	ContentNull ContentKind = iota
	ContentBool
	ContentNumber
	ContentString
	ContentArray
	ContentStructure
)

// Content is the runtime's structured-content representation: the shape of
// schema-constrained generation results and of tool-call arguments. It is a
// tagged variant; only the fields relevant to Kind are set.
//
// Numbers keep their integral/floating classification so scalar values
// round-trip through the JSON codec without precision loss.
type Content struct {
	Kind ContentKind

	Bool bool

	// Int holds the value when Integral is true, Float otherwise.
	Int      int64
	Float    float64
	Integral bool

	Str string

	Items []Content

	// Fields is an arbitrary-length ordered list of key/value pairs. When a
	// structure is built from JSON, fields are sorted by key ascending so
	// construction is deterministic regardless of map iteration order.
	Fields []Field
}

// Field is one ordered key/value pair of a structure.
type Field struct {
	Key   string
	Value Content
}

// NullContent returns the null content value.
func NullContent() Content { return Content{Kind: ContentNull} }

// BoolContent wraps a boolean.
func BoolContent(b bool) Content { return Content{Kind: ContentBool, Bool: b} }

// IntContent wraps an integral number.
func IntContent(i int64) Content {
	return Content{Kind: ContentNumber, Int: i, Integral: true}
}

// FloatContent wraps a floating-point number.
func FloatContent(f float64) Content {
	return Content{Kind: ContentNumber, Float: f}
}

// StringContent wraps a string.
func StringContent(s string) Content { return Content{Kind: ContentString, Str: s} }

// ArrayContent wraps an ordered list of children.
func ArrayContent(items ...Content) Content {
	return Content{Kind: ContentArray, Items: items}
}

// StructureContent builds a structure from an ordered list of fields.
func StructureContent(fields ...Field) Content {
	return Content{Kind: ContentStructure, Fields: fields}
}

// Field returns the value for key and whether it is present.
func (c Content) Field(key string) (Content, bool) {
	if c.Kind != ContentStructure {
		return Content{}, false
	}
	for _, f := range c.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Content{}, false
}
