package runtime

// SchemaKind discriminates the Schema variant.
type SchemaKind int

const (
	// SchemaReference names a schema resolved from the accompanying
	// dependency set at generation time.
	SchemaReference SchemaKind = iota
	// SchemaStringEnum constrains output to one of a fixed set of strings.
	SchemaStringEnum
	// SchemaUnion allows any one of several alternative schemas.
	SchemaUnion
	// SchemaPrimitive is a scalar: string, number, integer or boolean.
	SchemaPrimitive
	// SchemaArray is a homogeneous list with optional count bounds.
	SchemaArray
	// SchemaObject is a named record with ordered properties.
	SchemaObject
)

// PrimitiveType identifies a scalar schema type.
type PrimitiveType string

const (
	PrimitiveString  PrimitiveType = "string"
	PrimitiveNumber  PrimitiveType = "number"
	PrimitiveInteger PrimitiveType = "integer"
	PrimitiveBoolean PrimitiveType = "boolean"
)

// Schema is the runtime-native structural description constraining generated
// output. It is a tagged variant; only the fields relevant to Kind are set.
type Schema struct {
	Kind SchemaKind

	// Ref is the referenced schema name (SchemaReference).
	Ref string

	// Choices are the allowed values (SchemaStringEnum).
	Choices []string

	// Variants are the alternatives (SchemaUnion).
	Variants []Schema

	// Primitive is the scalar type (SchemaPrimitive).
	Primitive PrimitiveType

	// Element, MinItems and MaxItems describe SchemaArray. Nil bounds mean
	// unbounded.
	Element  *Schema
	MinItems *int
	MaxItems *int

	// Name and Properties describe SchemaObject. Property order follows the
	// source document's declaration order.
	Name       string
	Properties []Property
}

// Property is one ordered field of an object schema.
type Property struct {
	Name        string
	Schema      Schema
	Optional    bool
	Description string
}

// NamedSchema pairs a dependency name with its schema. Every SchemaReference
// emitted by the translator resolves within the dependency set it accompanies.
type NamedSchema struct {
	Name   string
	Schema Schema
}

// ReferenceSchema builds a reference to a named dependency.
func ReferenceSchema(name string) Schema {
	return Schema{Kind: SchemaReference, Ref: name}
}

// StringEnumSchema builds a string enumeration schema.
func StringEnumSchema(choices ...string) Schema {
	return Schema{Kind: SchemaStringEnum, Choices: choices}
}

// UnionSchema builds a union of alternative schemas.
func UnionSchema(variants ...Schema) Schema {
	return Schema{Kind: SchemaUnion, Variants: variants}
}

// PrimitiveSchema builds a scalar schema.
func PrimitiveSchema(t PrimitiveType) Schema {
	return Schema{Kind: SchemaPrimitive, Primitive: t}
}

// ArraySchema builds an array schema. Nil bounds are unbounded.
func ArraySchema(element Schema, minItems, maxItems *int) Schema {
	return Schema{Kind: SchemaArray, Element: &element, MinItems: minItems, MaxItems: maxItems}
}

// ObjectSchema builds a named object schema with ordered properties.
func ObjectSchema(name string, props ...Property) Schema {
	return Schema{Kind: SchemaObject, Name: name, Properties: props}
}

// EmptyObjectSchema is the degradation target when a schema document cannot
// be translated at all: a nameless object with no properties.
func EmptyObjectSchema() Schema {
	return Schema{Kind: SchemaObject}
}
