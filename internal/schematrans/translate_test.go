package schematrans

import (
	"reflect"
	"testing"

	"github.com/aibridge/aibridge-go/runtime"
)

func translate(t *testing.T, doc string) (runtime.Schema, []runtime.NamedSchema) {
	t.Helper()
	root, deps, err := Translate([]byte(doc))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	return root, deps
}

func TestRequiredDrivesOptionality(t *testing.T) {
	root, _ := translate(t, `{"type":"object","required":["a"],"properties":{"a":{"type":"string"},"b":{"type":"integer"}}}`)
	if root.Kind != runtime.SchemaObject {
		t.Fatalf("root kind = %v, want object", root.Kind)
	}
	if len(root.Properties) != 2 {
		t.Fatalf("got %d properties, want 2", len(root.Properties))
	}
	byName := map[string]runtime.Property{}
	for _, p := range root.Properties {
		byName[p.Name] = p
	}
	if p := byName["a"]; p.Optional {
		t.Errorf("property a should be required")
	}
	if p := byName["b"]; !p.Optional {
		t.Errorf("property b should be optional")
	}
	if byName["b"].Schema.Primitive != runtime.PrimitiveInteger {
		t.Errorf("property b primitive = %v", byName["b"].Schema.Primitive)
	}
}

func TestPropertiesKeepDocumentOrder(t *testing.T) {
	root, _ := translate(t, `{"type":"object","properties":{"zulu":{"type":"string"},"alpha":{"type":"string"},"mike":{"type":"string"}}}`)
	var names []string
	for _, p := range root.Properties {
		names = append(names, p.Name)
	}
	want := []string{"zulu", "alpha", "mike"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("property order = %v, want %v", names, want)
	}
}

func TestAnyOfSingleValueEnumsCollapse(t *testing.T) {
	root, _ := translate(t, `{"anyOf":[{"enum":["x"]},{"enum":["y"]}]}`)
	if root.Kind != runtime.SchemaStringEnum {
		t.Fatalf("root kind = %v, want string enum", root.Kind)
	}
	if !reflect.DeepEqual(root.Choices, []string{"x", "y"}) {
		t.Fatalf("choices = %v", root.Choices)
	}
}

func TestMixedUnionStaysUnion(t *testing.T) {
	root, _ := translate(t, `{"anyOf":[{"type":"string"},{"type":"integer"}]}`)
	if root.Kind != runtime.SchemaUnion {
		t.Fatalf("root kind = %v, want union", root.Kind)
	}
	if len(root.Variants) != 2 {
		t.Fatalf("got %d variants", len(root.Variants))
	}
	if root.Variants[1].Primitive != runtime.PrimitiveInteger {
		t.Fatalf("second variant = %+v", root.Variants[1])
	}
}

func TestStringEnum(t *testing.T) {
	root, _ := translate(t, `{"enum":["red","green","blue"]}`)
	if root.Kind != runtime.SchemaStringEnum {
		t.Fatalf("root kind = %v", root.Kind)
	}
	if !reflect.DeepEqual(root.Choices, []string{"red", "green", "blue"}) {
		t.Fatalf("choices = %v", root.Choices)
	}
}

func TestAbsentTypeDegradesToString(t *testing.T) {
	root, _ := translate(t, `{"description":"anything"}`)
	if root.Kind != runtime.SchemaPrimitive || root.Primitive != runtime.PrimitiveString {
		t.Fatalf("root = %+v, want string primitive", root)
	}
}

func TestUnknownTypeDegradesToString(t *testing.T) {
	root, _ := translate(t, `{"type":"frobnicate"}`)
	if root.Kind != runtime.SchemaPrimitive || root.Primitive != runtime.PrimitiveString {
		t.Fatalf("root = %+v, want string primitive", root)
	}
}

func TestArrayBoundsAndDefaultElement(t *testing.T) {
	root, _ := translate(t, `{"type":"array","minItems":1,"maxItems":5}`)
	if root.Kind != runtime.SchemaArray {
		t.Fatalf("root kind = %v", root.Kind)
	}
	if root.Element.Primitive != runtime.PrimitiveString {
		t.Fatalf("default element = %+v", root.Element)
	}
	if root.MinItems == nil || *root.MinItems != 1 || root.MaxItems == nil || *root.MaxItems != 5 {
		t.Fatalf("bounds = %v..%v", root.MinItems, root.MaxItems)
	}

	root, _ = translate(t, `{"type":"array","items":{"type":"boolean"}}`)
	if root.Element.Primitive != runtime.PrimitiveBoolean {
		t.Fatalf("element = %+v", root.Element)
	}
	if root.MinItems != nil || root.MaxItems != nil {
		t.Fatalf("unexpected bounds %v..%v", root.MinItems, root.MaxItems)
	}
}

func TestRootReferenceIntoDefinitions(t *testing.T) {
	doc := `{
		"$ref": "#/definitions/Person",
		"definitions": {
			"Person": {"type":"object","title":"Person","required":["name"],"properties":{"name":{"type":"string"},"pet":{"$ref":"#/definitions/Pet"}}},
			"Pet": {"type":"object","properties":{"kind":{"type":"string"}}},
			"Color": {"enum":["red","blue"]}
		}
	}`
	root, deps := translate(t, doc)
	if root.Kind != runtime.SchemaObject || root.Name != "Person" {
		t.Fatalf("root = %+v", root)
	}

	// Dependencies are every other definition, name-ordered.
	var names []string
	for _, d := range deps {
		names = append(names, d.Name)
	}
	if !reflect.DeepEqual(names, []string{"Color", "Pet"}) {
		t.Fatalf("dependency names = %v", names)
	}

	// The emitted reference resolves within the dependency set.
	var petRef *runtime.Schema
	for _, p := range root.Properties {
		if p.Name == "pet" {
			petRef = &p.Schema
		}
	}
	if petRef == nil || petRef.Kind != runtime.SchemaReference || petRef.Ref != "Pet" {
		t.Fatalf("pet property = %+v", petRef)
	}
	found := false
	for _, d := range deps {
		if d.Name == petRef.Ref {
			found = true
		}
	}
	if !found {
		t.Fatalf("reference %q not in dependency set", petRef.Ref)
	}
}

func TestMutuallyRecursiveDefinitions(t *testing.T) {
	doc := `{
		"$ref": "#/$defs/Node",
		"$defs": {
			"Node": {"type":"object","properties":{"edges":{"type":"array","items":{"$ref":"#/$defs/Edge"}}}},
			"Edge": {"type":"object","properties":{"to":{"$ref":"#/$defs/Node"}}}
		}
	}`
	root, deps := translate(t, doc)
	if root.Kind != runtime.SchemaObject || root.Name != "Node" {
		t.Fatalf("root = %+v", root)
	}
	if len(deps) != 1 || deps[0].Name != "Edge" {
		t.Fatalf("deps = %+v", deps)
	}
	to, _ := findProperty(deps[0].Schema, "to")
	if to.Schema.Kind != runtime.SchemaReference || to.Schema.Ref != "Node" {
		t.Fatalf("Edge.to = %+v", to.Schema)
	}
}

func TestTitleNamesRootObject(t *testing.T) {
	root, _ := translate(t, `{"type":"object","title":"WeatherReport","properties":{}}`)
	if root.Name != "WeatherReport" {
		t.Fatalf("root name = %q", root.Name)
	}
}

func TestUnparseableDocumentErrors(t *testing.T) {
	if _, _, err := Translate([]byte(`{`)); err == nil {
		t.Fatal("expected error for unparseable document")
	}
}

func findProperty(s runtime.Schema, name string) (runtime.Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return runtime.Property{}, false
}
