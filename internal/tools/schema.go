package tools

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// objectSchema builds an object schema from its properties. Names listed in
// required must be present.
func objectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func stringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func enumProp(description string, values ...string) *jsonschema.Schema {
	enum := make([]any, 0, len(values))
	for _, v := range values {
		enum = append(enum, v)
	}

	return &jsonschema.Schema{Type: "string", Description: description, Enum: enum}
}

func numberProp(description string, minimum float64) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Description: description, Minimum: &minimum}
}

func integerProp(description string, minimum float64) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description, Minimum: &minimum}
}

func boolProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: description}
}

func arrayProp(description string, items *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: description, Items: items}
}

// elementProps are the properties shared by tools that act on one element
// of the page snapshot.
func elementProps(extra map[string]*jsonschema.Schema) map[string]*jsonschema.Schema {
	props := map[string]*jsonschema.Schema{
		"element": stringProp("Human-readable element description used to obtain permission to interact with the element"),
		"ref":     stringProp("Exact target element reference from the page snapshot"),
	}

	for name, s := range extra {
		props[name] = s
	}

	return props
}
