package ai

import "context"

// TextGenerator generates free-form text from a system prompt and user
// prompt. All providers (Gemini, OpenAI-compatible) implement this.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// StructuredGenerator generates a JSON payload constrained by a schema
// and decodes it into out.
type StructuredGenerator interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, schema *Schema, out any) error
}

// Generator combines free-form and structured generation. The gateway
// depends on this pair; a nil Generator means no credential is
// configured and every call site degrades to its fallback.
type Generator interface {
	TextGenerator
	StructuredGenerator
}

// Schema describes the expected structured output. It maps onto the
// provider's response-schema dialect (uppercase type names for Gemini).
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
}

const (
	TypeObject = "OBJECT"
	TypeArray  = "ARRAY"
	TypeString = "STRING"
	TypeNumber = "NUMBER"
)

// Object builds an object schema from property schemas.
func Object(props map[string]*Schema) *Schema {
	return &Schema{Type: TypeObject, Properties: props}
}

// Array builds an array schema with the given item type.
func Array(items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items}
}

// String and Number are leaf schemas.
func String() *Schema { return &Schema{Type: TypeString} }
func Number() *Schema { return &Schema{Type: TypeNumber} }
