package classifier

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const responseSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "email", "phone", "location", "score", "parsedText", "skills", "experienceYears", "jobTitle", "education"],
  "properties": {
    "name": {"type": "string"},
    "email": {"type": "string"},
    "phone": {"type": "string"},
    "location": {"type": "string"},
    "score": {"type": "number", "minimum": 0, "maximum": 100},
    "parsedText": {"type": "string"},
    "skills": {"type": "array", "items": {"type": "string"}},
    "experienceYears": {"type": "number", "minimum": 0},
    "jobTitle": {"type": "string"},
    "education": {"type": "string"}
  }
}`

// responseSchema describes the object the prompt asks the model to return.
// Mismatches are only reported: the normalizer repairs individual fields.
type responseSchema struct {
	schema *jsonschema.Schema
}

func compileResponseSchema() (*responseSchema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("response.json", strings.NewReader(responseSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add response schema: %w", err)
	}

	schema, err := compiler.Compile("response.json")
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}

	return &responseSchema{schema: schema}, nil
}

func (s *responseSchema) validate(data map[string]any) error {
	if s == nil || s.schema == nil {
		return nil
	}
	if err := s.schema.Validate(data); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}
