package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Compile compiles an embedded JSON Schema document under an in-memory id.
func Compile(id string, raw []byte) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("schema is empty")
	}
	resourceID := schemaID(id)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceID, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resourceID)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}

// MustCompile is Compile for schemas embedded at build time.
func MustCompile(id string, raw []byte) *jsonschema.Schema {
	s, err := Compile(id, raw)
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", id, err))
	}
	return s
}

// ValidateJSON decodes doc and validates it against the compiled schema.
func ValidateJSON(s *jsonschema.Schema, doc []byte) error {
	var payload any
	if err := json.Unmarshal(doc, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := s.Validate(payload); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func schemaID(id string) string {
	if id == "" {
		id = "schema"
	}
	return "inmemory://" + id
}
