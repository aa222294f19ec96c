package schema

import (
	"strings"
	"testing"
)

const testSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {"name": {"type": "string"}},
  "required": ["name"]
}`

func TestValidateJSON(t *testing.T) {
	s, err := Compile("test", []byte(testSchema))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := ValidateJSON(s, []byte(`{"name":"ok"}`)); err != nil {
		t.Fatalf("expected valid document: %v", err)
	}
	err = ValidateJSON(s, []byte(`{"nope":"bad"}`))
	if err == nil {
		t.Fatal("expected schema validation error")
	}
	if !strings.Contains(err.Error(), "schema validation failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateJSONBadPayload(t *testing.T) {
	s := MustCompile("test", []byte(testSchema))
	if err := ValidateJSON(s, []byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCompileEmpty(t *testing.T) {
	if _, err := Compile("empty", nil); err == nil {
		t.Fatal("expected error for empty schema")
	}
}

func TestSchemaID(t *testing.T) {
	if got := schemaID(""); got != "inmemory://schema" {
		t.Errorf("schemaID(\"\") = %q", got)
	}
	if got := schemaID("lock"); got != "inmemory://lock" {
		t.Errorf("schemaID(lock) = %q", got)
	}
}
