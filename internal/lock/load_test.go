package lock

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadValidLockfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock.json")
	if err := os.WriteFile(path, []byte(exampleLockfile), 0644); err != nil {
		t.Fatal(err)
	}

	lf, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(lf.Artifacts) != 3 {
		t.Errorf("artifacts = %d, want 3", len(lf.Artifacts))
	}
}

func TestLoadDoesNotModifyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock.json")
	if err := os.WriteFile(path, []byte(exampleLockfile), 0444); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != exampleLockfile {
		t.Error("lockfile bytes changed after Load")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/pack/lock.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist cause, got %v", err)
	}
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse([]byte("{not json"))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseSchemaViolation(t *testing.T) {
	input := `{"schemaVersion": 1, "packId": "p", "targetId": "t", "artifacts": [
	  {"name": "a", "kind": "library", "url": "https://x", "path": "a.jar",
	   "checksum": {"algorithm": "md5", "value": "abc"}}]}`
	_, err := Parse([]byte(input))
	if err == nil {
		t.Fatal("expected schema error")
	}
	if !strings.Contains(err.Error(), "schema validation failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseRuntimeNeedsNoChecksum(t *testing.T) {
	input := `{"schemaVersion": 1, "packId": "p", "targetId": "t", "artifacts": [
	  {"name": "jre", "kind": "managed-runtime"}]}`
	lf, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !lf.Artifacts[0].IsRuntime() {
		t.Error("expected runtime artifact")
	}
}

func TestValidateVersionInvalid(t *testing.T) {
	lf := &Lockfile{SchemaVersion: 99, PackID: "p", TargetID: "t"}
	errs := Validate(lf)
	if !containsSubstring(errs, "unsupported schemaVersion") {
		t.Errorf("expected version error, got: %v", errs)
	}
}

func TestValidateDuplicateNames(t *testing.T) {
	lf := validLockfile()
	lf.Artifacts = append(lf.Artifacts, lf.Artifacts[0])
	lf.Artifacts[1].Path = "other.jar"
	errs := Validate(lf)
	if !containsSubstring(errs, "duplicate artifact name") {
		t.Errorf("expected duplicate name error, got: %v", errs)
	}
}

func TestValidateDuplicatePaths(t *testing.T) {
	lf := validLockfile()
	second := lf.Artifacts[0]
	second.Name = "b"
	lf.Artifacts = append(lf.Artifacts, second)
	errs := Validate(lf)
	if !containsSubstring(errs, "already used by artifact 'a'") {
		t.Errorf("expected duplicate path error, got: %v", errs)
	}
}

func TestValidateRejectsEscapingPaths(t *testing.T) {
	for _, p := range []string{"../escape.jar", "/abs/path.jar", "a/../../b.jar", "a/./b.jar"} {
		lf := validLockfile()
		lf.Artifacts[0].Path = p
		errs := Validate(lf)
		if !containsSubstring(errs, "clean relative path") {
			t.Errorf("path %q: expected path error, got: %v", p, errs)
		}
	}
}

func TestValidateChecksumShape(t *testing.T) {
	tests := []struct {
		name  string
		sum   Checksum
		error string
	}{
		{"wrong length", Checksum{Algorithm: "sha1", Value: "abc"}, "must be 40 hex characters"},
		{"uppercase", Checksum{Algorithm: "sha1", Value: strings.ToUpper("2aae6c35c94fcfb415dbe95f408b9ce91ee846ed")}, "lowercase hex"},
		{"unknown algorithm", Checksum{Algorithm: "md5", Value: "abc"}, "unsupported checksum algorithm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lf := validLockfile()
			lf.Artifacts[0].Checksum = tt.sum
			errs := Validate(lf)
			if !containsSubstring(errs, tt.error) {
				t.Errorf("expected %q, got: %v", tt.error, errs)
			}
		})
	}
}

func TestValidateUnknownKind(t *testing.T) {
	lf := validLockfile()
	lf.Artifacts[0].Kind = "plugin"
	errs := Validate(lf)
	if !containsSubstring(errs, "unknown kind 'plugin'") {
		t.Errorf("expected kind error, got: %v", errs)
	}
}

func TestValidateMissingNameShowsIndex(t *testing.T) {
	lf := validLockfile()
	lf.Artifacts[0].Name = ""
	errs := Validate(lf)
	if !containsSubstring(errs, "artifact[0]") {
		t.Errorf("expected error with index prefix, got: %v", errs)
	}
}

func TestValidateValidLockfile(t *testing.T) {
	if errs := Validate(validLockfile()); len(errs) > 0 {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestValidationErrorFormat(t *testing.T) {
	verr := &ValidationError{Errors: []string{"error one", "error two"}}
	msg := verr.Error()
	if !strings.Contains(msg, "lockfile validation failed") {
		t.Errorf("missing header: %s", msg)
	}
	if !strings.Contains(msg, "error one") || !strings.Contains(msg, "error two") {
		t.Errorf("error message missing details: %s", msg)
	}
}

func validLockfile() *Lockfile {
	return &Lockfile{
		SchemaVersion: 1,
		PackID:        "p",
		TargetID:      "t",
		Artifacts: []Artifact{
			{
				Name:     "a",
				Kind:     KindLibrary,
				URL:      "https://example.com/a.jar",
				Path:     "libraries/a.jar",
				Checksum: Checksum{Algorithm: "sha1", Value: "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"},
			},
		},
	}
}

func containsSubstring(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
