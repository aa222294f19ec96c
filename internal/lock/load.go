package lock

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bianoble/packinstall/internal/schema"
)

//go:embed lockfile.schema.json
var lockfileSchema []byte

var compiledSchema = schema.MustCompile("lockfile.schema.json", lockfileSchema)

// Load reads and validates a pack lockfile. The file is opened read-only;
// nothing in this module writes lockfiles.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lockfile %s: %w", path, err)
	}
	lf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("lockfile %s: %w", path, err)
	}
	return lf, nil
}

// Parse decodes and validates lockfile bytes.
func Parse(data []byte) (*Lockfile, error) {
	if err := schema.ValidateJSON(compiledSchema, data); err != nil {
		return nil, &ValidationError{Errors: []string{err.Error()}}
	}

	var lf Lockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing lockfile: %w", err)
	}

	if errs := Validate(&lf); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return &lf, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("lockfile validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Lockfile for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(lf *Lockfile) []string {
	var errs []string

	if lf.SchemaVersion != SupportedSchemaVersion {
		errs = append(errs, fmt.Sprintf("unsupported schemaVersion %d — only version %d is supported", lf.SchemaVersion, SupportedSchemaVersion))
	}
	if lf.PackID == "" {
		errs = append(errs, "'packId' is required")
	}
	if lf.TargetID == "" {
		errs = append(errs, "'targetId' is required")
	}

	names := make(map[string]bool)
	paths := make(map[string]string)
	for i, a := range lf.Artifacts {
		prefix := fmt.Sprintf("artifact[%d]", i)
		if a.Name != "" {
			prefix = fmt.Sprintf("artifact '%s'", a.Name)
		}

		if a.Name == "" {
			errs = append(errs, fmt.Sprintf("%s: 'name' is required", prefix))
		} else if names[a.Name] {
			errs = append(errs, fmt.Sprintf("%s: duplicate artifact name '%s'", prefix, a.Name))
		} else {
			names[a.Name] = true
		}

		if !knownKind(a.Kind) {
			errs = append(errs, fmt.Sprintf("%s: unknown kind '%s'", prefix, a.Kind))
			continue
		}
		if a.IsRuntime() {
			// Rejected with guidance at install time, not here.
			continue
		}

		if a.URL == "" {
			errs = append(errs, fmt.Sprintf("%s: 'url' is required", prefix))
		}
		errs = append(errs, validatePath(a, prefix, paths)...)
		errs = append(errs, validateChecksum(a.Checksum, prefix)...)

		if a.Size < 0 {
			errs = append(errs, fmt.Sprintf("%s: 'size' must not be negative", prefix))
		}
	}

	return errs
}

func knownKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func validatePath(a Artifact, prefix string, seen map[string]string) []string {
	if a.Path == "" {
		return []string{fmt.Sprintf("%s: 'path' is required", prefix)}
	}
	native := filepath.FromSlash(a.Path)
	if !filepath.IsLocal(native) || filepath.Clean(native) != native {
		return []string{fmt.Sprintf("%s: path '%s' must be a clean relative path inside the instance", prefix, a.Path)}
	}
	if other, dup := seen[a.Path]; dup {
		return []string{fmt.Sprintf("%s: path '%s' is already used by artifact '%s'", prefix, a.Path, other)}
	}
	seen[a.Path] = a.Name
	return nil
}

func validateChecksum(c Checksum, prefix string) []string {
	want := c.Algorithm.HexLen()
	if want == 0 {
		return []string{fmt.Sprintf("%s: unsupported checksum algorithm '%s' — must be one of: sha1, sha256", prefix, c.Algorithm)}
	}
	if len(c.Value) != want {
		return []string{fmt.Sprintf("%s: %s checksum must be %d hex characters, got %d", prefix, c.Algorithm, want, len(c.Value))}
	}
	for _, r := range c.Value {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return []string{fmt.Sprintf("%s: checksum must be lowercase hex", prefix)}
		}
	}
	return nil
}
