package snapshot

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bianoble/packinstall/internal/lock"
	"github.com/bianoble/packinstall/internal/schema"
)

// SchemaVersion is the only manifest version Load accepts.
const SchemaVersion = 2

// Authority is recorded in every manifest.
const Authority = "lockfile"

//go:embed manifest.schema.json
var manifestSchema []byte

var compiledSchema = schema.MustCompile("manifest.schema.json", manifestSchema)

// Manifest describes one materialized snapshot.
type Manifest struct {
	SchemaVersion int       `json:"schemaVersion"`
	SnapshotID    string    `json:"snapshotId"`
	CreatedAt     time.Time `json:"createdAt"`
	TargetID      string    `json:"targetId"`
	PackID        string    `json:"packId"`
	PackVersion   string    `json:"packVersion"`
	Authority     string    `json:"authority"`
	ArtifactCount int       `json:"artifactCount"`
	Artifacts     []Entry   `json:"artifacts"`
}

// Entry is one artifact captured in a snapshot.
type Entry struct {
	LogicalName  string        `json:"logicalName"`
	Kind         lock.Kind     `json:"kind,omitempty"`
	RelativePath string        `json:"relativePath"`
	Checksum     lock.Checksum `json:"checksum"`
	Size         int64         `json:"size"`
}

// LegacyManifestError is returned for manifests written under an older
// schema. They are never restored from.
type LegacyManifestError struct {
	SnapshotID    string
	SchemaVersion int
}

func (e *LegacyManifestError) Error() string {
	return fmt.Sprintf("snapshot %s uses manifest schema version %d — only version %d can be restored",
		e.SnapshotID, e.SchemaVersion, SchemaVersion)
}

// Encode renders a manifest the way it is stored on disk.
func Encode(m *Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses and validates stored manifest bytes for snapshot id.
func Decode(id string, data []byte) (*Manifest, error) {
	var peek struct {
		SchemaVersion int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return nil, fmt.Errorf("parsing manifest for snapshot %s: %w", id, err)
	}
	if peek.SchemaVersion != SchemaVersion {
		return nil, &LegacyManifestError{SnapshotID: id, SchemaVersion: peek.SchemaVersion}
	}

	if err := schema.ValidateJSON(compiledSchema, data); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest for snapshot %s: %w", id, err)
	}
	if m.SnapshotID != id {
		return nil, fmt.Errorf("snapshot %s: manifest names snapshot '%s'", id, m.SnapshotID)
	}
	if m.ArtifactCount != len(m.Artifacts) {
		return nil, fmt.Errorf("snapshot %s: artifactCount %d does not match %d entries", id, m.ArtifactCount, len(m.Artifacts))
	}
	return &m, nil
}
