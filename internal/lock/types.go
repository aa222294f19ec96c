package lock

import (
	"time"

	"github.com/bianoble/packinstall/internal/checksum"
)

// SupportedSchemaVersion is the only lockfile schema this installer reads.
const SupportedSchemaVersion = 1

// Lockfile is the immutable manifest stored at pack/lock.json.
// It is produced upstream and only ever read here.
type Lockfile struct {
	SchemaVersion int        `json:"schemaVersion"`
	PackID        string     `json:"packId"`
	PackVersion   string     `json:"packVersion,omitempty"`
	TargetID      string     `json:"targetId"`
	GeneratedAt   time.Time  `json:"generatedAt"`
	Artifacts     []Artifact `json:"artifacts"`
}

// Kind classifies an artifact.
type Kind string

const (
	KindVersionDescriptor Kind = "version-descriptor"
	KindPrimaryBinary     Kind = "primary-binary"
	KindAssetIndex        Kind = "asset-index"
	KindAsset             Kind = "asset"
	KindLibrary           Kind = "library"
	KindNativeBundle      Kind = "native-bundle"
	KindManagedRuntime    Kind = "managed-runtime"
)

// Kinds lists every kind a lockfile may declare, in documentation order.
var Kinds = []Kind{
	KindVersionDescriptor,
	KindPrimaryBinary,
	KindAssetIndex,
	KindAsset,
	KindLibrary,
	KindNativeBundle,
	KindManagedRuntime,
}

// Artifact is one pinned entry of the lockfile.
type Artifact struct {
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	URL      string   `json:"url,omitempty"`
	Path     string   `json:"path,omitempty"`
	Checksum Checksum `json:"checksum"`

	// Size is the declared byte size. Zero means undeclared.
	Size int64 `json:"size,omitempty"`
}

// Checksum pins the content of an artifact.
type Checksum struct {
	Algorithm checksum.Algorithm `json:"algorithm"`
	Value     string             `json:"value"`
}

// IsRuntime reports whether the artifact is a managed runtime.
func (a Artifact) IsRuntime() bool {
	return a.Kind == KindManagedRuntime
}

// Installable returns the artifacts the installer acts on, in lockfile order.
func (lf *Lockfile) Installable() []Artifact {
	out := make([]Artifact, 0, len(lf.Artifacts))
	for _, a := range lf.Artifacts {
		if a.IsRuntime() {
			continue
		}
		out = append(out, a)
	}
	return out
}
