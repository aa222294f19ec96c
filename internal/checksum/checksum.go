package checksum

import (
	"crypto/sha1" //nolint:gosec // sha1 is pinned by upstream lockfiles, not used for security decisions
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// Algorithm names a digest function accepted in lockfiles.
type Algorithm string

const (
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
)

// New returns a fresh hash for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case SHA1:
		return sha1.New(), nil //nolint:gosec
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm '%s' — must be one of: sha1, sha256", a)
	}
}

// HexLen returns the length of a hex-encoded digest, or 0 for unknown algorithms.
func (a Algorithm) HexLen() int {
	switch a {
	case SHA1:
		return sha1.Size * 2
	case SHA256:
		return sha256.Size * 2
	default:
		return 0
	}
}

// Reader digests everything readable from r.
func Reader(r io.Reader, algo Algorithm) (string, int64, error) {
	h, err := algo.New()
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// File streams the file at path through the digest and returns the hex
// value together with the number of bytes read.
func File(path string, algo Algorithm) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	sum, n, err := Reader(f, algo)
	if err != nil {
		return "", n, fmt.Errorf("hashing %s: %w", path, err)
	}
	return sum, n, nil
}

// Observation records what was found on disk for a single file.
type Observation struct {
	Algorithm Algorithm
	Digest    string
	Size      int64
}

// MismatchError reports a file whose size or digest differs from the pinned value.
type MismatchError struct {
	Path         string
	Algorithm    Algorithm
	Expected     string
	Actual       string
	ExpectedSize int64
	ActualSize   int64
}

func (e *MismatchError) Error() string {
	if e.ExpectedSize > 0 && e.ExpectedSize != e.ActualSize {
		return fmt.Sprintf("size mismatch for %s: expected %d bytes, got %d", e.Path, e.ExpectedSize, e.ActualSize)
	}
	return fmt.Sprintf("%s mismatch for %s: expected %s, got %s", e.Algorithm, e.Path, e.Expected, e.Actual)
}

// Verify digests path and compares it against want. A size of 0 means the
// size is not declared and only the digest is compared. The returned
// Observation is populated whenever the file could be read, including on
// mismatch.
func Verify(path string, algo Algorithm, want string, size int64) (Observation, error) {
	sum, n, err := File(path, algo)
	if err != nil {
		return Observation{Algorithm: algo}, err
	}
	obs := Observation{Algorithm: algo, Digest: sum, Size: n}
	if (size > 0 && n != size) || sum != want {
		return obs, &MismatchError{
			Path:         path,
			Algorithm:    algo,
			Expected:     want,
			Actual:       sum,
			ExpectedSize: size,
			ActualSize:   n,
		}
	}
	return obs, nil
}

// Short truncates a hex digest for log output.
func Short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
