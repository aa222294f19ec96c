package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/bianoble/packinstall/internal/checksum"
)

func digestOf(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

func writeSrc(t *testing.T, content []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "src.bin")
	if err := os.WriteFile(p, content, 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPutAndCopyTo(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	content := []byte("hello world")
	digest := digestOf(content)

	if putErr := c.PutFile(checksum.SHA256, digest, writeSrc(t, content)); putErr != nil {
		t.Fatalf("PutFile: %v", putErr)
	}

	dest := filepath.Join(t.TempDir(), "a", "b.bin")
	hit, err := c.CopyTo(checksum.SHA256, digest, int64(len(content)), dest)
	if err != nil {
		t.Fatalf("CopyTo: %v", err)
	}
	if !hit {
		t.Fatal("expected cache hit")
	}
	got, _ := os.ReadFile(dest)
	if string(got) != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestCopyToMiss(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "x")
	hit, err := c.CopyTo(checksum.SHA256, digestOf([]byte("absent")), 0, dest)
	if err != nil {
		t.Fatalf("CopyTo: %v", err)
	}
	if hit {
		t.Fatal("expected cache miss")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("dest should not be created on a miss")
	}
}

func TestPutWrongDigest(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	err = c.PutFile(checksum.SHA256, digestOf([]byte("other")), writeSrc(t, []byte("content")))
	if err == nil {
		t.Fatal("expected error for digest mismatch")
	}
}

func TestPutIdempotent(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	content := []byte("idempotent")
	digest := digestOf(content)
	src := writeSrc(t, content)

	// Put twice, should not error.
	if putErr := c.PutFile(checksum.SHA256, digest, src); putErr != nil {
		t.Fatalf("first Put: %v", putErr)
	}
	if putErr := c.PutFile(checksum.SHA256, digest, src); putErr != nil {
		t.Fatalf("second Put: %v", putErr)
	}
}

func TestCorruptCacheEntry(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	content := []byte("original content")
	digest := digestOf(content)
	if putErr := c.PutFile(checksum.SHA256, digest, writeSrc(t, content)); putErr != nil {
		t.Fatal(putErr)
	}

	// Corrupt the cache entry.
	objPath := c.objectPath(checksum.SHA256, digest)
	if writeErr := os.WriteFile(objPath, []byte("corrupted"), 0644); writeErr != nil {
		t.Fatal(writeErr)
	}

	// CopyTo should detect corruption and return miss (self-healing).
	dest := filepath.Join(t.TempDir(), "out")
	hit, err := c.CopyTo(checksum.SHA256, digest, 0, dest)
	if err != nil {
		t.Fatalf("CopyTo should not error on corruption: %v", err)
	}
	if hit {
		t.Fatal("expected cache miss after corruption")
	}

	// Corrupt file should be cleaned up.
	if _, statErr := os.Stat(objPath); !os.IsNotExist(statErr) {
		t.Error("corrupt cache entry should be removed")
	}
}

func TestHas(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	content := []byte("exists")
	digest := digestOf(content)

	if c.Has(checksum.SHA256, digest) {
		t.Fatal("expected Has=false before Put")
	}
	if putErr := c.PutFile(checksum.SHA256, digest, writeSrc(t, content)); putErr != nil {
		t.Fatal(putErr)
	}
	if !c.Has(checksum.SHA256, digest) {
		t.Fatal("expected Has=true after Put")
	}
	if c.Has(checksum.SHA1, digest) {
		t.Fatal("objects are keyed by algorithm")
	}
}

func TestSize(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	content := []byte("some content for size test")
	if putErr := c.PutFile(checksum.SHA256, digestOf(content), writeSrc(t, content)); putErr != nil {
		t.Fatal(putErr)
	}

	size, err := c.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != int64(len(content)) {
		t.Errorf("size = %d, want %d", size, len(content))
	}
}

func TestPath(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	if c.Path() != dir {
		t.Errorf("Path = %q, want %q", c.Path(), dir)
	}
}

func TestDefaultDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/custom/cache")
	want := filepath.Join("/custom/cache", "packinstall")
	if got := DefaultDir(); got != want {
		t.Errorf("with XDG_CACHE_HOME: got %q, want %q", got, want)
	}
}

func TestObjectPathLayout(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	digest := "abcdef1234567890"
	// Should use algorithm then first 2 chars as subdirectories.
	expected := filepath.Join(dir, "objects", "sha1", "ab", digest)
	if path := c.objectPath(checksum.SHA1, digest); path != expected {
		t.Errorf("objectPath = %q, want %q", path, expected)
	}

	// Digest with fewer than 2 characters should not use subdirectory.
	expected = filepath.Join(dir, "objects", "sha1", "a")
	if path := c.objectPath(checksum.SHA1, "a"); path != expected {
		t.Errorf("objectPath(%q) = %q, want %q", "a", path, expected)
	}
}

func TestNewCreatesDirError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("test unreliable as root")
	}

	dir := t.TempDir()
	readOnly := filepath.Join(dir, "readonly")
	if err := os.MkdirAll(readOnly, 0555); err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = os.Chmod(readOnly, 0755)
	}()

	_, err := New(filepath.Join(readOnly, "nested", "cache"))
	if err == nil {
		t.Fatal("expected error creating cache in read-only dir")
	}
}
