package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bianoble/packinstall/internal/checksum"
	"github.com/bianoble/packinstall/internal/layout"
	"github.com/bianoble/packinstall/internal/lock"
)

// Digests of "hello world".
const (
	helloSHA1   = "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"
	helloSHA256 = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
)

var fixedTime = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func testLockfile() *lock.Lockfile {
	return &lock.Lockfile{
		SchemaVersion: 1,
		PackID:        "vanilla",
		PackVersion:   "1.20.4",
		TargetID:      "linux-x64",
		Artifacts: []lock.Artifact{
			{
				Name:     "client",
				Kind:     lock.KindPrimaryBinary,
				URL:      "https://example.com/client.jar",
				Path:     "versions/1.20.4/1.20.4.jar",
				Checksum: lock.Checksum{Algorithm: checksum.SHA1, Value: helloSHA1},
				Size:     11,
			},
			{
				Name:     "asset-index",
				Kind:     lock.KindAssetIndex,
				URL:      "https://example.com/12.json",
				Path:     "assets/indexes/12.json",
				Checksum: lock.Checksum{Algorithm: checksum.SHA256, Value: helloSHA256},
			},
		},
	}
}

func installFinals(t *testing.T, l layout.Layout, lf *lock.Lockfile) {
	t.Helper()
	for _, a := range lf.Artifacts {
		p, err := l.FinalPath(a)
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("hello world"), 0644))
	}
}

func newWriter(l layout.Layout) *Writer {
	return &Writer{Layout: l, Now: func() time.Time { return fixedTime }}
}

func TestManifestGolden(t *testing.T) {
	l := layout.New(t.TempDir())
	lf := testLockfile()
	installFinals(t, l, lf)

	id, err := newWriter(l).Create(context.Background(), lf, lf.Artifacts)
	require.NoError(t, err)
	assert.Equal(t, "20240501T123000.000000000Z-linux-x64", id)

	data, err := os.ReadFile(filepath.Join(l.RollbackRoot(), id, manifestName))
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "manifest", data)
}

func TestCreateMaterializesFiles(t *testing.T) {
	l := layout.New(t.TempDir())
	lf := testLockfile()
	installFinals(t, l, lf)

	id, err := newWriter(l).Create(context.Background(), lf, lf.Artifacts)
	require.NoError(t, err)

	store := &Store{Layout: l}
	m, err := store.Load(id)
	require.NoError(t, err)
	require.Equal(t, 2, m.ArtifactCount)

	for _, e := range m.Artifacts {
		p, err := store.FilePath(id, e.RelativePath)
		require.NoError(t, err)
		_, err = checksum.Verify(p, e.Checksum.Algorithm, e.Checksum.Value, e.Size)
		assert.NoError(t, err, e.LogicalName)
	}

	entries, err := os.ReadDir(l.RollbackRoot())
	require.NoError(t, err)
	require.Len(t, entries, 1, "build directory must be renamed away")
}

func TestCreateFailureLeavesNothing(t *testing.T) {
	l := layout.New(t.TempDir())
	lf := testLockfile()
	installFinals(t, l, lf)

	// Corrupt one final after validation.
	p, err := l.FinalPath(lf.Artifacts[1])
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p, []byte("changed"), 0644))

	_, err = newWriter(l).Create(context.Background(), lf, lf.Artifacts)
	require.Error(t, err)
	var mm *checksum.MismatchError
	assert.True(t, errors.As(err, &mm))

	entries, err := os.ReadDir(l.RollbackRoot())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListSkipsBuildDirs(t *testing.T) {
	l := layout.New(t.TempDir())
	for _, name := range []string{"20240102T000000.000000000Z-x", ".build-20240103T000000.000000000Z-x", "20240101T000000.000000000Z-x"} {
		require.NoError(t, os.MkdirAll(filepath.Join(l.RollbackRoot(), name), 0755))
	}
	ids, err := (&Store{Layout: l}).List()
	require.NoError(t, err)
	assert.Equal(t, []string{"20240101T000000.000000000Z-x", "20240102T000000.000000000Z-x"}, ids)
}

func TestLoadLegacyManifest(t *testing.T) {
	l := layout.New(t.TempDir())
	id := "20230101T000000.000000000Z-linux-x64"
	dir := filepath.Join(l.RollbackRoot(), id)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestName), []byte(`{"schemaVersion":1,"files":[]}`), 0644))

	_, err := (&Store{Layout: l}).Load(id)
	var legacy *LegacyManifestError
	require.True(t, errors.As(err, &legacy), "got %v", err)
	assert.Equal(t, 1, legacy.SchemaVersion)
}

func TestLoadRejectsSchemaViolation(t *testing.T) {
	l := layout.New(t.TempDir())
	id := "20230101T000000.000000000Z-x"
	dir := filepath.Join(l.RollbackRoot(), id)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestName), []byte(`{"schemaVersion":2,"snapshotId":"x"}`), 0644))

	_, err := (&Store{Layout: l}).Load(id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestLatestSkipsInvalid(t *testing.T) {
	l := layout.New(t.TempDir())
	lf := testLockfile()
	installFinals(t, l, lf)

	id, err := newWriter(l).Create(context.Background(), lf, lf.Artifacts)
	require.NoError(t, err)

	// A newer directory without a manifest.
	require.NoError(t, os.MkdirAll(filepath.Join(l.RollbackRoot(), "20990101T000000.000000000Z-linux-x64"), 0755))

	m, err := (&Store{Layout: l}).Latest()
	require.NoError(t, err)
	assert.Equal(t, id, m.SnapshotID)
}

func TestLatestEmpty(t *testing.T) {
	_, err := (&Store{Layout: layout.New(t.TempDir())}).Latest()
	assert.ErrorIs(t, err, ErrNoSnapshots)
}

func TestStoreRejectsBadIDs(t *testing.T) {
	s := &Store{Layout: layout.New(t.TempDir())}
	for _, id := range []string{"", "../x", ".build-1", "a/b"} {
		_, err := s.Load(id)
		assert.Error(t, err, id)
	}
}
