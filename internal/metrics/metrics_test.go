package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromCounters(t *testing.T) {
	p := NewProm("packinstall")
	p.IncArtifacts("installed", 2)
	p.IncArtifacts("installed", 0)
	p.IncArtifacts("quarantined", 1)
	p.AddFetchedBytes(1024)
	p.IncRuns("install", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.artifacts.WithLabelValues("installed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.artifacts.WithLabelValues("quarantined")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(p.fetchedBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.runs.WithLabelValues("install", "ok")))
}

func TestPromInstancesAreIndependent(t *testing.T) {
	// Private registries must not collide on registration.
	a := NewProm("packinstall")
	b := NewProm("packinstall")
	a.IncRuns("install", "ok")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.runs.WithLabelValues("install", "ok")))
}

func TestWriteTextfile(t *testing.T) {
	p := NewProm("packinstall")
	p.IncRuns("rollback", "ok")
	p.ObserveRunDuration("rollback", 0.2)

	path := filepath.Join(t.TempDir(), "packinstall.prom")
	require.NoError(t, p.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `packinstall_runs_total{op="rollback",status="ok"} 1`), text)
	assert.True(t, strings.Contains(text, "packinstall_run_duration_seconds_count"), text)
}

func TestNoop(t *testing.T) {
	var m Metrics = Noop{}
	m.IncArtifacts("installed", 1)
	m.AddFetchedBytes(1)
	m.IncRuns("install", "ok")
	m.ObserveRunDuration("install", 1)
}
