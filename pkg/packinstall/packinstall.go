// Package packinstall provides the public Go library API for packinstall.
//
// packinstall installs the artifacts pinned by an instance's lockfile
// (pack/lock.json) byte-for-byte, survives interruption at any point,
// quarantines corrupt files instead of deleting them, and can roll the
// instance back to the last validated snapshot.
//
// # Basic Usage
//
//	client, err := packinstall.New(packinstall.Options{
//	    InstancesDir: "/srv/instances",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Install or repair an instance
//	result, err := client.Install(ctx, "survival")
//
//	// Restore the newest snapshot
//	rb, err := client.Rollback(ctx, "survival", "")
//
// Callers must serialize operations on the same instance.
package packinstall

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bianoble/packinstall/internal/cache"
	"github.com/bianoble/packinstall/internal/engine"
	"github.com/bianoble/packinstall/internal/extract"
	"github.com/bianoble/packinstall/internal/fetch"
	"github.com/bianoble/packinstall/internal/layout"
	"github.com/bianoble/packinstall/internal/lock"
	"github.com/bianoble/packinstall/internal/logging"
	"github.com/bianoble/packinstall/internal/metrics"
	"github.com/bianoble/packinstall/internal/quarantine"
	"github.com/bianoble/packinstall/internal/rollback"
	"github.com/bianoble/packinstall/internal/snapshot"
)

// Installer installs an instance from its lockfile.
type Installer interface {
	Install(ctx context.Context, instanceID string) (*InstallResult, error)
}

// RollbackExecutor restores an instance from a snapshot.
type RollbackExecutor interface {
	Rollback(ctx context.Context, instanceID, snapshotID string) (*RollbackResult, error)
}

// Options configures a packinstall client.
type Options struct {
	// InstancesDir holds one directory per instance id. Required.
	InstancesDir string

	// CacheDir is the shared download cache. If empty, uses the default
	// (~/.cache/packinstall). Ignored when NoCache is set.
	CacheDir string
	NoCache  bool

	// Fetcher overrides the default http/https/file fetcher.
	Fetcher Fetcher
	// HTTP settings for the default fetcher.
	HTTPTimeout time.Duration
	MaxSize     int64
	UserAgent   string

	// Extractor overrides the default zip extractor for native bundles.
	Extractor Extractor

	ForceVerify      bool
	DisableSnapshots bool

	Logger  *slog.Logger
	Metrics Metrics
}

// Client is the main entry point for the packinstall library.
// It implements Installer and RollbackExecutor.
type Client struct {
	base      string
	fetcher   Fetcher
	extractor Extractor
	cache     *cache.Cache
	logger    *slog.Logger
	metrics   Metrics
	opts      Options
}

// New creates a new packinstall Client.
func New(opts Options) (*Client, error) {
	if opts.InstancesDir == "" {
		return nil, fmt.Errorf("instances directory is required")
	}

	var c *cache.Cache
	if !opts.NoCache {
		cacheDir := opts.CacheDir
		if cacheDir == "" {
			cacheDir = cache.DefaultDir()
		}
		var err error
		c, err = cache.New(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("initializing cache: %w", err)
		}
	}

	f := opts.Fetcher
	if f == nil {
		f = fetch.NewDefaultRegistry(&fetch.HTTPFetcher{
			Timeout:   opts.HTTPTimeout,
			MaxSize:   opts.MaxSize,
			UserAgent: opts.UserAgent,
		})
	}

	ex := opts.Extractor
	if ex == nil {
		ex = extract.Zip{Exclude: []string{"META-INF/"}}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Noop{}
	}

	return &Client{
		base:      opts.InstancesDir,
		fetcher:   f,
		extractor: ex,
		cache:     c,
		logger:    logger,
		metrics:   m,
		opts:      opts,
	}, nil
}

// InstanceRoot returns the directory of an instance.
func (c *Client) InstanceRoot(instanceID string) (string, error) {
	l, err := layout.ForInstance(c.base, instanceID)
	if err != nil {
		return "", err
	}
	return l.Root, nil
}

// Lockfile loads and validates the lockfile of an instance.
func (c *Client) Lockfile(instanceID string) (*Lockfile, error) {
	l, err := layout.ForInstance(c.base, instanceID)
	if err != nil {
		return nil, err
	}
	return lock.Load(l.LockPath())
}

// Install brings an instance in line with its own pack/lock.json.
func (c *Client) Install(ctx context.Context, instanceID string) (*InstallResult, error) {
	lf, err := c.Lockfile(instanceID)
	if err != nil {
		return nil, err
	}
	return c.InstallLockfile(ctx, instanceID, lf)
}

// InstallLockfile installs lf into an instance. The lockfile is not written
// to the instance.
func (c *Client) InstallLockfile(ctx context.Context, instanceID string, lf *Lockfile) (*InstallResult, error) {
	l, err := layout.ForInstance(c.base, instanceID)
	if err != nil {
		return nil, err
	}

	inst := &engine.Installer{
		Layout:           l,
		Fetcher:          c.fetcher,
		Cache:            c.cache,
		Extractor:        c.extractor,
		Metrics:          c.metrics,
		Logger:           c.logger.With(slog.String("instance", instanceID)),
		ForceVerify:      c.opts.ForceVerify,
		DisableSnapshots: c.opts.DisableSnapshots,
	}
	return inst.Install(ctx, lf)
}

// Rollback restores snapshotID, or the newest valid snapshot when empty.
func (c *Client) Rollback(ctx context.Context, instanceID, snapshotID string) (res *RollbackResult, err error) {
	started := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		c.metrics.IncRuns("rollback", status)
		c.metrics.ObserveRunDuration("rollback", time.Since(started).Seconds())
	}()

	l, err := layout.ForInstance(c.base, instanceID)
	if err != nil {
		return nil, err
	}
	ex := &rollback.Executor{
		Layout:    l,
		Logger:    c.logger.With(slog.String("instance", instanceID)),
		Extractor: c.extractor,
	}
	return ex.Rollback(ctx, snapshotID)
}

// Check reports drift between the final tree and the lockfile without
// changing anything.
func (c *Client) Check(ctx context.Context, instanceID string) (*CheckResult, error) {
	l, err := layout.ForInstance(c.base, instanceID)
	if err != nil {
		return nil, err
	}
	lf, err := lock.Load(l.LockPath())
	if err != nil {
		return nil, err
	}
	return (&engine.Checker{Layout: l}).Check(ctx, lf)
}

// SnapshotInfo describes one stored snapshot. Manifest is nil and Err set
// when the snapshot cannot be restored.
type SnapshotInfo struct {
	ID       string
	Manifest *Manifest
	Err      error
}

// Snapshots lists the snapshots of an instance, oldest first.
func (c *Client) Snapshots(instanceID string) ([]SnapshotInfo, error) {
	l, err := layout.ForInstance(c.base, instanceID)
	if err != nil {
		return nil, err
	}
	store := &snapshot.Store{Layout: l}
	ids, err := store.List()
	if err != nil {
		return nil, err
	}
	out := make([]SnapshotInfo, 0, len(ids))
	for _, id := range ids {
		m, err := store.Load(id)
		out = append(out, SnapshotInfo{ID: id, Manifest: m, Err: err})
	}
	return out, nil
}

// Quarantined lists the quarantined files of an instance.
func (c *Client) Quarantined(instanceID string) ([]QuarantineEntry, error) {
	l, err := layout.ForInstance(c.base, instanceID)
	if err != nil {
		return nil, err
	}
	return quarantine.ForLayout(l).List()
}
