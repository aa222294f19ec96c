// Package fetch downloads pinned artifacts into staging.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bianoble/packinstall/internal/checksum"
	"github.com/bianoble/packinstall/internal/logging"
)

// Fetcher retrieves the content at a URL into dest, enforcing the expected
// size and checksum. On any error dest does not exist afterwards.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, dest string, exp Expect) (Result, error)
}

// Expect pins what a fetched file must contain.
type Expect struct {
	Size      int64 // 0 = undeclared
	Algorithm checksum.Algorithm
	Checksum  string
}

// Result describes a completed fetch.
type Result struct {
	// Downloaded is false when dest already held the expected content.
	Downloaded bool
	Size       int64
}

// Error represents a failed fetch of a single URL.
type Error struct {
	URL  string // redacted
	Op   string
	Err  error
	Hint string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s failed: %s", e.URL, e.Op, e.Err)
	if e.Hint != "" {
		msg += " — " + e.Hint
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(rawURL, op string, err error, hint string) *Error {
	return &Error{URL: logging.RedactURL(rawURL), Op: op, Err: err, Hint: hint}
}

// IsMismatch reports whether err carries a checksum or size mismatch.
func IsMismatch(err error) bool {
	var mm *checksum.MismatchError
	return errors.As(err, &mm)
}

// Registry dispatches fetches by URL scheme.
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]Fetcher)}
}

// NewDefaultRegistry registers the HTTP fetcher for http/https and the
// local fetcher for file URLs.
func NewDefaultRegistry(h *HTTPFetcher) *Registry {
	if h == nil {
		h = &HTTPFetcher{}
	}
	r := NewRegistry()
	r.Register("http", h)
	r.Register("https", h)
	r.Register("file", FileFetcher{})
	return r
}

// Register adds a fetcher for the given URL scheme.
func (r *Registry) Register(scheme string, f Fetcher) {
	r.fetchers[strings.ToLower(scheme)] = f
}

// Get returns the fetcher for the given scheme.
func (r *Registry) Get(scheme string) (Fetcher, error) {
	f, ok := r.fetchers[strings.ToLower(scheme)]
	if !ok {
		return nil, fmt.Errorf("unsupported URL scheme '%s' — supported schemes: %s", scheme, r.supportedSchemes())
	}
	return f, nil
}

// Fetch implements Fetcher by dispatching on the URL's scheme.
func (r *Registry) Fetch(ctx context.Context, rawURL, dest string, exp Expect) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, newError(rawURL, "parse", err, "")
	}
	f, err := r.Get(u.Scheme)
	if err != nil {
		return Result{}, newError(rawURL, "dispatch", err, "")
	}
	return f.Fetch(ctx, rawURL, dest, exp)
}

func (r *Registry) supportedSchemes() string {
	schemes := make([]string, 0, len(r.fetchers))
	for s := range r.fetchers {
		schemes = append(schemes, s)
	}
	if len(schemes) == 0 {
		return "(none registered)"
	}
	sort.Strings(schemes)
	return strings.Join(schemes, ", ")
}

// alreadyPresent reports whether dest already matches exp.
func alreadyPresent(dest string, exp Expect) (int64, bool) {
	obs, err := checksum.Verify(dest, exp.Algorithm, exp.Checksum, exp.Size)
	if err != nil {
		return 0, false
	}
	return obs.Size, true
}

// writeVerified streams r into dest while hashing it. A body larger than
// maxSize (when positive) or not matching exp removes dest.
func writeVerified(ctx context.Context, r io.Reader, dest string, exp Expect, maxSize int64) (n int64, err error) {
	h, err := exp.Algorithm.New()
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dest, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", dest, cerr)
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	limit := maxSize
	if exp.Size > 0 && (limit <= 0 || exp.Size < limit) {
		// One byte past the declared size is enough to detect an oversized body.
		limit = exp.Size
	}
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}

	n, err = io.Copy(io.MultiWriter(f, h), &ctxReader{ctx: ctx, r: src})
	if err != nil {
		return n, fmt.Errorf("writing %s: %w", dest, err)
	}
	if maxSize > 0 && n > maxSize {
		return n, fmt.Errorf("file exceeds max size %d bytes", maxSize)
	}

	actual := fmt.Sprintf("%x", h.Sum(nil))
	if (exp.Size > 0 && n != exp.Size) || actual != exp.Checksum {
		return n, &checksum.MismatchError{
			Path:         dest,
			Algorithm:    exp.Algorithm,
			Expected:     exp.Checksum,
			Actual:       actual,
			ExpectedSize: exp.Size,
			ActualSize:   n,
		}
	}
	if err := f.Sync(); err != nil {
		return n, fmt.Errorf("syncing %s: %w", dest, err)
	}
	return n, nil
}

// ctxReader stops a copy once the context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
