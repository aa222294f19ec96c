package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient abstracts HTTP operations for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient returns an HTTPClient using http.DefaultClient.
type DefaultHTTPClient struct{}

func (DefaultHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return http.DefaultClient.Do(req)
}

// HTTPFetcher downloads artifacts over HTTP(S).
type HTTPFetcher struct {
	Client    HTTPClient
	MaxSize   int64         // max file size in bytes (0 = no limit)
	Timeout   time.Duration // fetch timeout (0 = no extra timeout beyond context)
	UserAgent string
}

// Fetch streams the response body into dest. A single attempt is made;
// retry policy belongs to the caller.
func (h *HTTPFetcher) Fetch(ctx context.Context, rawURL, dest string, exp Expect) (Result, error) {
	if n, ok := alreadyPresent(dest, exp); ok {
		return Result{Downloaded: false, Size: n}, nil
	}

	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	client := h.Client
	if client == nil {
		client = DefaultHTTPClient{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, newError(rawURL, "fetch", fmt.Errorf("creating request: %w", err), "")
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, newError(rawURL, "fetch", err, "check network connectivity and URL")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, newError(rawURL, "fetch",
			fmt.Errorf("HTTP %d", resp.StatusCode),
			"check that the URL is accessible and returns the expected content")
	}
	if h.MaxSize > 0 && resp.ContentLength > h.MaxSize {
		return Result{}, newError(rawURL, "fetch",
			fmt.Errorf("file exceeds max size %d bytes", h.MaxSize),
			"increase http.max_size in the config")
	}

	n, err := writeVerified(ctx, resp.Body, dest, exp, h.MaxSize)
	if err != nil {
		hint := ""
		if IsMismatch(err) {
			hint = "the upstream content differs from the lockfile pin"
		}
		return Result{}, newError(rawURL, "fetch", err, hint)
	}
	return Result{Downloaded: true, Size: n}, nil
}
