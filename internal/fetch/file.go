package fetch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// FileFetcher copies artifacts addressed by file:// URLs, used for mirrors
// on local or network filesystems.
type FileFetcher struct{}

func (FileFetcher) Fetch(ctx context.Context, rawURL, dest string, exp Expect) (Result, error) {
	if n, ok := alreadyPresent(dest, exp); ok {
		return Result{Downloaded: false, Size: n}, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, newError(rawURL, "fetch", err, "")
	}

	src, err := localPath(rawURL)
	if err != nil {
		return Result{}, newError(rawURL, "fetch", err, "")
	}

	f, err := os.Open(src)
	if err != nil {
		return Result{}, newError(rawURL, "fetch", err, "check that the mirror path exists")
	}
	defer f.Close()

	n, err := writeVerified(ctx, f, dest, exp, 0)
	if err != nil {
		return Result{}, newError(rawURL, "fetch", err, "")
	}
	return Result{Downloaded: true, Size: n}, nil
}

func localPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("not a file URL")
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("file URL host '%s' is not supported", u.Host)
	}
	if u.Path == "" {
		return "", fmt.Errorf("file URL has no path")
	}
	return filepath.FromSlash(u.Path), nil
}
