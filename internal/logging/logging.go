// Package logging emits structured records shaped
// {timestamp, level, area, message, meta}.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options configures the root logger.
type Options struct {
	Level  string
	Format string
	Writer io.Writer
}

// New builds the root logger. Unknown formats fall back to text.
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	hopts := &slog.HandlerOptions{Level: level, ReplaceAttr: renameKeys}
	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case FormatJSON:
		h = slog.NewJSONHandler(w, hopts)
	case FormatText, "":
		h = slog.NewTextHandler(w, hopts)
	default:
		return nil, fmt.Errorf("unknown log format '%s' — must be one of: json, text", opts.Format)
	}
	return slog.New(h), nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Area binds the subsystem name every record of the returned logger carries.
func Area(l *slog.Logger, area string) *slog.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With(slog.String("area", area))
}

// Meta groups structured details under the "meta" key.
func Meta(args ...any) slog.Attr {
	return slog.Group("meta", args...)
}

// ParseLevel maps a config level name onto slog levels. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level '%s' — must be one of: debug, info, warn, error", s)
	}
}

// RedactURL strips credentials and query strings so signed download URLs
// never reach the log.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparseable url)"
	}
	u.User = nil
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	u.Fragment = ""
	return u.String()
}

func renameKeys(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}
