// Package logging builds the structured logger threaded through the
// compiler and runtime packages, grounded on rbright/sotto's
// internal/logging (slog.NewJSONHandler wiring). Unlike sotto, bktk is a
// library embedded in a host process rather than a standalone daemon, so
// this package never opens its own log file or resolves an XDG path: it
// only ever wraps a caller-supplied io.Writer, and leaves "where logs go"
// entirely to the host.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// New builds a JSON-handler *slog.Logger writing to w. If w is nil, New
// returns slog.Default() so every caller can pass a possibly-nil logger
// through unconditionally (SPEC_FULL.md: "Context and Compiler accept an
// optional *slog.Logger, defaulting to slog.Default() when nil").
func New(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		return slog.Default()
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

// OrDefault returns l, or slog.Default() if l is nil. Packages that accept
// an optional *slog.Logger call this once at construction time rather than
// nil-checking on every log call.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// WithRunID returns a logger with a "run_id" attribute attached, used to
// correlate a Context's lifetime across its log lines (spec.md §5's
// per-Context identity; see lang/context's uuid.New() run id).
func WithRunID(l *slog.Logger, runID string) *slog.Logger {
	return OrDefault(l).With(slog.String("run_id", runID))
}

// contextKey is unexported so no other package can collide with it when
// threading a logger through a context.Context-carrying call chain.
type contextKey struct{}

// Into attaches l to ctx.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// From retrieves the logger attached by Into, or slog.Default() if none
// was attached.
func From(ctx context.Context) *slog.Logger {
	l, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return OrDefault(l)
}
