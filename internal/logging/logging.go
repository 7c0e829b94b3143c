package logging

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
)

type contextKey struct{}

// New returns a JSON logger writing to w at the given minimum level. A nil
// writer selects stderr.
func New(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// StdLogger adapts logger for libraries that expect a *log.Logger. Lines are
// emitted at level with the component attribute set.
func StdLogger(logger *slog.Logger, component string, level slog.Level) *log.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slog.NewLogLogger(logger.With("component", component).Handler(), level)
}

// ContextWithLogger returns a derived context that carries the provided logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger previously attached to the context.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return logger
}
