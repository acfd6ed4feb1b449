// Package logger builds the process-wide slog logger and carries a
// request-scoped logger through context.Context.
//
//	log := logger.WithCtx(c.Request.Context())
//	log.Info("payment recorded", "email", p.Email)
//	// → time=... level=INFO msg="payment recorded" request_id=... email=...
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// New returns a JSON logger in production and a text logger elsewhere, and
// installs it as the slog default.
func New(env string) *slog.Logger {
	return newLogger(env, os.Stdout)
}

func newLogger(env string, w io.Writer) *slog.Logger {
	var handler slog.Handler
	switch env {
	case "production", "prod":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

type ctxKey struct{}

// Inject stores a request-scoped logger in ctx.
func Inject(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// WithCtx returns the logger stored by Inject, or the default logger.
func WithCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
