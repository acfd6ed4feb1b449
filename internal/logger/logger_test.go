package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerFormat(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	newLogger("production", &buf).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	newLogger("local", &buf).Debug("dev line")
	assert.Contains(t, buf.String(), "msg=\"dev line\"")
}

func TestWithCtx(t *testing.T) {
	var buf bytes.Buffer
	scoped := slog.New(slog.NewTextHandler(&buf, nil)).With("request_id", "abc")

	ctx := Inject(context.Background(), scoped)
	WithCtx(ctx).Info("tagged")

	assert.Contains(t, buf.String(), "request_id=abc")
	assert.Equal(t, slog.Default(), WithCtx(context.Background()))
}
