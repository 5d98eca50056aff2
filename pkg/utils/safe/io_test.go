package safe_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/hygieia/pkg/utils/logging"
	"github.com/secmon-lab/hygieia/pkg/utils/safe"
)

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("already closed") }

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) / 2, nil }

func captureLogs(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	return logging.With(context.Background(), logger), &buf
}

func TestClose(t *testing.T) {
	ctx, buf := captureLogs(t)

	safe.Close(ctx, "repository", nil)
	gt.Value(t, buf.Len()).Equal(0)

	safe.Close(ctx, "repository", failingCloser{})
	gt.String(t, buf.String()).Contains("target=repository")
	gt.String(t, buf.String()).Contains("already closed")
}

func TestWrite(t *testing.T) {
	t.Run("writes data", func(t *testing.T) {
		ctx, logs := captureLogs(t)
		var out bytes.Buffer
		safe.Write(ctx, &out, []byte(`{"status":"ok"}`))
		gt.String(t, out.String()).Equal(`{"status":"ok"}`)
		gt.Value(t, logs.Len()).Equal(0)
	})

	t.Run("logs short write", func(t *testing.T) {
		ctx, logs := captureLogs(t)
		safe.Write(ctx, shortWriter{}, []byte("abcd"))
		gt.String(t, logs.String()).Contains("short response write")
	})
}
