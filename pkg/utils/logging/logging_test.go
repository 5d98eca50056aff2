package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/hygieia/pkg/utils/logging"
)

func TestFrom(t *testing.T) {
	t.Run("returns default logger when context has none", func(t *testing.T) {
		gt.Value(t, logging.From(context.Background())).Equal(logging.Default())
	})

	t.Run("returns logger attached by With", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		ctx := logging.With(context.Background(), logger)

		logging.From(ctx).Info("hello", "note_id", 42)
		gt.String(t, buf.String()).Contains("hello")
		gt.String(t, buf.String()).Contains("note_id=42")
	})
}

func TestSetDefault(t *testing.T) {
	orig := logging.Default()
	t.Cleanup(func() { logging.SetDefault(orig) })

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	logging.SetDefault(logger)
	gt.Value(t, logging.Default()).Equal(logger)

	logging.SetDefault(nil)
	gt.Value(t, logging.Default()).Equal(logger)
}
