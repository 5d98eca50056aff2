package safe

import (
	"context"
	"io"

	"github.com/secmon-lab/hygieia/pkg/utils/logging"
)

// Close closes c and logs a failure under target. A nil closer is ignored.
func Close(ctx context.Context, target string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.From(ctx).Warn("failed to close", "target", target, "error", err.Error())
	}
}

// Write writes data to w and logs a failure or a short write. Response
// bodies are the only caller, where the client may already be gone.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	n, err := w.Write(data)
	switch {
	case err != nil:
		logging.From(ctx).Warn("failed to write response", "error", err.Error(), "written", n, "size", len(data))
	case n < len(data):
		logging.From(ctx).Warn("short response write", "written", n, "size", len(data))
	}
}
