package async

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/secmon-lab/hygieia/pkg/utils/errutil"
	"github.com/secmon-lab/hygieia/pkg/utils/logging"
)

// Dispatch runs task in a new goroutine on a context detached from the
// caller's cancellation. The caller's logger is kept and tagged with the task
// name and a task ID, which is returned so the caller can report it.
// A returned error or a panic goes through errutil.Handle.
func Dispatch(ctx context.Context, name string, task func(ctx context.Context) error) string {
	taskID := uuid.Must(uuid.NewV7()).String()
	logger := logging.From(ctx).With("task", name, "task_id", taskID)
	bgCtx := logging.With(context.WithoutCancel(ctx), logger)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				_ = errutil.Handle(bgCtx, fmt.Errorf("panic: %v", r), "async task panicked")
			}
		}()

		if err := task(bgCtx); err != nil {
			_ = errutil.Handle(bgCtx, err, "async task failed")
		}
	}()

	return taskID
}
