package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/usecase"
	"github.com/secmon-lab/hygieia/pkg/utils/logging"
)

// IndexRunner runs one batch of embedding generation
type IndexRunner interface {
	Run(ctx context.Context, input usecase.IndexInput) (*usecase.IndexResult, error)
}

// IndexWorker periodically embeds notes that have no embedding, so newly
// created notes become searchable without an explicit batch call.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Overlapping runs from several instances only waste embedder calls; the
//   store keeps one row per note
type IndexWorker struct {
	runner   IndexRunner
	interval time.Duration
	input    usecase.IndexInput
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewIndexWorker creates a worker running input every interval
func NewIndexWorker(runner IndexRunner, interval time.Duration, input usecase.IndexInput) *IndexWorker {
	return &IndexWorker{
		runner:   runner,
		interval: interval,
		input:    input,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. The first run starts immediately in
// the background and does not block server startup.
func (w *IndexWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.New("index worker interval must be positive", goerr.V("interval", w.interval.String()))
	}

	logging.From(ctx).Info("index worker starting",
		"interval", w.interval.String(),
		"reembed_all", w.input.ReembedAll,
		"limit", w.input.Limit)

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop, cancels a run in progress and waits for completion
func (w *IndexWorker) Stop() {
	logging.Default().Info("index worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("index worker stopped")
}

// run is the main worker loop (runs in goroutine)
func (w *IndexWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runOnce(ctx)

		case <-ctx.Done():
			logging.Default().Info("index worker context done")
			return
		}
	}
}

func (w *IndexWorker) runOnce(ctx context.Context) {
	start := time.Now()
	res, err := w.runner.Run(ctx, w.input)
	if err != nil {
		// Log error but continue worker
		logging.From(ctx).Error("index run failed (will retry next interval)", "error", err.Error())
		return
	}

	if res.Total() > 0 {
		logging.From(ctx).Info("index run finished",
			"processed", res.Processed,
			"skipped", res.Skipped,
			"errors", res.Errors,
			"duration", time.Since(start).String())
	}
}
