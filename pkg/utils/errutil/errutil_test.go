package errutil_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/hygieia/pkg/utils/errutil"
	"github.com/secmon-lab/hygieia/pkg/utils/logging"
)

func TestHandle(t *testing.T) {
	t.Run("nil error is ignored", func(t *testing.T) {
		gt.NoError(t, errutil.Handle(context.Background(), nil, "nothing"))
	})

	t.Run("goerr values are logged", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := logging.With(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

		orig := goerr.New("provider unavailable", goerr.V("note_id", 7))
		err := errutil.Handle(ctx, orig, "failed to embed note")

		gt.Bool(t, errors.Is(err, orig)).True()
		gt.String(t, buf.String()).Contains("failed to embed note")
		gt.String(t, buf.String()).Contains("note_id")
	})
}

func TestHandleHTTP(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.With(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	w := httptest.NewRecorder()
	errutil.HandleHTTP(ctx, w, errors.New("bad input"), http.StatusBadRequest)

	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	gt.String(t, w.Body.String()).Contains("bad input")
	gt.String(t, buf.String()).Contains("HTTP error")
}

// captureHub returns a context bound to a Sentry hub whose events are kept in
// memory instead of being sent
func captureHub(t *testing.T) (context.Context, func() []*sentry.Event) {
	t.Helper()
	var mu sync.Mutex
	var events []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, event)
			return nil
		},
	})
	gt.NoError(t, err).Required()

	ctx := sentry.SetHubOnContext(context.Background(), sentry.NewHub(client, sentry.NewScope()))
	ctx = logging.With(ctx, slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)))
	return ctx, func() []*sentry.Event {
		mu.Lock()
		defer mu.Unlock()
		return events
	}
}

func TestReport(t *testing.T) {
	t.Run("goerr values are attached as event context", func(t *testing.T) {
		ctx, events := captureHub(t)

		_ = errutil.Handle(ctx, goerr.New("provider unavailable", goerr.V("note_id", 7)), "failed to embed note")

		got := events()
		gt.Array(t, got).Length(1)
		gt.Value(t, got[0].Contexts["goerr"]["note_id"]).Equal(any(7))
	})

	t.Run("client errors are not reported", func(t *testing.T) {
		ctx, events := captureHub(t)

		errutil.HandleHTTP(ctx, httptest.NewRecorder(), errors.New("bad input"), http.StatusBadRequest)
		gt.Array(t, events()).Length(0)
	})

	t.Run("server errors are reported", func(t *testing.T) {
		ctx, events := captureHub(t)

		errutil.HandleHTTP(ctx, httptest.NewRecorder(), errors.New("store down"), http.StatusInternalServerError)
		gt.Array(t, events()).Length(1)
	})
}
