package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/usecase"
	"github.com/secmon-lab/hygieia/pkg/utils/async"
	"github.com/secmon-lab/hygieia/pkg/utils/logging"
)

type batchRequest struct {
	ReembedAll bool `json:"reembed_all"`
	Limit      int  `json:"limit"`
	// Async runs the batch in the background and returns 202 immediately
	Async bool `json:"async"`
}

type batchErrorDetail struct {
	NoteID  model.NoteID `json:"note_id"`
	Message string       `json:"message"`
}

type batchResponse struct {
	Processed    int                `json:"processed"`
	Skipped      int                `json:"skipped"`
	Errors       int                `json:"errors"`
	ErrorDetails []batchErrorDetail `json:"error_details"`
}

func newBatchResponse(res *usecase.IndexResult) batchResponse {
	resp := batchResponse{
		Processed:    res.Processed,
		Skipped:      res.Skipped,
		Errors:       res.Errors,
		ErrorDetails: make([]batchErrorDetail, len(res.ErrorDetails)),
	}
	for i, d := range res.ErrorDetails {
		resp.ErrorDetails[i] = batchErrorDetail{NoteID: d.NoteID, Message: d.Message}
	}
	return resp
}

func batchEmbeddingHandler(uc IndexUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req batchRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}
		if req.Limit < 0 || req.Limit > usecase.MaxIndexLimit {
			writeError(ctx, w, goerr.Wrap(usecase.ErrValidation, "limit is out of range", goerr.V(usecase.LimitKey, req.Limit)))
			return
		}

		input := usecase.IndexInput{ReembedAll: req.ReembedAll, Limit: req.Limit}

		if req.Async {
			taskID := async.Dispatch(ctx, "batch_index", func(ctx context.Context) error {
				res, err := uc.Run(ctx, input)
				if err != nil {
					return goerr.Wrap(err, "background index run failed")
				}
				logging.From(ctx).Info("background index run finished",
					"processed", res.Processed,
					"skipped", res.Skipped,
					"errors", res.Errors,
				)
				return nil
			})
			writeJSON(ctx, w, http.StatusAccepted, map[string]string{"status": "accepted", "task_id": taskID})
			return
		}

		res, err := uc.Run(ctx, input)
		if err != nil {
			writeError(ctx, w, goerr.Wrap(err, "failed to run batch embedding"))
			return
		}

		writeJSON(ctx, w, http.StatusOK, newBatchResponse(res))
	}
}

type embeddingResponse struct {
	NoteID      model.NoteID `json:"note_id"`
	Model       string       `json:"model"`
	Dimensions  int          `json:"dimensions"`
	ContentHash string       `json:"content_hash"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func parseNoteID(r *http.Request) (model.NoteID, error) {
	raw := chi.URLParam(r, "noteID")
	id, err := model.ParseNoteID(raw)
	if err != nil || id <= 0 {
		return 0, goerr.Wrap(errBadRequest, "invalid note ID", goerr.V(model.NoteIDKey, raw))
	}
	return id, nil
}

func getEmbeddingHandler(uc EmbeddingUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		noteID, err := parseNoteID(r)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		emb, err := uc.Get(ctx, noteID)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, embeddingResponse{
			NoteID:      emb.NoteID,
			Model:       emb.Model,
			Dimensions:  emb.Dimensions,
			ContentHash: emb.ContentHash.String(),
			CreatedAt:   emb.CreatedAt,
			UpdatedAt:   emb.UpdatedAt,
		})
	}
}

type ensureRequest struct {
	Force bool `json:"force"`
}

type ensureResponse struct {
	NoteID      model.NoteID `json:"note_id"`
	Vector      []float64    `json:"vector"`
	Model       string       `json:"model"`
	Dimensions  int          `json:"dimensions"`
	ContentHash string       `json:"content_hash"`
	Skipped     bool         `json:"skipped"`
}

func ensureEmbeddingHandler(uc EmbeddingUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		noteID, err := parseNoteID(r)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		var req ensureRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}

		res, err := uc.EnsureByID(ctx, noteID, req.Force)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, ensureResponse{
			NoteID:      noteID,
			Vector:      res.Vector,
			Model:       res.Model,
			Dimensions:  res.Dimensions,
			ContentHash: res.ContentHash.String(),
			Skipped:     res.Skipped,
		})
	}
}
