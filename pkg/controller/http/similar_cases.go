package http

import (
	"net/http"

	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/usecase"
)

type similarCasesRequest struct {
	NoteID        *model.NoteID `json:"note_id"`
	Query         string        `json:"query"`
	TopK          int           `json:"top_k"`
	MinSimilarity *float64      `json:"min_similarity"`
}

type functionalStatusResponse struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

type caseSummaryResponse struct {
	NoteID           model.NoteID              `json:"note_id"`
	DocumentType     string                    `json:"document_type"`
	Presentation     string                    `json:"presentation"`
	KeyFindings      []string                  `json:"key_findings"`
	WorkupPerformed  []string                  `json:"workup_performed"`
	Outcome          string                    `json:"outcome"`
	LessonsLearned   *string                   `json:"lessons_learned,omitempty"`
	FunctionalStatus *functionalStatusResponse `json:"functional_status,omitempty"`
	Similarity       float64                   `json:"similarity"`
}

type synthesisResponse struct {
	CommonPatterns []string `json:"common_patterns"`
	TypicalWorkup  []string `json:"typical_workup"`
	Pitfalls       []string `json:"pitfalls"`
}

type similarCasesResponse struct {
	Cases               []caseSummaryResponse `json:"cases"`
	SynthesizedInsights *synthesisResponse    `json:"synthesizedInsights,omitempty"`
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func newSimilarCasesResponse(res *usecase.RetrieveResult) similarCasesResponse {
	resp := similarCasesResponse{
		Cases: make([]caseSummaryResponse, len(res.Cases)),
	}
	for i, c := range res.Cases {
		item := caseSummaryResponse{
			NoteID:          c.NoteID,
			DocumentType:    c.DocumentType.String(),
			Presentation:    c.Presentation,
			KeyFindings:     nonNil(c.KeyFindings),
			WorkupPerformed: nonNil(c.WorkupPerformed),
			Outcome:         c.Outcome,
			LessonsLearned:  c.LessonsLearned,
			Similarity:      c.Similarity,
		}
		if c.FunctionalStatus != nil {
			item.FunctionalStatus = &functionalStatusResponse{
				Kind:   string(c.FunctionalStatus.Kind),
				Detail: c.FunctionalStatus.Detail,
			}
		}
		resp.Cases[i] = item
	}

	if s := res.SynthesizedInsights; s != nil {
		resp.SynthesizedInsights = &synthesisResponse{
			CommonPatterns: nonNil(s.CommonPatterns),
			TypicalWorkup:  nonNil(s.TypicalWorkup),
			Pitfalls:       nonNil(s.Pitfalls),
		}
	}
	return resp
}

func similarCasesHandler(uc RetrievalUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req similarCasesRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}

		res, err := uc.Retrieve(ctx, usecase.RetrieveInput{
			NoteID:        req.NoteID,
			Query:         req.Query,
			TopK:          req.TopK,
			MinSimilarity: req.MinSimilarity,
		})
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, newSimilarCasesResponse(res))
	}
}
