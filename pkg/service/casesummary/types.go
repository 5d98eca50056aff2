package casesummary

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/domain/types"
)

// Summarizer extracts a structured summary from the text of one case
type Summarizer interface {
	// Summarize returns a CaseSummary with NoteID and Similarity left zero;
	// the caller owns those fields.
	Summarize(ctx context.Context, text string, docType types.DocumentType) (*model.CaseSummary, error)
}

// Synthesizer aggregates insights across several case summaries
type Synthesizer interface {
	Synthesize(ctx context.Context, cases []*model.CaseSummary) (*model.SynthesisResult, error)
}

// Service provides both summarization stages
type Service interface {
	Summarizer
	Synthesizer
}

// ErrInvalidResponse is returned when the LLM output does not satisfy the
// expected structure
var ErrInvalidResponse = goerr.New("invalid LLM response")

// summaryResponse is the structured output of the per-case prompt
type summaryResponse struct {
	Presentation     string                    `json:"presentation"`
	KeyFindings      []string                  `json:"key_findings"`
	WorkupPerformed  []string                  `json:"workup_performed"`
	Outcome          string                    `json:"outcome"`
	LessonsLearned   *string                   `json:"lessons_learned,omitempty"`
	FunctionalStatus *functionalStatusResponse `json:"functional_status,omitempty"`
}

type functionalStatusResponse struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Validate checks required fields and the functional status variant
func (r *summaryResponse) Validate() error {
	if strings.TrimSpace(r.Presentation) == "" {
		return goerr.Wrap(ErrInvalidResponse, "presentation is required")
	}
	if strings.TrimSpace(r.Outcome) == "" {
		return goerr.Wrap(ErrInvalidResponse, "outcome is required")
	}
	if r.FunctionalStatus != nil {
		kind := model.FunctionalStatusKind(r.FunctionalStatus.Kind)
		if !kind.IsValid() {
			return goerr.Wrap(ErrInvalidResponse, "unknown functional status",
				goerr.V("kind", r.FunctionalStatus.Kind))
		}
	}
	return nil
}

// toModel converts a validated response
func (r *summaryResponse) toModel(docType types.DocumentType) *model.CaseSummary {
	s := &model.CaseSummary{
		DocumentType:    docType,
		Presentation:    strings.TrimSpace(r.Presentation),
		KeyFindings:     compact(r.KeyFindings),
		WorkupPerformed: compact(r.WorkupPerformed),
		Outcome:         strings.TrimSpace(r.Outcome),
	}
	if r.LessonsLearned != nil {
		if lessons := strings.TrimSpace(*r.LessonsLearned); lessons != "" {
			s.LessonsLearned = &lessons
		}
	}
	if r.FunctionalStatus != nil {
		s.FunctionalStatus = &model.FunctionalStatus{
			Kind:   model.FunctionalStatusKind(r.FunctionalStatus.Kind),
			Detail: strings.TrimSpace(r.FunctionalStatus.Detail),
		}
	}
	return s
}

// synthesisResponse is the structured output of the cross-case prompt
type synthesisResponse struct {
	CommonPatterns []string `json:"common_patterns"`
	TypicalWorkup  []string `json:"typical_workup"`
	Pitfalls       []string `json:"pitfalls"`
}

// Validate requires at least one insight in total
func (r *synthesisResponse) Validate() error {
	if len(compact(r.CommonPatterns))+len(compact(r.TypicalWorkup))+len(compact(r.Pitfalls)) == 0 {
		return goerr.Wrap(ErrInvalidResponse, "synthesis contains no insights")
	}
	return nil
}

func (r *synthesisResponse) toModel() *model.SynthesisResult {
	return &model.SynthesisResult{
		CommonPatterns: compact(r.CommonPatterns),
		TypicalWorkup:  compact(r.TypicalWorkup),
		Pitfalls:       compact(r.Pitfalls),
	}
}

// compact trims items and drops empty ones. Always returns a non-nil slice.
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
