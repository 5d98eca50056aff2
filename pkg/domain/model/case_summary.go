package model

import (
	"github.com/secmon-lab/hygieia/pkg/domain/types"
)

// FunctionalStatusKind is the closed set of functional status values a
// summary may report
type FunctionalStatusKind string

const (
	FunctionalStatusIndependent FunctionalStatusKind = "independent"
	FunctionalStatusAssisted    FunctionalStatusKind = "assisted"
	FunctionalStatusDependent   FunctionalStatusKind = "dependent"
)

// IsValid checks if the functional status kind is valid
func (k FunctionalStatusKind) IsValid() bool {
	switch k {
	case FunctionalStatusIndependent, FunctionalStatusAssisted, FunctionalStatusDependent:
		return true
	default:
		return false
	}
}

// FunctionalStatus is an optional clinical field of a case summary
type FunctionalStatus struct {
	Kind   FunctionalStatusKind
	Detail string
}

// CaseSummary is the structured extraction of one similar case. It is
// recomputed on each retrieval and never stored.
type CaseSummary struct {
	NoteID           NoteID
	DocumentType     types.DocumentType
	Presentation     string
	KeyFindings      []string
	WorkupPerformed  []string
	Outcome          string
	LessonsLearned   *string
	FunctionalStatus *FunctionalStatus
	Similarity       float64 // rounded by RoundSimilarity
}

// SynthesisResult aggregates insights across at least two case summaries
type SynthesisResult struct {
	CommonPatterns []string
	TypicalWorkup  []string
	Pitfalls       []string
}
