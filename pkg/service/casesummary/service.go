package casesummary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/domain/types"
)

type client struct {
	llmClient gollem.LLMClient
}

// New creates a case summary Service with the provided LLM client
func New(llmClient gollem.LLMClient) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}
	return &client{llmClient: llmClient}, nil
}

// Summarize asks the LLM for a structured summary of one case
func (c *client) Summarize(ctx context.Context, text string, docType types.DocumentType) (*model.CaseSummary, error) {
	if strings.TrimSpace(text) == "" {
		return nil, goerr.New("case text is empty")
	}

	raw, err := c.generate(ctx, summarySystemPrompt, buildSummaryPrompt(text, docType), summarySchema())
	if err != nil {
		return nil, err
	}

	var resp summaryResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, goerr.Wrap(ErrInvalidResponse, "failed to parse summary response",
			goerr.V("response", raw), goerr.V("error", err.Error()))
	}
	if err := resp.Validate(); err != nil {
		return nil, goerr.Wrap(err, "summary response rejected", goerr.V("response", raw))
	}

	return resp.toModel(docType), nil
}

// Synthesize asks the LLM for patterns shared by the given cases
func (c *client) Synthesize(ctx context.Context, cases []*model.CaseSummary) (*model.SynthesisResult, error) {
	if len(cases) == 0 {
		return nil, goerr.New("no cases to synthesize")
	}

	raw, err := c.generate(ctx, synthesisSystemPrompt, buildSynthesisPrompt(cases), synthesisSchema())
	if err != nil {
		return nil, err
	}

	var resp synthesisResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, goerr.Wrap(ErrInvalidResponse, "failed to parse synthesis response",
			goerr.V("response", raw), goerr.V("error", err.Error()))
	}
	if err := resp.Validate(); err != nil {
		return nil, goerr.Wrap(err, "synthesis response rejected", goerr.V("response", raw))
	}

	return resp.toModel(), nil
}

func (c *client) generate(ctx context.Context, systemPrompt, userPrompt string, schema *gollem.Parameter) (string, error) {
	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(schema),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.Generate(ctx, []gollem.Input{gollem.Text(userPrompt)})
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content from LLM")
	}
	if resp == nil || len(resp.Texts) == 0 {
		return "", goerr.Wrap(ErrInvalidResponse, "empty LLM response")
	}

	return resp.Texts[0], nil
}

const summarySystemPrompt = `You are a clinical documentation assistant. Summarize a single historical case so that a clinician can compare it with a current patient.

## Instructions:

1. presentation: how the patient presented, in one or two sentences.
2. key_findings: the most relevant findings (history, exam, results).
3. workup_performed: tests, imaging and consults that were done.
4. outcome: the final diagnosis or disposition.
5. lessons_learned: optional, only when the case teaches something non-obvious.
6. functional_status: optional; kind must be one of independent, assisted or dependent.
7. Do not invent facts that are not present in the case text.
`

const synthesisSystemPrompt = `You are a clinical documentation assistant. Compare several similar historical cases and extract cross-case insights.

## Instructions:

1. common_patterns: presentation or findings shared by multiple cases.
2. typical_workup: the workup that was commonly performed.
3. pitfalls: missed diagnoses, delays or errors observed across cases.
4. Base every item on the provided cases only.
`

func buildSummaryPrompt(text string, docType types.DocumentType) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Document type: %s\n\n", docType.Label())
	sb.WriteString("## Case text:\n\n")
	sb.WriteString(text)
	sb.WriteString("\n")
	return sb.String()
}

func buildSynthesisPrompt(cases []*model.CaseSummary) string {
	var sb strings.Builder
	sb.WriteString("## Cases:\n\n")
	for i, cs := range cases {
		fmt.Fprintf(&sb, "### Case %d (similarity %.3f, %s)\n", i+1, cs.Similarity, cs.DocumentType.Label())
		fmt.Fprintf(&sb, "**Presentation:** %s\n", cs.Presentation)
		if len(cs.KeyFindings) > 0 {
			fmt.Fprintf(&sb, "**Key findings:** %s\n", strings.Join(cs.KeyFindings, "; "))
		}
		if len(cs.WorkupPerformed) > 0 {
			fmt.Fprintf(&sb, "**Workup:** %s\n", strings.Join(cs.WorkupPerformed, "; "))
		}
		fmt.Fprintf(&sb, "**Outcome:** %s\n", cs.Outcome)
		if cs.LessonsLearned != nil {
			fmt.Fprintf(&sb, "**Lessons learned:** %s\n", *cs.LessonsLearned)
		}
		if cs.FunctionalStatus != nil {
			fmt.Fprintf(&sb, "**Functional status:** %s %s\n", cs.FunctionalStatus.Kind, cs.FunctionalStatus.Detail)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func stringArray(description string) *gollem.Parameter {
	return &gollem.Parameter{
		Type:        gollem.TypeArray,
		Description: description,
		Items:       &gollem.Parameter{Type: gollem.TypeString},
	}
}

func required(p *gollem.Parameter) *gollem.Parameter {
	p.Required = true
	return p
}

func summarySchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "CaseSummaryResponse",
		Description: "Structured summary of one clinical case",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"presentation": {
				Type:        gollem.TypeString,
				Description: "How the patient presented",
				Required:    true,
			},
			"key_findings":     required(stringArray("Most relevant findings")),
			"workup_performed": required(stringArray("Tests, imaging and consults performed")),
			"outcome": {
				Type:        gollem.TypeString,
				Description: "Final diagnosis or disposition",
				Required:    true,
			},
			"lessons_learned": {
				Type:        gollem.TypeString,
				Description: "Optional teaching point",
			},
			"functional_status": {
				Type:        gollem.TypeObject,
				Description: "Optional functional status of the patient",
				Properties: map[string]*gollem.Parameter{
					"kind": {
						Type:     gollem.TypeString,
						Required: true,
						Enum:     []string{
							string(model.FunctionalStatusIndependent),
							string(model.FunctionalStatusAssisted),
							string(model.FunctionalStatusDependent),
						},
					},
					"detail": {Type: gollem.TypeString},
				},
			},
		},
	}
}

func synthesisSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "CaseSynthesisResponse",
		Description: "Insights shared across similar clinical cases",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"common_patterns": required(stringArray("Patterns shared by multiple cases")),
			"typical_workup":  required(stringArray("Commonly performed workup")),
			"pitfalls":        required(stringArray("Pitfalls observed across cases")),
		},
	}
}
