package casesummary_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/domain/types"
	"github.com/secmon-lab/hygieia/pkg/service/casesummary"
)

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	generateFn func(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.generateFn(ctx, input, opts...)
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, errors.New("not implemented")
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.generateFn(ctx, input)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, errors.New("not implemented")
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient is a mock gollem LLMClient for testing
type mockLLMClient struct {
	newSessionFn func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return c.newSessionFn(ctx, options...)
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func respondWith(text string) *mockLLMClient {
	return &mockLLMClient{
		newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
			return &mockLLMSession{
				generateFn: func(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
					return &gollem.Response{Texts: []string{text}}, nil
				},
			}, nil
		},
	}
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()

	t.Run("valid response is converted", func(t *testing.T) {
		svc, err := casesummary.New(respondWith(`{
			"presentation": " 67yo with acute dyspnea ",
			"key_findings": ["elevated BNP", " ", "bilateral crackles"],
			"workup_performed": ["chest x-ray", "echocardiogram"],
			"outcome": "acute decompensated heart failure",
			"lessons_learned": "check medication adherence",
			"functional_status": {"kind": "assisted", "detail": "walker"}
		}`))
		gt.NoError(t, err).Required()

		s, err := svc.Summarize(ctx, "dyspnea note", types.DocumentTypeDischargeSummary)
		gt.NoError(t, err).Required()
		gt.String(t, s.Presentation).Equal("67yo with acute dyspnea")
		gt.Value(t, s.KeyFindings).Equal([]string{"elevated BNP", "bilateral crackles"})
		gt.Value(t, s.WorkupPerformed).Equal([]string{"chest x-ray", "echocardiogram"})
		gt.String(t, s.Outcome).Equal("acute decompensated heart failure")
		gt.Value(t, s.DocumentType).Equal(types.DocumentTypeDischargeSummary)
		gt.Value(t, s.LessonsLearned).NotNil()
		gt.String(t, *s.LessonsLearned).Equal("check medication adherence")
		gt.Value(t, s.FunctionalStatus).NotNil()
		gt.Value(t, s.FunctionalStatus.Kind).Equal(model.FunctionalStatusAssisted)
		gt.String(t, s.FunctionalStatus.Detail).Equal("walker")
	})

	t.Run("optional fields may be omitted", func(t *testing.T) {
		svc, err := casesummary.New(respondWith(`{
			"presentation": "fever",
			"key_findings": [],
			"workup_performed": [],
			"outcome": "viral syndrome",
			"lessons_learned": "  "
		}`))
		gt.NoError(t, err).Required()

		s, err := svc.Summarize(ctx, "fever note", types.DocumentTypeClinicalNote)
		gt.NoError(t, err).Required()
		gt.Value(t, s.LessonsLearned).Nil()
		gt.Value(t, s.FunctionalStatus).Nil()
		gt.Array(t, s.KeyFindings).Length(0)
	})

	t.Run("unknown functional status is rejected", func(t *testing.T) {
		svc, err := casesummary.New(respondWith(`{
			"presentation": "fall",
			"key_findings": [],
			"workup_performed": [],
			"outcome": "hip fracture",
			"functional_status": {"kind": "bedridden"}
		}`))
		gt.NoError(t, err).Required()

		_, err = svc.Summarize(ctx, "fall note", types.DocumentTypeConsult)
		gt.Value(t, err).NotNil()
		gt.Bool(t, errors.Is(err, casesummary.ErrInvalidResponse)).True()
	})

	t.Run("missing required field is rejected", func(t *testing.T) {
		svc, err := casesummary.New(respondWith(`{"presentation": "fever", "key_findings": [], "workup_performed": []}`))
		gt.NoError(t, err).Required()

		_, err = svc.Summarize(ctx, "note", types.DocumentTypeClinicalNote)
		gt.Value(t, err).NotNil()
		gt.Bool(t, errors.Is(err, casesummary.ErrInvalidResponse)).True()
	})

	t.Run("unparsable output is rejected", func(t *testing.T) {
		svc, err := casesummary.New(respondWith("Sure! Here is the summary"))
		gt.NoError(t, err).Required()

		_, err = svc.Summarize(ctx, "note", types.DocumentTypeClinicalNote)
		gt.Value(t, err).NotNil()
		gt.Bool(t, errors.Is(err, casesummary.ErrInvalidResponse)).True()
	})

	t.Run("session error is returned", func(t *testing.T) {
		sessionErr := errors.New("rate limited")
		svc, err := casesummary.New(&mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return nil, sessionErr
			},
		})
		gt.NoError(t, err).Required()

		_, err = svc.Summarize(ctx, "note", types.DocumentTypeClinicalNote)
		gt.Bool(t, errors.Is(err, sessionErr)).True()
	})

	t.Run("empty text is rejected without LLM call", func(t *testing.T) {
		called := false
		svc, err := casesummary.New(&mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				called = true
				return nil, errors.New("unexpected")
			},
		})
		gt.NoError(t, err).Required()

		_, err = svc.Summarize(ctx, "   ", types.DocumentTypeClinicalNote)
		gt.Value(t, err).NotNil()
		gt.Bool(t, called).False()
	})
}

func TestSynthesize(t *testing.T) {
	ctx := context.Background()
	cases := []*model.CaseSummary{
		{NoteID: 1, DocumentType: types.DocumentTypeClinicalNote, Presentation: "chest pain", Outcome: "NSTEMI", Similarity: 0.91},
		{NoteID: 2, DocumentType: types.DocumentTypeConsult, Presentation: "epigastric pain", Outcome: "inferior MI", Similarity: 0.84},
	}

	t.Run("valid response is converted", func(t *testing.T) {
		svc, err := casesummary.New(respondWith(`{
			"common_patterns": ["atypical chest pain"],
			"typical_workup": ["serial troponin", "ECG"],
			"pitfalls": ["attributing pain to GI cause"]
		}`))
		gt.NoError(t, err).Required()

		res, err := svc.Synthesize(ctx, cases)
		gt.NoError(t, err).Required()
		gt.Value(t, res.CommonPatterns).Equal([]string{"atypical chest pain"})
		gt.Value(t, res.TypicalWorkup).Equal([]string{"serial troponin", "ECG"})
		gt.Value(t, res.Pitfalls).Equal([]string{"attributing pain to GI cause"})
	})

	t.Run("empty insights are rejected", func(t *testing.T) {
		svc, err := casesummary.New(respondWith(`{"common_patterns": [], "typical_workup": [""], "pitfalls": []}`))
		gt.NoError(t, err).Required()

		_, err = svc.Synthesize(ctx, cases)
		gt.Bool(t, errors.Is(err, casesummary.ErrInvalidResponse)).True()
	})

	t.Run("no cases is an error", func(t *testing.T) {
		svc, err := casesummary.New(respondWith(`{}`))
		gt.NoError(t, err).Required()

		_, err = svc.Synthesize(ctx, nil)
		gt.Value(t, err).NotNil()
	})
}

func captureSchema(t *testing.T, call func(svc casesummary.Service) error) *gollem.Parameter {
	t.Helper()
	var schema *gollem.Parameter
	svc, err := casesummary.New(&mockLLMClient{
		newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
			cfg := gollem.NewSessionConfig(options...)
			schema = cfg.ResponseSchema()
			return nil, errors.New("stop")
		},
	})
	gt.NoError(t, err).Required()
	gt.Value(t, call(svc)).NotNil()
	gt.Value(t, schema).NotNil()
	return schema
}

func TestResponseSchema(t *testing.T) {
	ctx := context.Background()

	t.Run("summary schema marks mandatory fields as required", func(t *testing.T) {
		schema := captureSchema(t, func(svc casesummary.Service) error {
			_, err := svc.Summarize(ctx, "dyspnea note", types.DocumentTypeClinicalNote)
			return err
		})

		for _, name := range []string{"presentation", "key_findings", "workup_performed", "outcome"} {
			gt.Bool(t, schema.Properties[name].Required).True()
		}
		gt.Bool(t, schema.Properties["lessons_learned"].Required).False()
		gt.Bool(t, schema.Properties["functional_status"].Required).False()
		gt.Bool(t, schema.Properties["functional_status"].Properties["kind"].Required).True()
		gt.Bool(t, schema.Properties["functional_status"].Properties["detail"].Required).False()
	})

	t.Run("synthesis schema requires every insight list", func(t *testing.T) {
		schema := captureSchema(t, func(svc casesummary.Service) error {
			_, err := svc.Synthesize(ctx, []*model.CaseSummary{
				{NoteID: 1, Presentation: "chest pain", Outcome: "NSTEMI"},
				{NoteID: 2, Presentation: "epigastric pain", Outcome: "inferior MI"},
			})
			return err
		})

		for _, name := range []string{"common_patterns", "typical_workup", "pitfalls"} {
			gt.Bool(t, schema.Properties[name].Required).True()
		}
	})

	t.Run("prompt is sent as a single text input", func(t *testing.T) {
		var got []gollem.Input
		svc, err := casesummary.New(&mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					generateFn: func(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
						got = input
						return &gollem.Response{Texts: []string{`{"presentation": "p", "key_findings": [], "workup_performed": [], "outcome": "o"}`}}, nil
					},
				}, nil
			},
		})
		gt.NoError(t, err).Required()

		_, err = svc.Summarize(ctx, "dyspnea note", types.DocumentTypeClinicalNote)
		gt.NoError(t, err).Required()
		gt.Array(t, got).Length(1)
		text, ok := got[0].(gollem.Text)
		gt.Bool(t, ok).True()
		gt.String(t, string(text)).Contains("dyspnea note")
	})
}
