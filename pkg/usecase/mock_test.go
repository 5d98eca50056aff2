package usecase_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/hygieia/pkg/domain/interfaces"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/domain/types"
	"github.com/secmon-lab/hygieia/pkg/service/embedder"
	"github.com/secmon-lab/hygieia/pkg/service/notetext"
)

// mockEmbedder is a mock embedder.Service counting calls
type mockEmbedder struct {
	mu      sync.Mutex
	model   string
	calls   int
	vectors map[string][]float64
	embedFn func(ctx context.Context, text string) (*embedder.Result, error)
}

func newMockEmbedder(modelName string) *mockEmbedder {
	return &mockEmbedder{
		model:   modelName,
		vectors: map[string][]float64{},
	}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (*embedder.Result, error) {
	m.mu.Lock()
	m.calls++
	fn := m.embedFn
	vec, ok := m.vectors[text]
	modelName := m.model
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if !ok {
		vec = []float64{float64(len(text)), 1, 0.5}
	}
	return &embedder.Result{Vector: vec, Model: modelName, Dimensions: len(vec)}, nil
}

func (m *mockEmbedder) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

func (m *mockEmbedder) setModel(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = name
}

func (m *mockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSummarizer is a mock casesummary.Summarizer
type mockSummarizer struct {
	summarizeFn func(ctx context.Context, text string, docType types.DocumentType) (*model.CaseSummary, error)
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func (m *mockSummarizer) Summarize(ctx context.Context, text string, docType types.DocumentType) (*model.CaseSummary, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	if m.summarizeFn != nil {
		return m.summarizeFn(ctx, text, docType)
	}
	return &model.CaseSummary{
		Presentation: text,
		KeyFindings:  []string{},
		Outcome:      "resolved",
	}, nil
}

// mockSynthesizer is a mock casesummary.Synthesizer
type mockSynthesizer struct {
	calls        atomic.Int32
	synthesizeFn func(ctx context.Context, cases []*model.CaseSummary) (*model.SynthesisResult, error)
}

func (m *mockSynthesizer) Synthesize(ctx context.Context, cases []*model.CaseSummary) (*model.SynthesisResult, error) {
	m.calls.Add(1)
	if m.synthesizeFn != nil {
		return m.synthesizeFn(ctx, cases)
	}
	return &model.SynthesisResult{
		CommonPatterns: []string{"shared presentation"},
		TypicalWorkup:  []string{"basic labs"},
		Pitfalls:       []string{},
	}, nil
}

// textNote builds a note whose output is a JSON string, so the extracted
// text equals text
func textNote(id model.NoteID, text string) *model.Note {
	out, _ := json.Marshal(text)
	return &model.Note{
		ID:        id,
		Type:      types.DocumentTypeClinicalNote,
		Output:    out,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, int(id), 0, time.UTC),
	}
}

func seedNote(t *testing.T, repo interfaces.Repository, id model.NoteID, text string) *model.Note {
	t.Helper()
	created, err := repo.Note().Create(context.Background(), textNote(id, text))
	gt.NoError(t, err).Required()
	return created
}

// seedEmbedding stores a row hashed from the note's current text, so it is
// valid for modelName
func seedEmbedding(t *testing.T, repo interfaces.Repository, id model.NoteID, modelName string, vec []float64) {
	t.Helper()
	note, err := repo.Note().Get(context.Background(), id)
	gt.NoError(t, err).Required()
	hash := model.NewContentHash(notetext.New().ExtractText(note))
	seedEmbeddingWithHash(t, repo, id, modelName, vec, hash)
}

func seedEmbeddingWithHash(t *testing.T, repo interfaces.Repository, id model.NoteID, modelName string, vec []float64, hash model.ContentHash) {
	t.Helper()
	emb := model.NewEmbedding(id, modelName, vec, hash)
	gt.NoError(t, repo.Embedding().Upsert(context.Background(), emb)).Required()
}
