package usecase

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/interfaces"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/service/casesummary"
	"github.com/secmon-lab/hygieia/pkg/service/notetext"
	"github.com/secmon-lab/hygieia/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTopK                 = 5
	MaxTopK                     = 20
	DefaultMinSimilarity        = 0.5
	DefaultSummarizeConcurrency = 5
)

// RetrieveInput identifies the query case. Exactly one of NoteID and Query
// is expected; when both are set NoteID is used.
type RetrieveInput struct {
	NoteID        *model.NoteID
	Query         string
	TopK          int      // zero means DefaultTopK
	MinSimilarity *float64 // nil means DefaultMinSimilarity
}

// RetrieveResult holds the summarized similar cases in rank order.
// SynthesizedInsights is nil when fewer than two cases were summarized or
// synthesis failed.
type RetrieveResult struct {
	Cases               []*model.CaseSummary
	SynthesizedInsights *model.SynthesisResult
}

type RetrievalUseCase struct {
	repo        interfaces.Repository
	embedding   *EmbeddingUseCase
	extractor   notetext.Extractor
	summarizer  casesummary.Summarizer
	synthesizer casesummary.Synthesizer
	concurrency int
}

// RetrievalOption configures RetrievalUseCase
type RetrievalOption func(*RetrievalUseCase)

// WithSummarizeConcurrency caps parallel summarizer calls
func WithSummarizeConcurrency(n int) RetrievalOption {
	return func(uc *RetrievalUseCase) {
		if n > 0 {
			uc.concurrency = n
		}
	}
}

func NewRetrievalUseCase(
	repo interfaces.Repository,
	embedding *EmbeddingUseCase,
	extractor notetext.Extractor,
	summarizer casesummary.Summarizer,
	synthesizer casesummary.Synthesizer,
	opts ...RetrievalOption,
) *RetrievalUseCase {
	uc := &RetrievalUseCase{
		repo:        repo,
		embedding:   embedding,
		extractor:   extractor,
		summarizer:  summarizer,
		synthesizer: synthesizer,
		concurrency: DefaultSummarizeConcurrency,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (in RetrieveInput) options() (RankOptions, error) {
	topK := in.TopK
	switch {
	case topK == 0:
		topK = DefaultTopK
	case topK < 0 || topK > MaxTopK:
		return RankOptions{}, goerr.Wrap(ErrValidation, "top_k is out of range",
			goerr.V(TopKKey, in.TopK), goerr.V("max", MaxTopK))
	}

	minSim := DefaultMinSimilarity
	if in.MinSimilarity != nil {
		minSim = *in.MinSimilarity
		if math.IsNaN(minSim) || minSim < -1 || minSim > 1 {
			return RankOptions{}, goerr.Wrap(ErrValidation, "min_similarity must be within [-1, 1]",
				goerr.V(MinSimilarityKey, minSim))
		}
	}

	return RankOptions{TopK: topK, MinSimilarity: minSim}, nil
}

// Retrieve finds cases similar to the input, summarizes each of them and
// synthesizes cross-case insights. Summarization and synthesis failures
// degrade the result instead of failing the call.
func (uc *RetrievalUseCase) Retrieve(ctx context.Context, input RetrieveInput) (*RetrieveResult, error) {
	opts, err := input.options()
	if err != nil {
		return nil, err
	}

	retrievalID := uuid.Must(uuid.NewV7()).String()
	logger := logging.From(ctx).With("retrieval_id", retrievalID)
	ctx = logging.With(ctx, logger)

	query, queryModel, exclude, err := uc.acquireQueryVector(ctx, input)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to acquire query vector", goerr.V(RetrievalIDKey, retrievalID))
	}
	opts.ExcludeNoteID = exclude

	candidates, err := uc.repo.Embedding().ListNotesWithEmbeddings(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes with embeddings", goerr.V(RetrievalIDKey, retrievalID))
	}

	candidates = uc.refreshStale(ctx, candidates, queryModel, exclude)

	matches, err := RankSimilar(query, queryModel, candidates, opts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to rank similar cases", goerr.V(RetrievalIDKey, retrievalID))
	}

	logger.Info("similar cases ranked",
		"candidates", len(candidates),
		"matches", len(matches),
		"top_k", opts.TopK,
		"min_similarity", opts.MinSimilarity,
	)

	if len(matches) == 0 {
		return &RetrieveResult{Cases: []*model.CaseSummary{}}, nil
	}

	summaries := uc.summarize(ctx, matches)
	if err := ctx.Err(); err != nil {
		return nil, goerr.Wrap(err, "retrieval cancelled", goerr.V(RetrievalIDKey, retrievalID))
	}

	result := &RetrieveResult{Cases: summaries}
	if len(summaries) < 2 {
		return result, nil
	}

	insights, err := uc.synthesizer.Synthesize(ctx, summaries)
	if err != nil {
		logger.Warn("synthesis failed, returning cases without insights",
			"error", withKind(ErrSynthesisFailed, err).Error())
		return result, nil
	}
	result.SynthesizedInsights = insights

	return result, nil
}

// acquireQueryVector returns the query vector, its model, and the note to
// exclude from ranking
func (uc *RetrievalUseCase) acquireQueryVector(ctx context.Context, input RetrieveInput) ([]float64, string, *model.NoteID, error) {
	query := strings.TrimSpace(input.Query)

	if input.NoteID != nil {
		if query != "" {
			logging.From(ctx).Info("both note_id and query given, using note_id", "note_id", *input.NoteID)
		}

		note, err := uc.repo.Note().Get(ctx, *input.NoteID)
		if err != nil {
			return nil, "", nil, goerr.Wrap(err, "failed to get query note", goerr.V(model.NoteIDKey, *input.NoteID))
		}

		res, err := uc.embedding.Ensure(ctx, note, false)
		if err != nil {
			return nil, "", nil, err
		}
		id := note.ID
		return res.Vector, res.Model, &id, nil
	}

	if query == "" {
		return nil, "", nil, goerr.Wrap(ErrValidation, "either note_id or query is required")
	}

	res, err := uc.embedding.EmbedText(ctx, query)
	if err != nil {
		return nil, "", nil, err
	}
	return res.Vector, res.Model, nil, nil
}

// refreshStale regenerates candidate embeddings of queryModel whose content
// hash no longer matches the note text, so only trusted vectors are ranked.
// Candidates that cannot be refreshed are dropped. Rows of other models are
// left for RankSimilar to filter.
func (uc *RetrievalUseCase) refreshStale(ctx context.Context, candidates []*model.NoteEmbedding, queryModel string, exclude *model.NoteID) []*model.NoteEmbedding {
	logger := logging.From(ctx)
	refreshed := make([]*model.NoteEmbedding, len(candidates))

	var g errgroup.Group
	g.SetLimit(uc.concurrency)

	for i, c := range candidates {
		if c.Embedding.Model != queryModel || (exclude != nil && c.Note.ID == *exclude) {
			refreshed[i] = c
			continue
		}
		hash := model.NewContentHash(uc.extractor.ExtractText(c.Note))
		if c.Embedding.IsValidFor(hash, queryModel) {
			refreshed[i] = c
			continue
		}

		g.Go(func() error {
			res, err := uc.embedding.Ensure(ctx, c.Note, false)
			if err != nil {
				logger.Warn("dropping candidate with stale embedding",
					"note_id", c.Note.ID,
					"error", err.Error())
				return nil
			}
			logger.Debug("refreshed stale candidate embedding", "note_id", c.Note.ID)
			refreshed[i] = &model.NoteEmbedding{
				Note:      c.Note,
				Embedding: model.NewEmbedding(c.Note.ID, res.Model, res.Vector, res.ContentHash),
			}
			return nil
		})
	}
	_ = g.Wait()

	result := make([]*model.NoteEmbedding, 0, len(refreshed))
	for _, c := range refreshed {
		if c != nil {
			result = append(result, c)
		}
	}
	return result
}

// summarize calls the summarizer for each match with bounded parallelism.
// Failed matches are dropped; the rest keep rank order.
func (uc *RetrievalUseCase) summarize(ctx context.Context, matches []*model.SimilarityMatch) []*model.CaseSummary {
	logger := logging.From(ctx)
	results := make([]*model.CaseSummary, len(matches))

	var g errgroup.Group
	g.SetLimit(uc.concurrency)

	for i, match := range matches {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			text := uc.extractor.ExtractText(match.Note)
			summary, err := uc.summarizer.Summarize(ctx, text, match.Note.Type)
			if err != nil {
				logger.Warn("failed to summarize case",
					"note_id", match.Note.ID,
					"error", withKind(ErrSummarizationFailed, err).Error())
				return nil
			}

			summary.NoteID = match.Note.ID
			if summary.DocumentType == "" {
				summary.DocumentType = match.Note.Type
			}
			summary.Similarity = model.RoundSimilarity(match.Similarity)
			results[i] = summary
			return nil
		})
	}
	_ = g.Wait()

	summaries := make([]*model.CaseSummary, 0, len(results))
	for _, s := range results {
		if s != nil {
			summaries = append(summaries, s)
		}
	}
	return summaries
}
