package usecase

import (
	"github.com/secmon-lab/hygieia/pkg/domain/interfaces"
	"github.com/secmon-lab/hygieia/pkg/service/casesummary"
	"github.com/secmon-lab/hygieia/pkg/service/embedder"
	"github.com/secmon-lab/hygieia/pkg/service/notetext"
)

type UseCases struct {
	repo                 interfaces.Repository
	extractor            notetext.Extractor
	caseSummary          casesummary.Service
	summarizeConcurrency int
	Embedding            *EmbeddingUseCase
	Index                *IndexUseCase
	Retrieval            *RetrievalUseCase // nil unless WithCaseSummary is given
}

type Option func(*UseCases)

// WithCaseSummary enables the retrieval pipeline
func WithCaseSummary(svc casesummary.Service) Option {
	return func(uc *UseCases) {
		uc.caseSummary = svc
	}
}

func WithExtractor(extractor notetext.Extractor) Option {
	return func(uc *UseCases) {
		uc.extractor = extractor
	}
}

func WithRetrievalConcurrency(n int) Option {
	return func(uc *UseCases) {
		uc.summarizeConcurrency = n
	}
}

func New(repo interfaces.Repository, embedderService embedder.Service, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:                 repo,
		extractor:            notetext.New(),
		summarizeConcurrency: DefaultSummarizeConcurrency,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Embedding = NewEmbeddingUseCase(repo, embedderService, uc.extractor)
	uc.Index = NewIndexUseCase(repo, uc.Embedding)
	if uc.caseSummary != nil {
		uc.Retrieval = NewRetrievalUseCase(repo, uc.Embedding, uc.extractor,
			uc.caseSummary, uc.caseSummary,
			WithSummarizeConcurrency(uc.summarizeConcurrency),
		)
	}

	return uc
}
