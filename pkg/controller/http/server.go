package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/usecase"
	"github.com/secmon-lab/hygieia/pkg/utils/logging"
)

// EmbeddingUseCase is the embedding cache used by the note endpoints
type EmbeddingUseCase interface {
	Get(ctx context.Context, noteID model.NoteID) (*model.Embedding, error)
	EnsureByID(ctx context.Context, noteID model.NoteID, force bool) (*usecase.EnsureResult, error)
}

// IndexUseCase runs batch embedding
type IndexUseCase interface {
	Run(ctx context.Context, input usecase.IndexInput) (*usecase.IndexResult, error)
}

// RetrievalUseCase finds and summarizes similar cases
type RetrievalUseCase interface {
	Retrieve(ctx context.Context, input usecase.RetrieveInput) (*usecase.RetrieveResult, error)
}

type Server struct {
	router      *chi.Mux
	embeddingUC EmbeddingUseCase
	indexUC     IndexUseCase
	retrievalUC RetrievalUseCase
}

type Options func(*Server)

func WithEmbedding(uc EmbeddingUseCase) Options {
	return func(s *Server) {
		s.embeddingUC = uc
	}
}

func WithIndex(uc IndexUseCase) Options {
	return func(s *Server) {
		s.indexUC = uc
	}
}

func WithRetrieval(uc RetrievalUseCase) Options {
	return func(s *Server) {
		s.retrievalUC = uc
	}
}

// WithUseCases registers every configured use case
func WithUseCases(uc *usecase.UseCases) Options {
	return func(s *Server) {
		if uc.Embedding != nil {
			s.embeddingUC = uc.Embedding
		}
		if uc.Index != nil {
			s.indexUC = uc.Index
		}
		if uc.Retrieval != nil {
			s.retrievalUC = uc.Retrieval
		}
	}
}

func New(opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		if s.indexUC != nil {
			r.Post("/embeddings/batch", batchEmbeddingHandler(s.indexUC))
		}
		if s.embeddingUC != nil {
			r.Get("/notes/{noteID}/embedding", getEmbeddingHandler(s.embeddingUC))
			r.Post("/notes/{noteID}/embedding", ensureEmbeddingHandler(s.embeddingUC))
		}
		if s.retrievalUC != nil {
			r.Post("/similar-cases", similarCasesHandler(s.retrievalUC))
		}
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests and attaches a
// request scoped logger to the context
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		ctx := logging.With(r.Context(), logger)

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
