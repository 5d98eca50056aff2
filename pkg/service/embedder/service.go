package embedder

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
)

// DefaultDimensions is used when no dimension is configured
const DefaultDimensions = 768

type client struct {
	llmClient  gollem.LLMClient
	model      string
	dimensions int
}

// Option is a functional option for client configuration
type Option func(*client)

// WithDimensions sets the requested vector length
func WithDimensions(n int) Option {
	return func(c *client) {
		c.dimensions = n
	}
}

// New creates an embedding Service backed by a gollem LLM client. modelName
// identifies the embedding model and version; vectors are only comparable
// when produced under the same identifier.
func New(llmClient gollem.LLMClient, modelName string, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}
	if modelName == "" {
		return nil, goerr.New("embedding model name is required")
	}

	c := &client{
		llmClient:  llmClient,
		model:      modelName,
		dimensions: DefaultDimensions,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dimensions <= 0 {
		return nil, goerr.New("embedding dimensions must be positive", goerr.V(model.DimensionsKey, c.dimensions))
	}

	return c, nil
}

func (c *client) Model() string {
	return c.model
}

// Embed generates an embedding vector for the given text
func (c *client) Embed(ctx context.Context, text string) (*Result, error) {
	embeddings, err := c.llmClient.GenerateEmbedding(ctx, c.dimensions, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding", goerr.V(model.ModelKey, c.model))
	}

	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.New("no embedding returned", goerr.V(model.ModelKey, c.model))
	}

	vec := embeddings[0]
	return &Result{
		Vector:     vec,
		Model:      c.model,
		Dimensions: len(vec),
	}, nil
}
