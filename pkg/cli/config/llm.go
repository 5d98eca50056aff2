package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/urfave/cli/v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var defaultEmbeddingModels = map[string]string{
	ProviderGemini: "text-embedding-004",
	ProviderOpenAI: "text-embedding-3-small",
}

// LLM holds configuration for the LLM client used for embeddings and case
// summaries
type LLM struct {
	provider       string
	geminiProject  string
	geminiLocation string
	openaiAPIKey   string `masq:"secret"`
	embeddingModel string
}

func (l *LLM) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Usage:       "LLM provider (gemini, openai)",
			Category:    "LLM",
			Value:       ProviderGemini,
			Sources:     cli.EnvVars("HYGIEIA_LLM_PROVIDER"),
			Destination: &l.provider,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Category:    "LLM",
			Sources:     cli.EnvVars("HYGIEIA_GEMINI_PROJECT"),
			Destination: &l.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Category:    "LLM",
			Value:       "us-central1",
			Sources:     cli.EnvVars("HYGIEIA_GEMINI_LOCATION"),
			Destination: &l.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Category:    "LLM",
			Sources:     cli.EnvVars("HYGIEIA_OPENAI_API_KEY"),
			Destination: &l.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model name (defaults per provider)",
			Category:    "LLM",
			Sources:     cli.EnvVars("HYGIEIA_EMBEDDING_MODEL"),
			Destination: &l.embeddingModel,
		},
	}
}

func (l *LLM) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("provider", l.provider),
		slog.String("gemini_project", l.geminiProject),
		slog.String("gemini_location", l.geminiLocation),
		slog.Bool("openai_api_key_set", l.openaiAPIKey != ""),
		slog.String("embedding_model", l.EmbeddingModel()),
	}
}

// EmbeddingModel returns the configured model or the provider default
func (l *LLM) EmbeddingModel() string {
	if l.embeddingModel != "" {
		return l.embeddingModel
	}
	return defaultEmbeddingModels[l.provider]
}

// SetEmbeddingModel applies a model from the config file unless the flag
// already set one
func (l *LLM) SetEmbeddingModel(name string) {
	if l.embeddingModel == "" {
		l.embeddingModel = name
	}
}

// Configure creates the LLM client for the selected provider
func (l *LLM) Configure(ctx context.Context) (gollem.LLMClient, error) {
	switch l.provider {
	case ProviderGemini:
		if l.geminiProject == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "gemini-project is required for gemini provider")
		}
		client, err := gemini.New(ctx, l.geminiProject, l.geminiLocation,
			gemini.WithEmbeddingModel(l.EmbeddingModel()),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client",
				goerr.V("project", l.geminiProject),
				goerr.V("location", l.geminiLocation))
		}
		return client, nil

	case ProviderOpenAI:
		if l.openaiAPIKey == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "openai-api-key is required for openai provider")
		}
		client, err := openai.New(ctx, l.openaiAPIKey,
			openai.WithEmbeddingModel(l.EmbeddingModel()),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create OpenAI client")
		}
		return client, nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "unknown llm provider", goerr.V("provider", l.provider))
	}
}
