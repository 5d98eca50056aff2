package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/hygieia/pkg/service/embedder"
	"github.com/secmon-lab/hygieia/pkg/usecase"
	"github.com/urfave/cli/v3"
)

const DefaultIndexInterval = 10 * time.Minute

// AppConfig is the optional TOML file tuning embedding, retrieval and indexing
type AppConfig struct {
	Embedding EmbeddingConfig `toml:"embedding"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Index     IndexConfig     `toml:"index"`
}

type EmbeddingConfig struct {
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
}

type RetrievalConfig struct {
	Concurrency int `toml:"concurrency"`
}

// IndexConfig controls the periodic indexer started by serve. Interval is a
// Go duration string; "0" or an empty value disables the worker.
type IndexConfig struct {
	Limit      int    `toml:"limit"`
	ReembedAll bool   `toml:"reembed_all"`
	Interval   string `toml:"interval"`
}

// DefaultAppConfig returns the values used when no file is given
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Embedding: EmbeddingConfig{Dimensions: embedder.DefaultDimensions},
		Retrieval: RetrievalConfig{Concurrency: usecase.DefaultSummarizeConcurrency},
		Index: IndexConfig{
			Limit:    usecase.DefaultIndexLimit,
			Interval: DefaultIndexInterval.String(),
		},
	}
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if a.Embedding.Dimensions <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "embedding dimensions must be positive",
			goerr.V(FieldKey, "embedding.dimensions"), goerr.V("value", a.Embedding.Dimensions))
	}
	if a.Retrieval.Concurrency <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "retrieval concurrency must be positive",
			goerr.V(FieldKey, "retrieval.concurrency"), goerr.V("value", a.Retrieval.Concurrency))
	}
	if a.Index.Limit <= 0 || a.Index.Limit > usecase.MaxIndexLimit {
		return goerr.Wrap(ErrInvalidConfig, "index limit is out of range",
			goerr.V(FieldKey, "index.limit"), goerr.V("value", a.Index.Limit), goerr.V("max", usecase.MaxIndexLimit))
	}
	if _, err := a.IndexInterval(); err != nil {
		return err
	}
	return nil
}

// IndexInterval parses Index.Interval. Zero disables the periodic indexer.
func (a *AppConfig) IndexInterval() (time.Duration, error) {
	if a.Index.Interval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.Index.Interval)
	if err != nil {
		return 0, goerr.Wrap(ErrInvalidConfig, "invalid index interval",
			goerr.V(FieldKey, "index.interval"), goerr.V("value", a.Index.Interval))
	}
	if d < 0 {
		return 0, goerr.Wrap(ErrInvalidConfig, "index interval must not be negative",
			goerr.V(FieldKey, "index.interval"), goerr.V("value", a.Index.Interval))
	}
	return d, nil
}

// IndexInput converts the index section into the batch indexer input
func (a *AppConfig) IndexInput() usecase.IndexInput {
	return usecase.IndexInput{ReembedAll: a.Index.ReembedAll, Limit: a.Index.Limit}
}

func (a AppConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("embedding_model", a.Embedding.Model),
		slog.Int("embedding_dimensions", a.Embedding.Dimensions),
		slog.Int("retrieval_concurrency", a.Retrieval.Concurrency),
		slog.Int("index_limit", a.Index.Limit),
		slog.String("index_interval", a.Index.Interval),
	)
}

// LoadAppConfiguration loads the application configuration from a TOML file.
// Keys missing from the file keep their defaults.
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	cfg := DefaultAppConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("error", err.Error()))
	}

	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return cfg, nil
}

// App holds the --config flag
type App struct {
	path string
}

func (a *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to TOML configuration file",
			Sources:     cli.EnvVars("HYGIEIA_CONFIG"),
			Destination: &a.path,
		},
	}
}

// Configure loads the file when one is given, otherwise returns defaults
func (a *App) Configure() (*AppConfig, error) {
	if a.path == "" {
		return DefaultAppConfig(), nil
	}
	return LoadAppConfiguration(a.path)
}
