package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/cli/config"
	"github.com/secmon-lab/hygieia/pkg/domain/interfaces"
	"github.com/secmon-lab/hygieia/pkg/service/casesummary"
	"github.com/secmon-lab/hygieia/pkg/service/embedder"
	"github.com/secmon-lab/hygieia/pkg/usecase"
	"github.com/secmon-lab/hygieia/pkg/utils/logging"
	"github.com/secmon-lab/hygieia/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// runtimeConfig groups the flag sets shared by commands that touch the
// store and the LLM
type runtimeConfig struct {
	app  config.App
	repo config.Repository
	llm  config.LLM
}

func (rc *runtimeConfig) flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, rc.app.Flags()...)
	flags = append(flags, rc.repo.Flags()...)
	flags = append(flags, rc.llm.Flags()...)
	return flags
}

type runtime struct {
	appCfg *config.AppConfig
	repo   interfaces.Repository
	uc     *usecase.UseCases
}

func (r *runtime) Close(ctx context.Context) {
	safe.Close(ctx, "repository", r.repo)
}

// setup loads the config file, opens the repository and wires use cases.
// The retrieval pipeline is enabled only when withSummary is true.
func (rc *runtimeConfig) setup(ctx context.Context, withSummary bool) (*runtime, error) {
	appCfg, err := rc.app.Configure()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load configuration")
	}
	if appCfg.Embedding.Model != "" {
		rc.llm.SetEmbeddingModel(appCfg.Embedding.Model)
	}

	llmClient, err := rc.llm.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure LLM client")
	}

	embedderSvc, err := embedder.New(llmClient, rc.llm.EmbeddingModel(),
		embedder.WithDimensions(appCfg.Embedding.Dimensions))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embedder")
	}

	opts := []usecase.Option{
		usecase.WithRetrievalConcurrency(appCfg.Retrieval.Concurrency),
	}
	if withSummary {
		summarySvc, err := casesummary.New(llmClient)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create case summary service")
		}
		opts = append(opts, usecase.WithCaseSummary(summarySvc))
	}

	repo, err := rc.repo.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}

	logging.Default().Info("Runtime configured",
		"app", appCfg,
		slog.GroupAttrs("llm", rc.llm.LogAttrs()...),
		slog.GroupAttrs("repository", rc.repo.LogAttrs()...),
	)

	return &runtime{
		appCfg: appCfg,
		repo:   repo,
		uc:     usecase.New(repo, embedderSvc, opts...),
	}, nil
}
