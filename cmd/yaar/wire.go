package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/yaar-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/yaar-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/yaar-cli/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/yaar-cli/internal/adapters/driven/progress/console"
	"github.com/custodia-labs/yaar-cli/internal/adapters/driven/storage/jsonl"
	"github.com/custodia-labs/yaar-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/yaar-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/yaar-cli/internal/core/services"
	"github.com/custodia-labs/yaar-cli/internal/logger"
)

// bootstrap wires adapters into services. Providers that are not configured
// are left nil; the stages that need them fail with a clear error.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	configDir := opts.ConfigDir
	if configDir == "" {
		dir, err := file.DefaultConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config directory: %w", err)
		}
		configDir = dir
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}

	promptStore, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return nil, err
	}
	prompts, err := promptStore.Load(settings.PromptVersion)
	if err != nil {
		return nil, err
	}

	lexicon, err := file.NewLexiconStore(filepath.Join(configDir, "lexicon.yaml")).Load()
	if err != nil {
		return nil, err
	}

	layout := domain.NewLayout(opts.DataDir)
	store := jsonl.NewStore()

	db, err := sqlite.NewStore(ctx, layout.RunJournal())
	if err != nil {
		return nil, fmt.Errorf("open run journal: %w", err)
	}

	llm := newLLM(&settings.LLM)
	embedder := newEmbedder(&settings.Embedding)
	metrics := prometheus.NewRecorder(opts.MetricsFile)
	rejections := jsonl.NewRejectionLog(store, layout.Rejections())

	pipeline, err := services.NewPipeline(services.PipelineConfig{
		Store:      store,
		Rejections: rejections,
		LLM:        llm,
		Embedder:   embedder,
		Prompts:    prompts,
		Settings:   *settings,
		Layout:     layout,
		Progress:   console.NewReporter(os.Stdout),
		Metrics:    metrics,
		Journal:    db.RunJournal(),
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	closeAll := func() error {
		errs := []error{metrics.Flush(), rejections.Close(), db.Close()}
		if llm != nil {
			errs = append(errs, llm.Close())
		}
		if embedder != nil {
			errs = append(errs, embedder.Close())
		}
		return errors.Join(errs...)
	}

	return &cli.Services{
		Pipeline: pipeline,
		Fal:      services.NewFalService(store, embedder, services.NewFalAssembler(lexicon, nil), layout),
		Runs:     services.NewRunHistory(db.RunJournal()),
		Settings: settingsService,
		Close:    closeAll,
	}, nil
}

func newLLM(settings *domain.LLMSettings) driven.LLMService {
	if !settings.IsConfigured() {
		logger.Debug("LLM provider not configured")
		return nil
	}
	svc, err := ai.CreateLLMService(settings)
	if err != nil {
		logger.Warn("LLM provider unavailable: %v", err)
		return nil
	}
	return svc
}

func newEmbedder(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	if !settings.IsConfigured() {
		logger.Debug("embedding provider not configured")
		return nil
	}
	svc, err := ai.CreateEmbeddingService(settings)
	if err != nil {
		logger.Warn("embedding provider unavailable: %v", err)
		return nil
	}
	return svc
}
