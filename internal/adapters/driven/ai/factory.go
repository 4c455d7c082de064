// Package ai builds the generation and embedding adapters from settings.
package ai

import (
	"fmt"
	"slices"

	ollamaembed "github.com/custodia-labs/yaar-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/yaar-cli/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/yaar-cli/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/yaar-cli/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/yaar-cli/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
)

type (
	llmFactory       func(*domain.LLMSettings) (driven.LLMService, error)
	embeddingFactory func(*domain.EmbeddingSettings) (driven.EmbeddingService, error)
)

var llmFactories = map[domain.AIProvider]llmFactory{
	domain.AIProviderOllama: func(s *domain.LLMSettings) (driven.LLMService, error) {
		return ollamallm.NewLLMService(ollamallm.LLMConfig{BaseURL: s.BaseURL, Model: s.Model}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.LLMSettings) (driven.LLMService, error) {
		svc, err := openaillm.NewLLMService(openaillm.LLMConfig{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
	domain.AIProviderAnthropic: func(s *domain.LLMSettings) (driven.LLMService, error) {
		svc, err := anthropicllm.NewLLMService(anthropicllm.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
}

var embeddingFactories = map[domain.AIProvider]embeddingFactory{
	domain.AIProviderOllama: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return createOllamaEmbedding(s), nil
	},
	domain.AIProviderOpenAI: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
}

// CreateLLMService returns the generation adapter for the configured provider.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no LLM settings", domain.ErrInvalidInput)
	}
	build, ok := llmFactories[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: LLM provider %q (supported: %s)",
			domain.ErrUnsupportedType, settings.Provider, supported(llmFactories))
	}
	return build(settings)
}

// CreateEmbeddingService returns the embedding adapter for the configured provider.
// Anthropic has no embedding endpoint.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no embedding settings", domain.ErrInvalidInput)
	}
	build, ok := embeddingFactories[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: embedding provider %q (supported: %s)",
			domain.ErrUnsupportedType, settings.Provider, supported(embeddingFactories))
	}
	return build(settings)
}

// createOllamaEmbedding seeds the vector size from the known model table;
// the adapter corrects it after the first response.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}

func supported[F any](factories map[domain.AIProvider]F) string {
	names := make([]string, 0, len(factories))
	for p := range factories {
		names = append(names, string(p))
	}
	slices.Sort(names)
	return fmt.Sprint(names)
}
