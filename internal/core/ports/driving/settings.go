package driving

import (
	"context"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings, merged over the defaults.
	Get() (*domain.AppSettings, error)

	// Save persists settings.
	Save(settings *domain.AppSettings) error

	// SetLLMProvider configures the generation provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks that current settings can drive the pipeline.
	Validate() error

	// GetDefaults returns the default settings.
	GetDefaults() domain.AppSettings

	// ValidateLLMConfig pings the configured generation provider.
	ValidateLLMConfig(ctx context.Context) error

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig(ctx context.Context) error
}
