package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyTemperature     = "sampling.temperature"
	keyTopP            = "sampling.top_p"
	keySeed            = "sampling.seed"
	keyRateLimitWait   = "retry.rate_limit_wait_ms"
	keyMalformedWait   = "retry.malformed_wait_ms"
	keyMaxWait         = "retry.max_wait_ms"
	keyMaxAttempts     = "retry.max_attempts"
	keyRequestsPerSec  = "limits.requests_per_second"
	keyPaceAxis        = "pacing.axis_ms"
	keyPaceBayt        = "pacing.bayt_ms"
	keyPaceRepair      = "pacing.repair_ms"
	keyPaceRejectCool  = "pacing.reject_cooldown_ms"
	keyPromptVersion   = "prompts.version"
	defaultOllamaURL   = "http://localhost:11434"
	envOpenAIAPIKey    = "OPENAI_API_KEY"
	envAnthropicAPIKey = "ANTHROPIC_API_KEY"
	defaultEmbedOllama = "nomic-embed-text"
	defaultEmbedOpenAI = "text-embedding-3-small"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// Get retrieves current application settings. API keys absent from the
// config fall back to the provider's environment variable.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, ""),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, ""),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		Sampling: domain.SamplingSettings{
			Temperature: float32(s.getFloat(keyTemperature, float64(defaults.Sampling.Temperature))),
			TopP:        float32(s.getFloat(keyTopP, float64(defaults.Sampling.TopP))),
			Seed:        s.getInt(keySeed, defaults.Sampling.Seed),
		},
		Retry: domain.RetrySettings{
			RateLimitWait:     s.getMillis(keyRateLimitWait, defaults.Retry.RateLimitWait),
			MalformedWait:     s.getMillis(keyMalformedWait, defaults.Retry.MalformedWait),
			MaxWait:           s.getMillis(keyMaxWait, defaults.Retry.MaxWait),
			MaxAttempts:       s.getInt(keyMaxAttempts, defaults.Retry.MaxAttempts),
			RequestsPerSecond: s.getFloat(keyRequestsPerSec, defaults.Retry.RequestsPerSecond),
		},
		Pacing: domain.PacingSettings{
			Axis:           s.getMillis(keyPaceAxis, defaults.Pacing.Axis),
			Bayt:           s.getMillis(keyPaceBayt, defaults.Pacing.Bayt),
			Repair:         s.getMillis(keyPaceRepair, defaults.Pacing.Repair),
			RejectCooldown: s.getMillis(keyPaceRejectCool, defaults.Pacing.RejectCooldown),
		},
		PromptVersion: s.getString(keyPromptVersion, defaults.PromptVersion),
	}

	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}
	if settings.Embedding.Model == "" {
		settings.Embedding.Model = defaultEmbeddingModel(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envAPIKey(settings.LLM.Provider)
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envAPIKey(settings.Embedding.Provider)
	}

	return settings, nil
}

// Save persists application settings. Keys taken from the environment are not written.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyTemperature, float64(settings.Sampling.Temperature)},
		{keyTopP, float64(settings.Sampling.TopP)},
		{keySeed, int64(settings.Sampling.Seed)},
		{keyRateLimitWait, settings.Retry.RateLimitWait.Milliseconds()},
		{keyMalformedWait, settings.Retry.MalformedWait.Milliseconds()},
		{keyMaxWait, settings.Retry.MaxWait.Milliseconds()},
		{keyMaxAttempts, int64(settings.Retry.MaxAttempts)},
		{keyRequestsPerSec, settings.Retry.RequestsPerSecond},
		{keyPaceAxis, settings.Pacing.Axis.Milliseconds()},
		{keyPaceBayt, settings.Pacing.Bayt.Milliseconds()},
		{keyPaceRepair, settings.Pacing.Repair.Milliseconds()},
		{keyPaceRejectCool, settings.Pacing.RejectCooldown.Milliseconds()},
		{keyPromptVersion, settings.PromptVersion},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.LLM.APIKey != "" && settings.LLM.APIKey != s.envAPIKey(settings.LLM.Provider) {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.envAPIKey(settings.Embedding.Provider) {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}

	return nil
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: LLM provider %q", domain.ErrInvalidInput, provider)
	}
	if apiKey == "" {
		apiKey = s.envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	settings.LLM.BaseURL = ""
	if provider == domain.AIProviderOllama {
		settings.LLM.BaseURL = defaultOllamaURL
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", domain.ErrInvalidInput, provider)
	}
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if apiKey == "" {
		apiKey = s.envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = defaultEmbeddingModel(provider)
	}
	settings.Embedding.BaseURL = ""
	if provider == domain.AIProviderOllama {
		settings.Embedding.BaseURL = defaultOllamaURL
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that current settings can drive the pipeline.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("%w: %s needs an API key", domain.ErrLLMUnavailable, settings.LLM.Provider))
	}
	if settings.Sampling.TopP <= 0 || settings.Sampling.TopP > 1 {
		errs = append(errs, fmt.Errorf("%w: sampling.top_p must be in (0, 1]", domain.ErrInvalidInput))
	}
	if settings.Sampling.Temperature < 0 {
		errs = append(errs, fmt.Errorf("%w: sampling.temperature must not be negative", domain.ErrInvalidInput))
	}
	if settings.Retry.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("%w: retry.max_attempts must not be negative", domain.ErrInvalidInput))
	}
	if settings.PromptVersion == "" {
		errs = append(errs, fmt.Errorf("%w: prompts.version is empty", domain.ErrInvalidInput))
	}
	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(ctx, &settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(ctx, &settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * time.Millisecond
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) envAPIKey(provider domain.AIProvider) string {
	var name string
	switch provider {
	case domain.AIProviderOpenAI:
		name = envOpenAIAPIKey
	case domain.AIProviderAnthropic:
		name = envAnthropicAPIKey
	default:
		return ""
	}
	val, _ := s.lookupEnv(name)
	return val
}

func defaultEmbeddingModel(provider domain.AIProvider) string {
	if provider == domain.AIProviderOllama {
		return defaultEmbedOllama
	}
	return defaultEmbedOpenAI
}
