package domain

import (
	"path/filepath"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// SupportsEmbeddings returns true if this provider offers an embedding API.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOpenAI || p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// SamplingSettings fixes the generation parameters for reproducible runs.
type SamplingSettings struct {
	Temperature float32
	TopP        float32
	Seed        int
}

// RetrySettings configures generation backoff.
type RetrySettings struct {
	// RateLimitWait is the sleep after a rate-limit signal.
	RateLimitWait time.Duration

	// MalformedWait is the sleep after a malformed payload.
	MalformedWait time.Duration

	// MaxWait caps any single sleep. Zero means no cap.
	MaxWait time.Duration

	// MaxAttempts caps generation attempts per call. Zero means unbounded.
	MaxAttempts int

	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64
}

// PacingSettings configures inter-unit sleeps per stage.
type PacingSettings struct {
	Axis           time.Duration
	Bayt           time.Duration
	Repair         time.Duration
	RejectCooldown time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	// LLM holds generation provider settings.
	LLM LLMSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// Sampling holds fixed generation parameters.
	Sampling SamplingSettings

	// Retry holds generation backoff settings.
	Retry RetrySettings

	// Pacing holds inter-unit sleeps.
	Pacing PacingSettings

	// PromptVersion selects the prompt set.
	PromptVersion string
}

// DefaultPromptVersion is the frozen prompt set used for the v1 corpus.
const DefaultPromptVersion = "v1.0"

// DefaultAppSettings returns settings with the values used to build the v1 corpus.
// API keys are left empty and must come from config or the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultLLMModels()[AIProviderOpenAI],
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    "text-embedding-3-small",
		},
		Sampling: SamplingSettings{
			Temperature: 0,
			TopP:        1,
			Seed:        42,
		},
		Retry: RetrySettings{
			RateLimitWait: time.Second,
			MalformedWait: 500 * time.Millisecond,
		},
		Pacing: PacingSettings{
			Axis:           200 * time.Millisecond,
			Bayt:           250 * time.Millisecond,
			Repair:         250 * time.Millisecond,
			RejectCooldown: 300 * time.Millisecond,
		},
		PromptVersion: DefaultPromptVersion,
	}
}

// AllLLMProviders returns the providers that can serve generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOpenAI, AIProviderAnthropic, AIProviderOllama}
}

// AllEmbeddingProviders returns the providers that can serve embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOpenAI, AIProviderOllama}
}

// DefaultLLMModels returns the default model for each provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4.1",
		AIProviderAnthropic: "claude-3-5-sonnet-20241022",
	}
}

// EmbeddingDimensions returns known dimensions for embedding models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
	}
}

// Layout resolves the on-disk location of every pipeline file under a data directory.
type Layout struct {
	DataDir string
}

// NewLayout returns a layout rooted at dataDir.
func NewLayout(dataDir string) Layout {
	if dataDir == "" {
		dataDir = "data"
	}
	return Layout{DataDir: dataDir}
}

func (l Layout) join(parts ...string) string {
	return filepath.Join(append([]string{l.DataDir}, parts...)...)
}

// RawCorpus is the raw couplet corpus with prose insight.
func (l Layout) RawCorpus() string { return l.join("raw", "ghazals_with_insight.jsonl") }

// Axis is the poem axis annotations.
func (l Layout) Axis() string { return l.join("annotations", "ghazal_axis_v1.jsonl") }

// BaytV1 is the extracted couplet annotations.
func (l Layout) BaytV1() string { return l.join("annotations", "bayt_annotations_v1.jsonl") }

// BaytV11 is the repaired couplet annotations.
func (l Layout) BaytV11() string { return l.join("annotations", "bayt_annotations_v1_1.jsonl") }

// BaytV12 is the explicit-prefix normalized annotations.
func (l Layout) BaytV12() string { return l.join("annotations", "bayt_annotations_v1_2.jsonl") }

// BaytV13 is the canonical annotations.
func (l Layout) BaytV13() string { return l.join("annotations", "bayt_annotations_v1_3.jsonl") }

// Lenses is the optional lens tag file.
func (l Layout) Lenses() string { return l.join("annotations", "bayt_lenses_v1.jsonl") }

// Rejections is the rejected affect audit log.
func (l Layout) Rejections() string { return l.join("logs", "rejected_affects_v1.jsonl") }

// RunJournal is the stage run history database directory.
func (l Layout) RunJournal() string { return l.join("logs") }

// Dataset is the canonical couplet dataset.
func (l Layout) Dataset() string { return l.join("datasets", "bayts_canonical_v1.jsonl") }

// Embeddings is the couplet embedding file.
func (l Layout) Embeddings() string { return l.join("embeddings", "bayts_embeddings.jsonl") }
