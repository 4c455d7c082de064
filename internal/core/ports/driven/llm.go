// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LLMService provides chat completion against a hosted or local model.
//
// Implementations must report a rate-limit response by returning an error
// that wraps domain.ErrRateLimited, so callers can back off and retry.
//
// Implementations include:
//   - OpenAI (GPT-4.1)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Chat conducts a single completion over the given messages.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures sampling for one completion.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate. Zero uses the provider default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float32

	// TopP is the nucleus sampling mass.
	TopP float32

	// Seed requests reproducible sampling where the provider supports it.
	Seed *int

	// JSONObject asks the provider to constrain output to a JSON object.
	JSONObject bool
}
