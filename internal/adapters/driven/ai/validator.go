package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// DefaultPingTimeout bounds a single connectivity check.
const DefaultPingTimeout = 5 * time.Second

const fixHint = "run 'yaar settings' to fix"

// ConfigValidator checks provider settings by building the adapter and
// pinging it. Unconfigured settings are not an error.
type ConfigValidator struct {
	pingTimeout time.Duration
}

// ValidatorOption configures a ConfigValidator.
type ValidatorOption func(*ConfigValidator)

// WithPingTimeout overrides DefaultPingTimeout.
func WithPingTimeout(d time.Duration) ValidatorOption {
	return func(v *ConfigValidator) {
		if d > 0 {
			v.pingTimeout = d
		}
	}
}

// NewConfigValidator creates a validator.
func NewConfigValidator(opts ...ValidatorOption) *ConfigValidator {
	v := &ConfigValidator{pingTimeout: DefaultPingTimeout}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateLLM pings the configured generation provider.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	svc, err := CreateLLMService(settings)
	if err != nil {
		return fmt.Errorf("%w: %w; %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	return v.ping(ctx, svc, domain.ErrLLMUnavailable)
}

// ValidateEmbedding pings the configured embedding provider.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return fmt.Errorf("%w: %w; %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	return v.ping(ctx, svc, domain.ErrEmbeddingUnavailable)
}

type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

func (v *ConfigValidator) ping(ctx context.Context, svc pinger, kind error) error {
	defer svc.Close() //nolint:errcheck // nothing to release after a probe

	ctx, cancel := context.WithTimeout(ctx, v.pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w); %s", kind, err, fixHint)
	}
	return nil
}
