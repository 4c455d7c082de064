package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

func ollamaTags(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func closedServerURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return srv.URL
}

func TestConfigValidator_UnconfiguredIsValid(t *testing.T) {
	v := NewConfigValidator()

	assert.NoError(t, v.ValidateLLM(context.Background(), nil))
	assert.NoError(t, v.ValidateLLM(context.Background(), &domain.LLMSettings{Model: "test-model"}))
	assert.NoError(t, v.ValidateEmbedding(context.Background(), nil))
}

func TestConfigValidator_ValidateLLM_Ollama(t *testing.T) {
	srv := ollamaTags(t, `{"models":[{"name":"llama3.2:latest"},{"name":"nomic-embed-text:latest"}]}`)

	err := NewConfigValidator().ValidateLLM(context.Background(), &domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})

	assert.NoError(t, err)
}

func TestConfigValidator_ValidateLLM_Unreachable(t *testing.T) {
	err := NewConfigValidator().ValidateLLM(context.Background(), &domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  closedServerURL(),
	})

	require.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "unreachable")
	assert.Contains(t, err.Error(), "yaar settings")
}

func TestConfigValidator_ValidateLLM_KeylessAnthropicIsUnconfigured(t *testing.T) {
	err := NewConfigValidator().ValidateLLM(context.Background(), &domain.LLMSettings{
		Provider: domain.AIProviderAnthropic,
		Model:    "claude",
	})

	assert.NoError(t, err)
}

func TestConfigValidator_ValidateEmbedding_ModelNotPulled(t *testing.T) {
	srv := ollamaTags(t, `{"models":[{"name":"llama3.2:latest"}]}`)

	err := NewConfigValidator().ValidateEmbedding(context.Background(), &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})

	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "not pulled")
}

func TestConfigValidator_PingTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	v := NewConfigValidator(WithPingTimeout(50 * time.Millisecond))
	start := time.Now()
	err := v.ValidateEmbedding(context.Background(), &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})

	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWithPingTimeout_IgnoresNonPositive(t *testing.T) {
	v := NewConfigValidator(WithPingTimeout(0))

	assert.Equal(t, DefaultPingTimeout, v.pingTimeout)
}
