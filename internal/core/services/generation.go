package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/yaar-cli/internal/logger"
)

// RetryPolicy controls how the generation client backs off.
type RetryPolicy struct {
	// RateLimitWait is slept after a rate-limit response.
	RateLimitWait time.Duration

	// MalformedWait is slept after a payload that is not a JSON object.
	MalformedWait time.Duration

	// MaxWait caps a single sleep. Zero means no cap.
	MaxWait time.Duration

	// MaxAttempts caps calls per request. Zero retries forever.
	MaxAttempts int
}

// NewRetryPolicy builds a policy from settings.
func NewRetryPolicy(s domain.RetrySettings) RetryPolicy {
	return RetryPolicy{
		RateLimitWait: s.RateLimitWait,
		MalformedWait: s.MalformedWait,
		MaxWait:       s.MaxWait,
		MaxAttempts:   s.MaxAttempts,
	}
}

func (p RetryPolicy) capped(d time.Duration) time.Duration {
	if p.MaxWait > 0 && d > p.MaxWait {
		return p.MaxWait
	}
	return d
}

func (p RetryPolicy) exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

// sleeper pauses for d or until ctx is done.
type sleeper func(ctx context.Context, d time.Duration) error

func sleepWithCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var jsonFence = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// GenerationClient wraps an LLM with fixed sampling and retry on
// rate limits and malformed payloads.
type GenerationClient struct {
	llm      driven.LLMService
	sampling domain.SamplingSettings
	policy   RetryPolicy
	limiter  *rate.Limiter
	progress driven.ProgressReporter
	stage    domain.Stage
	sleep    sleeper
}

// GenerationConfig configures a GenerationClient.
type GenerationConfig struct {
	Sampling domain.SamplingSettings
	Policy   RetryPolicy

	// RequestsPerSecond paces calls with a token bucket. Zero disables pacing.
	RequestsPerSecond float64
}

// NewGenerationClient creates a generation client over llm.
func NewGenerationClient(llm driven.LLMService, cfg GenerationConfig, progress driven.ProgressReporter) *GenerationClient {
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if progress == nil {
		progress = nopProgress{}
	}
	return &GenerationClient{
		llm:      llm,
		sampling: cfg.Sampling,
		policy:   cfg.Policy,
		limiter:  limiter,
		progress: progress,
		sleep:    sleepWithCtx,
	}
}

// ForStage returns a client that tags its progress notices with stage.
// The limiter is shared with the receiver.
func (c *GenerationClient) ForStage(stage domain.Stage) *GenerationClient {
	out := *c
	out.stage = stage
	return &out
}

// Model returns the underlying model name.
func (c *GenerationClient) Model() string {
	return c.llm.ModelName()
}

// Text returns the trimmed completion for a system and user prompt.
func (c *GenerationClient) Text(ctx context.Context, system, user string) (string, error) {
	var out string
	err := c.retry(ctx, system, user, false, func(content string) error {
		out = strings.TrimSpace(content)
		return nil
	})
	return out, err
}

// JSON returns the completion parsed as a JSON object. A payload wrapped in a
// markdown code fence is accepted.
func (c *GenerationClient) JSON(ctx context.Context, system, user string) (map[string]any, error) {
	var out map[string]any
	err := c.retry(ctx, system, user, true, func(content string) error {
		obj, err := decodeObject(content)
		if err != nil {
			return err
		}
		out = obj
		return nil
	})
	return out, err
}

func (c *GenerationClient) retry(
	ctx context.Context,
	system, user string,
	jsonObject bool,
	accept func(string) error,
) error {
	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: user},
	}
	seed := c.sampling.Seed
	opts := driven.ChatOptions{
		Temperature: c.sampling.Temperature,
		TopP:        c.sampling.TopP,
		Seed:        &seed,
		JSONObject:  jsonObject,
	}

	for attempt := 1; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		content, err := c.llm.Chat(ctx, messages, opts)
		var wait time.Duration
		switch {
		case err == nil:
			err = accept(content)
			if err == nil {
				return nil
			}
			wait = c.policy.capped(c.policy.MalformedWait)
			c.progress.Report(domain.Progress{Stage: c.stage, Outcome: domain.OutcomeRetry, Attempt: attempt, Wait: wait})
			logger.Debug("malformed payload on attempt %d: %v", attempt, err)
		case errors.Is(err, domain.ErrRateLimited):
			wait = c.policy.capped(c.policy.RateLimitWait)
			c.progress.Report(domain.Progress{Stage: c.stage, Outcome: domain.OutcomeRateLimit, Attempt: attempt, Wait: wait})
		default:
			return fmt.Errorf("generate: %w", err)
		}

		if c.policy.exhausted(attempt) {
			return fmt.Errorf("%w: after %d attempts: %w", domain.ErrRetriesExhausted, attempt, err)
		}
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// decodeObject parses content as a JSON object, falling back to the body of
// a markdown code fence.
func decodeObject(content string) (map[string]any, error) {
	content = strings.TrimSpace(content)

	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj, nil
	}

	if m := jsonFence.FindStringSubmatch(content); len(m) >= 2 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &obj); err == nil && obj != nil {
			return obj, nil
		}
	}

	return nil, fmt.Errorf("%w: not a JSON object", domain.ErrMalformedPayload)
}

type nopProgress struct{}

func (nopProgress) Report(domain.Progress)      {}
func (nopProgress) Summary(*domain.StageReport) {}
