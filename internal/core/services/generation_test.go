package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

var testPolicy = RetryPolicy{
	RateLimitWait: time.Second,
	MalformedWait: 500 * time.Millisecond,
}

func TestGenerationClient_Text_TrimsAndSendsSampling(t *testing.T) {
	llm := newScriptedLLM(reply{content: "  محور غزل \n"})
	gen := newTestGen(llm, testPolicy, &recordingProgress{}, &sleepRecorder{})

	out, err := gen.Text(context.Background(), "sys", "user")

	require.NoError(t, err)
	assert.Equal(t, "محور غزل", out)
	require.Len(t, llm.calls, 1)
	opts := llm.calls[0]
	assert.Equal(t, float32(0), opts.Temperature)
	assert.Equal(t, float32(1), opts.TopP)
	require.NotNil(t, opts.Seed)
	assert.Equal(t, 42, *opts.Seed)
	assert.False(t, opts.JSONObject)
}

func TestGenerationClient_JSON_AcceptsFencedObject(t *testing.T) {
	llm := newScriptedLLM(reply{content: "```json\n{\"bayt_hint\": \"امید\", \"affect\": []}\n```"})
	gen := newTestGen(llm, testPolicy, &recordingProgress{}, &sleepRecorder{})

	obj, err := gen.JSON(context.Background(), "sys", "user")

	require.NoError(t, err)
	assert.Equal(t, "امید", obj["bayt_hint"])
	assert.True(t, llm.calls[0].JSONObject)
}

func TestGenerationClient_JSON_RetriesMalformedPayload(t *testing.T) {
	llm := newScriptedLLM(
		reply{content: "not json"},
		reply{content: "[1, 2]"},
		reply{content: `{"bayt_hint": "x", "affect": []}`},
	)
	progress := &recordingProgress{}
	sleeps := &sleepRecorder{}
	gen := newTestGen(llm, testPolicy, progress, sleeps).ForStage(domain.StageBayt)

	obj, err := gen.JSON(context.Background(), "sys", "user")

	require.NoError(t, err)
	assert.Equal(t, "x", obj["bayt_hint"])
	assert.Equal(t, 3, llm.callCount())
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, sleeps.slept)
	assert.Equal(t, []domain.Outcome{domain.OutcomeRetry, domain.OutcomeRetry}, progress.outcomes())
	assert.Equal(t, domain.StageBayt, progress.events[0].Stage)
	assert.Equal(t, 2, progress.events[1].Attempt)
}

func TestGenerationClient_RetriesRateLimit(t *testing.T) {
	limited := fmt.Errorf("status 429: %w", domain.ErrRateLimited)
	llm := newScriptedLLM(reply{err: limited}, reply{err: limited}, reply{content: "ok"})
	progress := &recordingProgress{}
	sleeps := &sleepRecorder{}
	gen := newTestGen(llm, testPolicy, progress, sleeps)

	out, err := gen.Text(context.Background(), "sys", "user")

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, sleeps.slept)
	assert.Equal(t, []domain.Outcome{domain.OutcomeRateLimit, domain.OutcomeRateLimit}, progress.outcomes())
	assert.Equal(t, time.Second, progress.events[0].Wait)
}

func TestGenerationClient_CapsWait(t *testing.T) {
	llm := newScriptedLLM(reply{err: domain.ErrRateLimited}, reply{content: "ok"})
	sleeps := &sleepRecorder{}
	policy := testPolicy
	policy.MaxWait = 100 * time.Millisecond
	gen := newTestGen(llm, policy, &recordingProgress{}, sleeps)

	_, err := gen.Text(context.Background(), "sys", "user")

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, sleeps.slept)
}

func TestGenerationClient_ExhaustsAttempts(t *testing.T) {
	llm := newScriptedLLM(reply{content: "never json"})
	sleeps := &sleepRecorder{}
	policy := testPolicy
	policy.MaxAttempts = 3
	gen := newTestGen(llm, policy, &recordingProgress{}, sleeps)

	_, err := gen.JSON(context.Background(), "sys", "user")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetriesExhausted)
	assert.ErrorIs(t, err, domain.ErrMalformedPayload)
	assert.Equal(t, 3, llm.callCount())
	assert.Len(t, sleeps.slept, 2)
}

func TestGenerationClient_DoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("connection refused")
	llm := newScriptedLLM(reply{err: boom})
	sleeps := &sleepRecorder{}
	gen := newTestGen(llm, testPolicy, &recordingProgress{}, sleeps)

	_, err := gen.Text(context.Background(), "sys", "user")

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, llm.callCount())
	assert.Empty(t, sleeps.slept)
}

func TestGenerationClient_StopsOnCancelledContext(t *testing.T) {
	llm := newScriptedLLM(reply{err: domain.ErrRateLimited})
	gen := newTestGen(llm, testPolicy, &recordingProgress{}, &sleepRecorder{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Text(ctx, "sys", "user")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, llm.callCount())
}

func TestGenerationClient_RateLimiterPacesCalls(t *testing.T) {
	llm := newScriptedLLM(reply{content: "ok"})
	gen := NewGenerationClient(llm, GenerationConfig{RequestsPerSecond: 1000}, nil)

	for range 3 {
		_, err := gen.Text(context.Background(), "sys", "user")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, llm.callCount())
}

func TestSleepWithCtx(t *testing.T) {
	require.NoError(t, sleepWithCtx(context.Background(), time.Millisecond))
	require.NoError(t, sleepWithCtx(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepWithCtx(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, sleepWithCtx(ctx, 0), context.Canceled)
}

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantKey string
		wantErr bool
	}{
		{"plain object", `{"a": 1}`, "a", false},
		{"surrounding whitespace", "\n  {\"a\": 1}  \n", "a", false},
		{"json fence", "```json\n{\"a\": 1}\n```", "a", false},
		{"bare fence", "```\n{\"a\": 1}\n```", "a", false},
		{"fence with prose", "Here you go:\n```json\n{\"a\": 1}\n```\nThanks", "a", false},
		{"array", `[{"a": 1}]`, "", true},
		{"null", `null`, "", true},
		{"prose", `I cannot help with that.`, "", true},
		{"broken fence", "```json\n{\"a\": \n```", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := decodeObject(tt.content)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrMalformedPayload)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, obj, tt.wantKey)
		})
	}
}

func TestNewRetryPolicy(t *testing.T) {
	p := NewRetryPolicy(domain.RetrySettings{
		RateLimitWait: time.Second,
		MalformedWait: time.Millisecond,
		MaxWait:       time.Minute,
		MaxAttempts:   4,
	})

	assert.Equal(t, time.Second, p.RateLimitWait)
	assert.Equal(t, time.Millisecond, p.MalformedWait)
	assert.False(t, p.exhausted(3))
	assert.True(t, p.exhausted(4))
	assert.False(t, RetryPolicy{}.exhausted(1000))
	assert.Equal(t, time.Minute, p.capped(time.Hour))
}
