package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	circuitBreakerThreshold = 5
	circuitBreakerResetAfter = time.Minute
	defaultModel            = "gpt-4o-mini"
	rateLimiterBurst        = 5
)

// OpenAIOptions configures NewOpenAIClient.
type OpenAIOptions struct {
	APIKey     string
	Model      string
	RPS        float64
	CallTimeout time.Duration
}

// openaiClient is the production Client implementation, grounded on
// the teacher's internal/core/llm/openai.go: a rate limiter guarding
// outbound calls, a circuit breaker tripped on consecutive failures,
// and JSON-mode chat completions. The teacher's per-method prompt
// templates (ProcessBatch, GenerateNarrative, RelevanceGate, ...) have
// no SPEC_FULL.md analogue; every caller here drives the same single
// CompleteStructured entrypoint with its own prompt and schema.
type openaiClient struct {
	client      *openai.Client
	model       string
	callTimeout time.Duration
	limiter     *rate.Limiter
	breaker     *circuitBreaker
	logger      *zerolog.Logger
}

// NewOpenAIClient builds a Client backed by the OpenAI chat completions
// API in JSON-object response-format mode.
func NewOpenAIClient(opts OpenAIOptions, logger *zerolog.Logger) Client {
	model := opts.Model
	if model == "" {
		model = defaultModel
	}

	rps := opts.RPS
	if rps <= 0 {
		rps = 1
	}

	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}

	return &openaiClient{
		client:      openai.NewClient(opts.APIKey),
		model:       model,
		callTimeout: callTimeout,
		limiter:     rate.NewLimiter(rate.Limit(rps), rateLimiterBurst),
		breaker:     newCircuitBreaker(circuitBreakerThreshold, circuitBreakerResetAfter, logger),
		logger:      logger,
	}
}

func (c *openaiClient) CompleteStructured(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := c.breaker.check(); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("llm: rate limiter: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.model
	}

	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.breaker.recordFailure()

		return nil, fmt.Errorf("llm: openai chat completion: %w", err)
	}

	c.breaker.recordSuccess()

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}

	content := resp.Choices[0].Message.Content

	if c.logger != nil {
		c.logger.Debug().Str("schema", req.SchemaName).Str("content", content).Msg("llm response")
	}

	return json.RawMessage(content), nil
}
