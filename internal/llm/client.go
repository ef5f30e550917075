// Package llm implements the generation-provider collaborator on top of
// the OpenAI chat completion API.
package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/pipeline-velocity/backend/internal/insight"
	"github.com/pipeline-velocity/backend/pkg/circuitbreaker"
	"github.com/pipeline-velocity/backend/pkg/config"
	"github.com/pipeline-velocity/backend/pkg/logger"
)

// Client issues exactly one chat completion per Generate call, bounded by
// the configured timeout. There is deliberately no retry around the
// request; callers fall back to the deterministic generator instead. The
// circuit breaker only refuses calls while the provider is failing.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
}

var _ insight.Provider = (*Client)(nil)

func NewClient(cfg config.LLMConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	logger.Info("LLM client initialized",
		zap.String("model", cfg.Model),
		zap.Duration("timeout", timeout),
	)

	return &Client{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		cb:          cb,
	}
}

func (c *Client) Generate(ctx context.Context, req insight.GenerationRequest) (*insight.GenerationResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.System,
	})
	for _, m := range req.Messages {
		role := m.Role
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	var result *insight.GenerationResponse
	start := time.Now()

	err := c.cb.Execute(ctx, func() error {
		resp, err := c.client.CreateChatCompletion(
			ctx,
			openai.ChatCompletionRequest{
				Model:       c.model,
				Messages:    messages,
				Temperature: c.temperature,
				MaxTokens:   c.maxTokens,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to create completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("provider returned no choices")
		}

		result = &insight.GenerationResponse{
			Content: resp.Choices[0].Message.Content,
			Usage: insight.Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
			LatencyMS: int(time.Since(start).Milliseconds()),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Completion generated",
		zap.String("task", req.Task),
		zap.Int("prompt_tokens", result.Usage.PromptTokens),
		zap.Int("completion_tokens", result.Usage.CompletionTokens),
		zap.Int("latency_ms", result.LatencyMS),
	)

	return result, nil
}
