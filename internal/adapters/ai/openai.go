package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/finpulse/finpulse/internal/adapters/config"
	"github.com/finpulse/finpulse/pkg/logger"
	"github.com/finpulse/finpulse/pkg/models"
)

// OpenAIProvider implements the LLM provider via the OpenAI chat API
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates new OpenAI provider
func NewOpenAIProvider(cfg *config.AIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

func (o *OpenAIProvider) GetName() string {
	return "openai"
}

// ScoreHeadlines sends every headline in one batched prompt and parses
// the structured response. Batching is deliberate: one call per request
// regardless of headline count. Synthetic placeholders are excluded
// from the prompt since they carry no sentiment signal.
func (o *OpenAIProvider) ScoreHeadlines(ctx context.Context, headlines []models.Headline) ([]models.ScoredHeadline, error) {
	real := make([]models.Headline, 0, len(headlines))
	for _, h := range headlines {
		if !h.Synthetic {
			real = append(real, h)
		}
	}
	if len(real) == 0 {
		return nil, fmt.Errorf("no headlines to score")
	}

	content, err := o.Complete(ctx, scoringSystemPrompt, buildScoringPrompt(real))
	if err != nil {
		return nil, fmt.Errorf("sentiment scoring call failed: %w", err)
	}

	scored, err := parseScoreResponse(content)
	if err != nil {
		return nil, err
	}

	logger.Debug("headlines scored",
		zap.Int("sent", len(real)),
		zap.Int("valid", len(scored)),
	)

	return scored, nil
}

// Complete runs one chat completion and returns the content
func (o *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	logger.Debug("chat completion",
		zap.String("model", o.model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}
