package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/metrics"
)

// Reasoner generates match explanations via OpenAI-compatible chat completions.
type Reasoner struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// ReasonerConfig holds the reasoning provider settings.
type ReasonerConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

var _ domain.Reasoner = (*Reasoner)(nil)

// NewReasoner creates an OpenAI-compatible chat reasoning provider.
func NewReasoner(cfg *ReasonerConfig) *Reasoner {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Reasoner{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// Explain implements domain.Reasoner: one chat completion per prompt.
func (r *Reasoner) Explain(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.ReasoningRequestsTotal.WithLabelValues("openai", r.model, "error").Inc()
		return "", classifyAPIError("reasoning", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.ReasoningRequestsTotal.WithLabelValues("openai", r.model, "error").Inc()
		return "", fmt.Errorf("empty reasoning response: %w", domain.ErrServiceUnavailable)
	}

	metrics.ReasoningRequestsTotal.WithLabelValues("openai", r.model, "success").Inc()
	metrics.ReasoningRequestDuration.WithLabelValues("openai", r.model).Observe(duration.Seconds())

	return resp.Choices[0].Message.Content, nil
}
