// Package gemini wraps the Google GenAI API as a reasoning provider.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/metrics"
)

// Reasoner generates match explanations via the Gemini API.
type Reasoner struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// Config holds the Gemini provider settings.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

var _ domain.Reasoner = (*Reasoner)(nil)

// NewReasoner creates a Gemini reasoning provider.
func NewReasoner(ctx context.Context, cfg *Config) (*Reasoner, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Reasoner{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}, nil
}

// Explain implements domain.Reasoner.
func (r *Reasoner) Explain(ctx context.Context, prompt string) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(r.temperature),
	}
	if r.maxTokens > 0 {
		genCfg.MaxOutputTokens = int32(r.maxTokens)
	}

	start := time.Now()
	resp, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), genCfg)
	duration := time.Since(start)

	if err != nil {
		metrics.ReasoningRequestsTotal.WithLabelValues("gemini", r.model, "error").Inc()
		return "", classifyAPIError(err)
	}

	text := collectText(resp)
	if text == "" {
		metrics.ReasoningRequestsTotal.WithLabelValues("gemini", r.model, "error").Inc()
		return "", fmt.Errorf("empty reasoning response: %w", domain.ErrServiceUnavailable)
	}

	metrics.ReasoningRequestsTotal.WithLabelValues("gemini", r.model, "success").Inc()
	metrics.ReasoningRequestDuration.WithLabelValues("gemini", r.model).Observe(duration.Seconds())

	return text, nil
}

// collectText joins all non-empty text parts across candidates.
func collectText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(text)
		}
	}
	return strings.TrimSpace(b.String())
}

// classifyAPIError maps Gemini failures onto the domain error taxonomy.
func classifyAPIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return fmt.Errorf("reasoning API status %d: %w", apiErr.Code, domain.ErrQuotaExceeded)
		}
		return fmt.Errorf("reasoning API status %d: %w", apiErr.Code, domain.ErrServiceUnavailable)
	}

	return fmt.Errorf("reasoning request failed: %w: %w", domain.ErrServiceUnavailable, err)
}
