// Package embedding decorates embedding providers with the retry policy.
package embedding

import (
	"context"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/usecase/retry"
)

// Retrying wraps an Embedder with bounded exponential backoff. Quota and
// availability failures that survive all attempts are surfaced so callers
// can degrade (skip the record, continue the batch).
type Retrying struct {
	inner  domain.Embedder
	policy retry.Policy
}

var _ domain.Embedder = (*Retrying)(nil)
var _ domain.BatchEmbedder = (*Retrying)(nil)

// NewRetrying creates the retrying decorator.
func NewRetrying(inner domain.Embedder, policy retry.Policy) *Retrying {
	return &Retrying{inner: inner, policy: policy}
}

// Embed implements domain.Embedder.
func (r *Retrying) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return retry.Do(ctx, r.policy, func() (domain.EmbeddingResult, error) {
		return r.inner.Embed(ctx, text)
	})
}

// BatchEmbed implements domain.BatchEmbedder. The whole batch call is
// retried as a unit when the inner provider supports native batching.
func (r *Retrying) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := r.inner.(domain.BatchEmbedder); ok {
		return retry.Do(ctx, r.policy, func() (domain.BatchEmbeddingResult, error) {
			return be.BatchEmbed(ctx, texts)
		})
	}

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, text := range texts {
		res, err := r.Embed(ctx, text)
		if err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		out.Embeddings[i] = res.Embedding
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}
	return out, nil
}
