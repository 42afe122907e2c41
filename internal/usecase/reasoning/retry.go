// Package reasoning decorates reasoning providers with the retry policy.
package reasoning

import (
	"context"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/usecase/retry"
)

// Retrying wraps a Reasoner with bounded exponential backoff.
type Retrying struct {
	inner  domain.Reasoner
	policy retry.Policy
}

var _ domain.Reasoner = (*Retrying)(nil)

// NewRetrying creates the retrying decorator.
func NewRetrying(inner domain.Reasoner, policy retry.Policy) *Retrying {
	return &Retrying{inner: inner, policy: policy}
}

// Explain implements domain.Reasoner.
func (r *Retrying) Explain(ctx context.Context, prompt string) (string, error) {
	return retry.Do(ctx, r.policy, func() (string, error) {
		return r.inner.Explain(ctx, prompt)
	})
}
