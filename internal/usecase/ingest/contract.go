package ingest

import (
	"context"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

// RecordWriter persists text records.
type RecordWriter interface {
	Put(ctx context.Context, rec *domain.TextRecord) (string, error)
	DeleteSession(ctx context.Context, sessionID string) (int, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
