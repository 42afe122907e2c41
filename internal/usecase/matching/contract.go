package matching

import (
	"context"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

// RecordReader loads resumes and pages through the vacancy corpus.
type RecordReader interface {
	GetByOwner(ctx context.Context, ownerID string) (domain.TextRecord, error)
	List(ctx context.Context, kind domain.Kind, cursor string, limit int) ([]domain.TextRecord, string, error)
}

// HistoryStore persists and replays produced match results.
type HistoryStore interface {
	Save(ctx context.Context, results []domain.MatchResult) error
	List(ctx context.Context, resumeID string) ([]domain.MatchResult, error)
}
