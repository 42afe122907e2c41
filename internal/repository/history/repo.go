// Package history persists produced match results for dashboard audit.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

// store is the consumer interface for match history (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// resultRow is the JSON-serializable list element.
type resultRow struct {
	ResumeID    string  `json:"resume_id"`
	JobID       string  `json:"job_id"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
	Explanation string  `json:"explanation"`
	GeneratedAt int64   `json:"generated_at"` // unix millis
}

// Repo appends match results to one list per resume.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a match history repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// Save appends a query's ranked results to the resume's history log.
func (r *Repo) Save(ctx context.Context, results []domain.MatchResult) error {
	if len(results) == 0 {
		return nil
	}

	key := r.key(results[0].ResumeID)
	rows := make([]string, len(results))
	for i, m := range results {
		data, err := json.Marshal(resultRow{
			ResumeID:    m.ResumeID,
			JobID:       m.JobID,
			Score:       m.Score,
			Rank:        m.Rank,
			Explanation: m.Explanation,
			GeneratedAt: m.GeneratedAt.UnixMilli(),
		})
		if err != nil {
			return fmt.Errorf("marshal match result: %w", err)
		}
		rows[i] = string(data)
	}

	if err := r.store.RPush(ctx, key, rows...); err != nil {
		return fmt.Errorf("rpush %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// List returns a resume's full match history in production order.
func (r *Repo) List(ctx context.Context, resumeID string) ([]domain.MatchResult, error) {
	key := r.key(resumeID)
	rows, err := r.store.LRange(ctx, key, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}

	results := make([]domain.MatchResult, 0, len(rows))
	for _, raw := range rows {
		var row resultRow
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, fmt.Errorf("decode match result: %w", err)
		}
		results = append(results, domain.MatchResult{
			ResumeID:    row.ResumeID,
			JobID:       row.JobID,
			Score:       row.Score,
			Rank:        row.Rank,
			Explanation: row.Explanation,
			GeneratedAt: time.UnixMilli(row.GeneratedAt),
		})
	}
	return results, nil
}

func (r *Repo) key(resumeID string) string {
	return r.keyPrefix + "history:" + resumeID
}
