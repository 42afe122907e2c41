// Package feedback persists the append-only user feedback log.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

// store is the consumer interface for feedback (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// entryRow is the JSON-serializable list element.
type entryRow struct {
	ID          string `json:"id"`
	ResumeID    string `json:"resume_id"`
	JobID       string `json:"job_id"`
	Verdict     string `json:"verdict"`
	Rating      int    `json:"rating,omitempty"`
	Comment     string `json:"comment,omitempty"`
	SubmittedAt int64  `json:"submitted_at"` // unix millis
}

// Repo appends feedback entries to one list per (resume, job) pair. Entries
// are never mutated or deleted; the full history stays available for
// analytics and the last element is the current opinion.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a feedback repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// Append adds a feedback entry to the pair's log.
func (r *Repo) Append(ctx context.Context, fb *domain.Feedback) error {
	row := entryRow{
		ID:          fb.ID,
		ResumeID:    fb.ResumeID,
		JobID:       fb.JobID,
		Verdict:     string(fb.Verdict),
		Rating:      fb.Rating,
		Comment:     fb.Comment,
		SubmittedAt: fb.SubmittedAt.UnixMilli(),
	}
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	key := r.key(fb.ResumeID, fb.JobID)
	if err := r.store.RPush(ctx, key, string(data)); err != nil {
		return fmt.Errorf("rpush %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// History returns all feedback for a pair in submission order. A pair with
// no feedback yields an empty slice, not an error.
func (r *Repo) History(ctx context.Context, resumeID, jobID string) ([]domain.Feedback, error) {
	key := r.key(resumeID, jobID)
	rows, err := r.store.LRange(ctx, key, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}

	entries := make([]domain.Feedback, 0, len(rows))
	for _, raw := range rows {
		var row entryRow
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, fmt.Errorf("decode feedback entry: %w", err)
		}
		entries = append(entries, domain.Feedback{
			ID:          row.ID,
			ResumeID:    row.ResumeID,
			JobID:       row.JobID,
			Verdict:     domain.Verdict(row.Verdict),
			Rating:      row.Rating,
			Comment:     row.Comment,
			SubmittedAt: time.UnixMilli(row.SubmittedAt),
		})
	}
	return entries, nil
}

// Latest returns the pair's current opinion (last entry), or ErrNotFound when
// the pair has no feedback.
func (r *Repo) Latest(ctx context.Context, resumeID, jobID string) (domain.Feedback, error) {
	key := r.key(resumeID, jobID)
	rows, err := r.store.LRange(ctx, key, -1, -1)
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("lrange %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}
	if len(rows) == 0 {
		return domain.Feedback{}, fmt.Errorf("feedback for %s/%s: %w", resumeID, jobID, domain.ErrNotFound)
	}

	var row entryRow
	if err := json.Unmarshal([]byte(rows[0]), &row); err != nil {
		return domain.Feedback{}, fmt.Errorf("decode feedback entry: %w", err)
	}
	return domain.Feedback{
		ID:          row.ID,
		ResumeID:    row.ResumeID,
		JobID:       row.JobID,
		Verdict:     domain.Verdict(row.Verdict),
		Rating:      row.Rating,
		Comment:     row.Comment,
		SubmittedAt: time.UnixMilli(row.SubmittedAt),
	}, nil
}

func (r *Repo) key(resumeID, jobID string) string {
	return r.keyPrefix + "feedback:" + resumeID + ":" + jobID
}
