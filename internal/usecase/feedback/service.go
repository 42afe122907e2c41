// Package feedback records user verdicts on served matches.
package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

// log is the consumer interface for the feedback store (ISP).
type log interface {
	Append(ctx context.Context, fb *domain.Feedback) error
	History(ctx context.Context, resumeID, jobID string) ([]domain.Feedback, error)
	Latest(ctx context.Context, resumeID, jobID string) (domain.Feedback, error)
}

// Service validates and records feedback entries.
type Service struct {
	log    log
	logger *zap.Logger
}

// New creates a feedback service.
func New(l log, logger *zap.Logger) *Service {
	return &Service{log: l, logger: logger}
}

// Submit validates and appends one feedback entry, assigning its id and
// submission time. Returns the stored entry.
func (s *Service) Submit(ctx context.Context, fb domain.Feedback) (domain.Feedback, error) {
	if err := fb.Validate(); err != nil {
		return domain.Feedback{}, err
	}

	fb.ID = uuid.NewString()
	fb.SubmittedAt = time.Now().UTC()

	if err := s.log.Append(ctx, &fb); err != nil {
		return domain.Feedback{}, fmt.Errorf("append feedback: %w", err)
	}

	s.logger.Info("feedback recorded",
		zap.String("feedback_id", fb.ID),
		zap.String("resume_id", fb.ResumeID),
		zap.String("job_id", fb.JobID),
		zap.String("verdict", string(fb.Verdict)),
	)
	return fb, nil
}

// History returns every entry recorded for the pair, oldest first.
func (s *Service) History(ctx context.Context, resumeID, jobID string) ([]domain.Feedback, error) {
	if resumeID == "" || jobID == "" {
		return nil, fmt.Errorf("feedback history requires resume_id and job_id: %w", domain.ErrInvalidInput)
	}
	return s.log.History(ctx, resumeID, jobID)
}

// Latest returns the pair's current opinion.
func (s *Service) Latest(ctx context.Context, resumeID, jobID string) (domain.Feedback, error) {
	if resumeID == "" || jobID == "" {
		return domain.Feedback{}, fmt.Errorf("feedback lookup requires resume_id and job_id: %w", domain.ErrInvalidInput)
	}
	return s.log.Latest(ctx, resumeID, jobID)
}
