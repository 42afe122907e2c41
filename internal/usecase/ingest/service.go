// Package ingest implements the one-way ingestion pipeline:
// text → embedding → storage.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
	dombatch "github.com/kailas-cloud/resumatch/internal/domain/batch"
	"github.com/kailas-cloud/resumatch/internal/export"
	"github.com/kailas-cloud/resumatch/internal/usecase/retry"
)

// DefaultOwner is used when a resume arrives without an owner id.
const DefaultOwner = "default_user"

// defaultBatchSize bounds texts per embedding API call.
const defaultBatchSize = 30

// ResumeSummary is the ingestion result returned to the caller.
type ResumeSummary struct {
	RecordID   string
	TextLength int
	Dimensions int
}

// Service handles resume and vacancy ingestion.
type Service struct {
	records   RecordWriter
	embed     Embedder
	batchSize int
	logger    *zap.Logger
}

// New creates an ingestion service.
func New(records RecordWriter, embed Embedder, logger *zap.Logger) *Service {
	return &Service{
		records:   records,
		embed:     embed,
		batchSize: defaultBatchSize,
		logger:    logger,
	}
}

// WithBatchSize configures texts per embedding API call.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Resume embeds and stores a resume. A resubmission for the same owner
// overwrites the prior record (latest resume wins).
func (s *Service) Resume(ctx context.Context, text, ownerID string) (ResumeSummary, error) {
	if strings.TrimSpace(text) == "" {
		return ResumeSummary{}, fmt.Errorf("resume text is empty: %w", domain.ErrInvalidInput)
	}
	if ownerID == "" {
		ownerID = DefaultOwner
	}

	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return ResumeSummary{}, fmt.Errorf("embed resume: %w", err)
	}

	rec := domain.TextRecord{
		Kind:      domain.KindResume,
		OwnerID:   ownerID,
		Text:      text,
		Embedding: res.Embedding,
		CreatedAt: time.Now().UTC(),
	}
	id, err := s.records.Put(ctx, &rec)
	if err != nil {
		return ResumeSummary{}, fmt.Errorf("store resume: %w", err)
	}

	s.logger.Info("resume ingested",
		zap.String("record_id", id),
		zap.Int("text_length", len(text)),
		zap.Int("dimensions", len(res.Embedding)),
	)

	return ResumeSummary{
		RecordID:   id,
		TextLength: len(text),
		Dimensions: len(res.Embedding),
	}, nil
}

// Jobs parses a chat-export blob and ingests every valid vacancy, reporting
// each item individually. A quota failure that survives retries fails the
// remaining items with that error instead of stalling on a dead upstream;
// nothing is silently dropped.
func (s *Service) Jobs(ctx context.Context, blob []byte, sessionID string) ([]dombatch.Result, error) {
	vacancies, rejected, err := export.Parse(blob)
	if err != nil {
		return nil, err
	}

	results := make([]dombatch.Result, 0, len(vacancies)+rejected)
	for i := 0; i < rejected; i++ {
		results = append(results, dombatch.NewSkipped("", "missing required fields"))
	}

	// Partition before embedding: empty texts never reach the API.
	valid := make([]export.Vacancy, 0, len(vacancies))
	for _, v := range vacancies {
		if strings.TrimSpace(v.Text) == "" {
			results = append(results, dombatch.NewSkipped(v.ID, "empty text"))
			continue
		}
		valid = append(valid, v)
	}

	for start := 0; start < len(valid); start += s.batchSize {
		end := min(start+s.batchSize, len(valid))
		chunk := valid[start:end]

		chunkResults, cascade := s.ingestChunk(ctx, chunk, sessionID)
		results = append(results, chunkResults...)

		if cascade != nil {
			for _, v := range valid[end:] {
				results = append(results, dombatch.NewError(v.ID, cascade))
			}
			break
		}
	}

	summary := dombatch.Summarize(results)
	s.logger.Info("job import finished",
		zap.String("session", sessionID),
		zap.Int("ingested", summary.Ingested),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return results, nil
}

// ingestChunk embeds one batch and stores each vacancy. A quota or
// availability failure on the batch call is returned as cascade so the
// caller can fail the remaining chunks without more upstream calls.
func (s *Service) ingestChunk(
	ctx context.Context, chunk []export.Vacancy, sessionID string,
) (results []dombatch.Result, cascade error) {
	texts := make([]string, len(chunk))
	for i, v := range chunk {
		texts[i] = v.Text
	}

	embRes, err := domain.BatchEmbed(ctx, s.embed, texts)
	if err != nil {
		wrapped := fmt.Errorf("embed batch: %w", err)
		results = make([]dombatch.Result, len(chunk))
		for i, v := range chunk {
			results[i] = dombatch.NewError(v.ID, wrapped)
		}
		if retry.Retryable(err) {
			return results, wrapped
		}
		return results, nil
	}

	now := time.Now().UTC()
	results = make([]dombatch.Result, len(chunk))
	for i, v := range chunk {
		rec := domain.TextRecord{
			ID:        v.ID,
			Kind:      domain.KindJob,
			Text:      v.Text,
			Embedding: embRes.Embeddings[i],
			CreatedAt: now,
			Source: map[string]string{
				"message_id": v.ID,
				"date":       v.Date.Format(time.RFC3339),
				"session":    sessionID,
			},
		}
		if _, err := s.records.Put(ctx, &rec); err != nil {
			results[i] = dombatch.NewError(v.ID, fmt.Errorf("store vacancy: %w", err))
			continue
		}
		results[i] = dombatch.NewOK(v.ID)
	}
	return results, nil
}

// PurgeSession removes all vacancies imported under a session.
func (s *Service) PurgeSession(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("session id is empty: %w", domain.ErrInvalidInput)
	}
	deleted, err := s.records.DeleteSession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("purge session %s: %w", sessionID, err)
	}
	s.logger.Info("session purged", zap.String("session", sessionID), zap.Int("deleted", deleted))
	return deleted, nil
}
