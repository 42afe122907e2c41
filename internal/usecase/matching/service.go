// Package matching answers the core query: given a stored resume, return the
// top-K most similar vacancies, each with an LLM-generated explanation.
package matching

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/resumatch/internal/domain"
	"github.com/kailas-cloud/resumatch/internal/metrics"
	"github.com/kailas-cloud/resumatch/internal/usecase/rank"
)

// Options tune query behavior. Zero values fall back to the defaults below.
type Options struct {
	DefaultTopK       int
	Workers           int
	ReasoningPerSec   float64 // 0 = unlimited
	CandidatePageSize int
	Prompt            domain.PromptTemplate
}

const (
	defaultTopK     = 3
	defaultWorkers  = 4
	defaultPageSize = 200
)

// Query parameters beyond the resume id.
type Query struct {
	TopK        int    // negative = configured default; 0 asks for no matches
	SessionID   string // restrict candidates to one import session, "" = all
	Instruction string // prompt instruction override, "" = default
}

// Service ranks vacancies against a resume and explains each match.
type Service struct {
	records  RecordReader
	history  HistoryStore
	reasoner domain.Reasoner
	opts     Options
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// New creates a matching service.
func New(records RecordReader, history HistoryStore, reasoner domain.Reasoner,
	opts Options, logger *zap.Logger,
) *Service {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = defaultTopK
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.CandidatePageSize <= 0 {
		opts.CandidatePageSize = defaultPageSize
	}
	if opts.Prompt.Body == "" {
		opts.Prompt = domain.DefaultPromptTemplate(opts.Prompt.MaxChars)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.ReasoningPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.ReasoningPerSec), 1)
	}

	return &Service{
		records:  records,
		history:  history,
		reasoner: reasoner,
		opts:     opts,
		limiter:  limiter,
		logger:   logger,
	}
}

// Match runs the full pipeline for one resume: load, rank, explain, log.
// Explanation failures degrade the affected matches to a placeholder text
// instead of failing the query; scores and ranks are always real.
func (s *Service) Match(ctx context.Context, resumeOwner string, q Query) ([]domain.MatchResult, error) {
	resume, err := s.records.GetByOwner(ctx, resumeOwner)
	if err != nil {
		return nil, fmt.Errorf("load resume for %s: %w", resumeOwner, err)
	}

	k := q.TopK
	if k < 0 {
		k = s.opts.DefaultTopK
	}
	// An explicit k of zero is honored, not remapped to the default.
	if k == 0 {
		return []domain.MatchResult{}, nil
	}

	candidates, err := s.collectCandidates(ctx, q.SessionID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []domain.MatchResult{}, nil
	}

	matches := rank.Rank(resume.ID, resume.Embedding, candidates, k)

	texts := make(map[string]string, len(candidates))
	for _, c := range candidates {
		texts[c.ID] = c.Text
	}
	s.explainAll(ctx, resume.Text, texts, matches, q.Instruction)

	if err := s.history.Save(ctx, matches); err != nil {
		// Audit log only; the caller still gets its matches.
		s.logger.Warn("match history save failed",
			zap.String("resume_id", resume.ID), zap.Error(err))
	}
	return matches, nil
}

// History replays every match the resume's owner has been served.
func (s *Service) History(ctx context.Context, resumeOwner string) ([]domain.MatchResult, error) {
	resume, err := s.records.GetByOwner(ctx, resumeOwner)
	if err != nil {
		return nil, fmt.Errorf("load resume for %s: %w", resumeOwner, err)
	}
	results, err := s.history.List(ctx, resume.ID)
	if err != nil {
		return nil, fmt.Errorf("load match history: %w", err)
	}
	return results, nil
}

// collectCandidates drains the vacancy cursor, optionally keeping only one
// import session.
func (s *Service) collectCandidates(ctx context.Context, sessionID string) ([]domain.TextRecord, error) {
	var out []domain.TextRecord
	cursor := ""
	for {
		page, next, err := s.records.List(ctx, domain.KindJob, cursor, s.opts.CandidatePageSize)
		if err != nil {
			return nil, fmt.Errorf("list vacancies: %w", err)
		}
		for _, rec := range page {
			if sessionID != "" && rec.Session() != sessionID {
				continue
			}
			out = append(out, rec)
		}
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

// explainAll fills Explanation on each match through a bounded worker pool.
// Results land by index, so ranking order is unaffected by completion order.
// On cancellation the remaining matches keep the placeholder text.
func (s *Service) explainAll(
	ctx context.Context, resumeText string, jobTexts map[string]string,
	matches []domain.MatchResult, instruction string,
) {
	tmpl := s.opts.Prompt.WithInstruction(instruction)

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := min(s.opts.Workers, len(matches))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				matches[i].Explanation = s.explainOne(ctx, tmpl, resumeText, jobTexts[matches[i].JobID])
			}
		}()
	}

feed:
	for i := range matches {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for i := range matches {
		if matches[i].Explanation == "" {
			matches[i].Explanation = domain.PlaceholderExplanation
		}
	}
}

func (s *Service) explainOne(ctx context.Context, tmpl domain.PromptTemplate, resumeText, jobText string) string {
	if err := s.limiter.Wait(ctx); err != nil {
		return domain.PlaceholderExplanation
	}

	text, err := s.reasoner.Explain(ctx, tmpl.Render(resumeText, jobText))
	if err != nil {
		metrics.ReasoningFallbacksTotal.Inc()
		s.logger.Warn("explanation generation failed", zap.Error(err))
		return domain.PlaceholderExplanation
	}
	if text == "" {
		metrics.ReasoningFallbacksTotal.Inc()
		return domain.PlaceholderExplanation
	}
	return text
}
