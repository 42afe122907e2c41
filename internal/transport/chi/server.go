// Package chi exposes the matching engine over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
	dombatch "github.com/kailas-cloud/resumatch/internal/domain/batch"
	feedbackuc "github.com/kailas-cloud/resumatch/internal/usecase/feedback"
	ingestuc "github.com/kailas-cloud/resumatch/internal/usecase/ingest"
	matchinguc "github.com/kailas-cloud/resumatch/internal/usecase/matching"
)

// maxImportBytes bounds a chat-export upload (exports run to a few MB).
const maxImportBytes = 32 << 20

// Machine-readable error codes returned in the JSON error body.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeNotFound         = "not_found"
	codeDimMismatch      = "vector_dim_mismatch"
	codeQuotaExceeded    = "quota_exceeded"
	codeProviderError    = "provider_error"
	codeStoreUnavailable = "store_unavailable"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Pinger reports store liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server routes HTTP requests to the use case services.
type Server struct {
	ingest        *ingestuc.Service
	matching      *matchinguc.Service
	feedback      *feedbackuc.Service
	store         Pinger
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	matching *matchinguc.Service,
	feedback *feedbackuc.Service,
	store Pinger,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:   ingest,
		matching: matching,
		feedback: feedback,
		store:    store,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeDimMismatch),
		sentinelHandler(domain.ErrQuotaExceeded, http.StatusTooManyRequests, codeQuotaExceeded),
		sentinelHandler(domain.ErrServiceUnavailable, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.healthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/resumes", s.submitResume)
		r.Get("/resumes/{owner}/matches", s.getMatches)
		r.Get("/resumes/{owner}/history", s.getHistory)
		r.Post("/jobs/import", s.importJobs)
		r.Delete("/jobs/sessions/{session}", s.purgeSession)
		r.Post("/feedback", s.submitFeedback)
		r.Get("/feedback", s.getFeedback)
	})
}

type submitResumeRequest struct {
	Text    string `json:"text"`
	OwnerID string `json:"owner_id,omitempty"`
}

type submitResumeResponse struct {
	RecordID   string `json:"record_id"`
	TextLength int    `json:"text_length"`
	Dimensions int    `json:"dimensions"`
}

// submitResume handles POST /v1/resumes.
func (s *Server) submitResume(w http.ResponseWriter, r *http.Request) {
	var req submitResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sum, err := s.ingest.Resume(r.Context(), req.Text, req.OwnerID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, submitResumeResponse{
		RecordID:   sum.RecordID,
		TextLength: sum.TextLength,
		Dimensions: sum.Dimensions,
	})
}

type importItem struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

type importResponse struct {
	SessionID string       `json:"session_id"`
	Ingested  int          `json:"ingested"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Items     []importItem `json:"items"`
}

// importJobs handles POST /v1/jobs/import. The body is a raw chat-export
// JSON blob, not a wrapper object.
func (s *Server) importJobs(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = time.Now().UTC().Format("20060102-150405")
	}

	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "failed to read request body")
		return
	}

	results, err := s.ingest.Jobs(r.Context(), blob, sessionID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	summary := dombatch.Summarize(results)
	items := make([]importItem, len(results))
	for i, res := range results {
		items[i] = importItem{ID: res.ID(), Status: string(res.Status()), Reason: res.Reason()}
		if res.Err() != nil {
			items[i].Error = safeDomainMessage(res.Err())
		}
	}

	writeJSON(w, http.StatusOK, importResponse{
		SessionID: sessionID,
		Ingested:  summary.Ingested,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
		Items:     items,
	})
}

// purgeSession handles DELETE /v1/jobs/sessions/{session}.
func (s *Server) purgeSession(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.ingest.PurgeSession(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

type matchItem struct {
	JobID       string  `json:"job_id"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
	Explanation string  `json:"explanation"`
}

type matchesResponse struct {
	ResumeID string      `json:"resume_id"`
	Matches  []matchItem `json:"matches"`
}

// getMatches handles GET /v1/resumes/{owner}/matches.
func (s *Server) getMatches(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	q := r.URL.Query()

	// k absent means "use the configured default"; k=0 is an explicit ask
	// for an empty match list and must survive the round trip.
	k := -1
	if raw := q.Get("k"); raw != "" {
		var err error
		if k, err = strconv.Atoi(raw); err != nil || k < 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "k must be a non-negative integer")
			return
		}
	}

	matches, err := s.matching.Match(r.Context(), owner, matchinguc.Query{
		TopK:        k,
		SessionID:   q.Get("session_id"),
		Instruction: q.Get("instruction"),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, matchesToResponse(owner, matches))
}

// getHistory handles GET /v1/resumes/{owner}/history.
func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")

	results, err := s.matching.History(r.Context(), owner)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, matchesToResponse(owner, results))
}

func matchesToResponse(owner string, results []domain.MatchResult) matchesResponse {
	items := make([]matchItem, len(results))
	for i, m := range results {
		items[i] = matchItem{
			JobID:       m.JobID,
			Score:       m.Score,
			Rank:        m.Rank,
			Explanation: m.Explanation,
		}
	}
	return matchesResponse{ResumeID: owner, Matches: items}
}

type feedbackRequest struct {
	ResumeID string `json:"resume_id"`
	JobID    string `json:"job_id"`
	Verdict  string `json:"verdict"`
	Rating   int    `json:"rating,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

type feedbackEntry struct {
	ID          string    `json:"id"`
	ResumeID    string    `json:"resume_id"`
	JobID       string    `json:"job_id"`
	Verdict     string    `json:"verdict"`
	Rating      int       `json:"rating,omitempty"`
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// submitFeedback handles POST /v1/feedback.
func (s *Server) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	stored, err := s.feedback.Submit(r.Context(), domain.Feedback{
		ResumeID: req.ResumeID,
		JobID:    req.JobID,
		Verdict:  domain.Verdict(req.Verdict),
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, feedbackToEntry(stored))
}

// getFeedback handles GET /v1/feedback. With latest=true only the pair's
// current opinion is returned.
func (s *Server) getFeedback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resumeID, jobID := q.Get("resume_id"), q.Get("job_id")

	if q.Get("latest") == "true" {
		fb, err := s.feedback.Latest(r.Context(), resumeID, jobID)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, feedbackToEntry(fb))
		return
	}

	entries, err := s.feedback.History(r.Context(), resumeID, jobID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]feedbackEntry, len(entries))
	for i, fb := range entries {
		items[i] = feedbackToEntry(fb)
	}
	writeJSON(w, http.StatusOK, map[string][]feedbackEntry{"items": items})
}

func feedbackToEntry(fb domain.Feedback) feedbackEntry {
	return feedbackEntry{
		ID:          fb.ID,
		ResumeID:    fb.ResumeID,
		JobID:       fb.JobID,
		Verdict:     string(fb.Verdict),
		Rating:      fb.Rating,
		Comment:     fb.Comment,
		SubmittedAt: fb.SubmittedAt,
	}
}

// healthCheck handles GET /healthz.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidInput,
		domain.ErrVectorDimMismatch,
		domain.ErrQuotaExceeded,
		domain.ErrServiceUnavailable,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
