package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
	feedbackuc "github.com/kailas-cloud/resumatch/internal/usecase/feedback"
	ingestuc "github.com/kailas-cloud/resumatch/internal/usecase/ingest"
	matchinguc "github.com/kailas-cloud/resumatch/internal/usecase/matching"
)

// fakeStore backs every repository-facing interface in the handler tests.
type fakeStore struct {
	resumes  map[string]domain.TextRecord
	jobs     []domain.TextRecord
	feedback []domain.Feedback
	history  []domain.MatchResult
	pingErr  error
	deleted  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{resumes: make(map[string]domain.TextRecord)}
}

func (f *fakeStore) Put(_ context.Context, rec *domain.TextRecord) (string, error) {
	if rec.Kind == domain.KindResume {
		if rec.ID == "" {
			rec.ID = rec.OwnerID
		}
		f.resumes[rec.OwnerID] = *rec
	} else {
		f.jobs = append(f.jobs, *rec)
	}
	return rec.ID, nil
}

func (f *fakeStore) DeleteSession(context.Context, string) (int, error) {
	return f.deleted, nil
}

func (f *fakeStore) GetByOwner(_ context.Context, ownerID string) (domain.TextRecord, error) {
	rec, ok := f.resumes[ownerID]
	if !ok {
		return domain.TextRecord{}, fmt.Errorf("resume %s: %w", ownerID, domain.ErrNotFound)
	}
	return rec, nil
}

func (f *fakeStore) List(context.Context, domain.Kind, string, int) ([]domain.TextRecord, string, error) {
	return f.jobs, "", nil
}

func (f *fakeStore) Save(_ context.Context, results []domain.MatchResult) error {
	f.history = append(f.history, results...)
	return nil
}

func (f *fakeStore) HistoryList(context.Context, string) ([]domain.MatchResult, error) {
	return f.history, nil
}

func (f *fakeStore) Append(_ context.Context, fb *domain.Feedback) error {
	f.feedback = append(f.feedback, *fb)
	return nil
}

func (f *fakeStore) FeedbackHistory(context.Context, string, string) ([]domain.Feedback, error) {
	return f.feedback, nil
}

func (f *fakeStore) Latest(context.Context, string, string) (domain.Feedback, error) {
	if len(f.feedback) == 0 {
		return domain.Feedback{}, fmt.Errorf("feedback: %w", domain.ErrNotFound)
	}
	return f.feedback[len(f.feedback)-1], nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

// matchHistoryAdapter exposes Save/List over the fake store.
type matchHistoryAdapter struct{ *fakeStore }

func (a matchHistoryAdapter) List(ctx context.Context, resumeID string) ([]domain.MatchResult, error) {
	return a.HistoryList(ctx, resumeID)
}

// feedbackLogAdapter exposes Append/History/Latest over the fake store.
type feedbackLogAdapter struct{ *fakeStore }

func (a feedbackLogAdapter) History(ctx context.Context, resumeID, jobID string) ([]domain.Feedback, error) {
	return a.FeedbackHistory(ctx, resumeID, jobID)
}

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

type fakeReasoner struct{}

func (fakeReasoner) Explain(context.Context, string) (string, error) {
	return "good overlap in skills", nil
}

func newTestRouter(store *fakeStore, embErr error) http.Handler {
	logger := zap.NewNop()
	ingestSvc := ingestuc.New(store, &fakeEmbedder{err: embErr}, logger)
	matchSvc := matchinguc.New(store, matchHistoryAdapter{store}, fakeReasoner{}, matchinguc.Options{}, logger)
	feedbackSvc := feedbackuc.New(feedbackLogAdapter{store}, logger)

	s := NewServer(ingestSvc, matchSvc, feedbackSvc, store, logger)
	r := chirouter.NewRouter()
	s.Register(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestSubmitResume_Created(t *testing.T) {
	h := newTestRouter(newFakeStore(), nil)

	rr := doJSON(t, h, "POST", "/v1/resumes", `{"text": "golang developer", "owner_id": "alice"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var resp submitResumeResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RecordID != "alice" {
		t.Errorf("record id: got %q, want alice", resp.RecordID)
	}
	if resp.Dimensions != 2 {
		t.Errorf("dimensions: got %d, want 2", resp.Dimensions)
	}
}

func TestSubmitResume_EmptyText_400(t *testing.T) {
	h := newTestRouter(newFakeStore(), nil)

	rr := doJSON(t, h, "POST", "/v1/resumes", `{"text": "  "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}

	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeValidationFailed {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeValidationFailed)
	}
}

func TestSubmitResume_BadJSON_400(t *testing.T) {
	h := newTestRouter(newFakeStore(), nil)

	rr := doJSON(t, h, "POST", "/v1/resumes", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSubmitResume_Quota_429(t *testing.T) {
	embErr := fmt.Errorf("openai: %w", domain.ErrQuotaExceeded)
	h := newTestRouter(newFakeStore(), embErr)

	rr := doJSON(t, h, "POST", "/v1/resumes", `{"text": "golang developer"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
}

func TestImportJobs_ReportsPerItem(t *testing.T) {
	store := newFakeStore()
	h := newTestRouter(store, nil)

	blob := `{"messages": [
		{"id": 1, "type": "message", "date": "2024-05-01T10:00:00", "text": "Go engineer"},
		{"id": 2, "type": "message", "date": "2024-05-01T11:00:00", "text": ""}
	]}`
	rr := doJSON(t, h, "POST", "/v1/jobs/import?session_id=sess-1", blob)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp importResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != "sess-1" {
		t.Errorf("session: got %q, want sess-1", resp.SessionID)
	}
	if resp.Ingested != 1 || resp.Skipped != 1 || resp.Failed != 0 {
		t.Errorf("summary: got %+v", resp)
	}
	if len(store.jobs) != 1 {
		t.Errorf("stored jobs: got %d, want 1", len(store.jobs))
	}
}

func TestImportJobs_MalformedBlob_400(t *testing.T) {
	h := newTestRouter(newFakeStore(), nil)

	rr := doJSON(t, h, "POST", "/v1/jobs/import", `{broken`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// failingBody simulates a connection dropped mid-upload.
type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, fmt.Errorf("read tcp: connection reset") }

func TestImportJobs_BodyReadFailure_400(t *testing.T) {
	h := newTestRouter(newFakeStore(), nil)

	req := httptest.NewRequest("POST", "/v1/jobs/import?session_id=sess-1", failingBody{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	// A dropped body is the client's problem, not an oversize payload.
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestImportJobs_OversizeBody_413(t *testing.T) {
	h := newTestRouter(newFakeStore(), nil)

	rr := doJSON(t, h, "POST", "/v1/jobs/import", strings.Repeat("x", maxImportBytes+1))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestPurgeSession(t *testing.T) {
	store := newFakeStore()
	store.deleted = 7
	h := newTestRouter(store, nil)

	rr := doJSON(t, h, "DELETE", "/v1/jobs/sessions/sess-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	var resp map[string]int
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["deleted"] != 7 {
		t.Errorf("deleted: got %d, want 7", resp["deleted"])
	}
}

func TestGetMatches_UnknownResume_404(t *testing.T) {
	h := newTestRouter(newFakeStore(), nil)

	rr := doJSON(t, h, "GET", "/v1/resumes/ghost/matches", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestGetMatches_RankedWithExplanations(t *testing.T) {
	store := newFakeStore()
	store.resumes["alice"] = domain.TextRecord{
		ID: "alice", Kind: domain.KindResume, Text: "go dev", Embedding: []float32{1, 0},
	}
	store.jobs = []domain.TextRecord{
		{ID: "j-far", Kind: domain.KindJob, Text: "accountant", Embedding: []float32{0, 1}, CreatedAt: time.Now()},
		{ID: "j-near", Kind: domain.KindJob, Text: "go engineer", Embedding: []float32{1, 0.1}, CreatedAt: time.Now()},
	}
	h := newTestRouter(store, nil)

	rr := doJSON(t, h, "GET", "/v1/resumes/alice/matches?k=2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp matchesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Matches) != 2 {
		t.Fatalf("matches: got %d, want 2", len(resp.Matches))
	}
	if resp.Matches[0].JobID != "j-near" || resp.Matches[0].Rank != 1 {
		t.Errorf("top match: got %+v", resp.Matches[0])
	}
	if resp.Matches[0].Explanation == "" {
		t.Error("expected non-empty explanation")
	}
}

func TestGetMatches_InvalidK_400(t *testing.T) {
	h := newTestRouter(newFakeStore(), nil)

	rr := doJSON(t, h, "GET", "/v1/resumes/alice/matches?k=banana", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetMatches_ExplicitKZero_Empty(t *testing.T) {
	store := newFakeStore()
	store.resumes["alice"] = domain.TextRecord{
		ID: "alice", Kind: domain.KindResume, Text: "go dev", Embedding: []float32{1, 0},
	}
	store.jobs = []domain.TextRecord{
		{ID: "j-1", Kind: domain.KindJob, Text: "go engineer", Embedding: []float32{1, 0}, CreatedAt: time.Now()},
		{ID: "j-2", Kind: domain.KindJob, Text: "backend dev", Embedding: []float32{1, 1}, CreatedAt: time.Now()},
	}
	h := newTestRouter(store, nil)

	rr := doJSON(t, h, "GET", "/v1/resumes/alice/matches?k=0", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp matchesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Matches) != 0 {
		t.Fatalf("k=0: want empty match list, got %d matches", len(resp.Matches))
	}
}

func TestGetMatches_AbsentKUsesDefault(t *testing.T) {
	store := newFakeStore()
	store.resumes["alice"] = domain.TextRecord{
		ID: "alice", Kind: domain.KindResume, Text: "go dev", Embedding: []float32{1, 0},
	}
	store.jobs = []domain.TextRecord{
		{ID: "j-1", Kind: domain.KindJob, Text: "go engineer", Embedding: []float32{1, 0}, CreatedAt: time.Now()},
		{ID: "j-2", Kind: domain.KindJob, Text: "backend dev", Embedding: []float32{1, 1}, CreatedAt: time.Now()},
	}
	h := newTestRouter(store, nil)

	rr := doJSON(t, h, "GET", "/v1/resumes/alice/matches", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp matchesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Matches) != 2 {
		t.Fatalf("absent k: want the default-capped 2 matches, got %d", len(resp.Matches))
	}
}

func TestSubmitFeedback_Created(t *testing.T) {
	store := newFakeStore()
	h := newTestRouter(store, nil)

	rr := doJSON(t, h, "POST", "/v1/feedback",
		`{"resume_id": "alice", "job_id": "j-1", "verdict": "accept"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var resp feedbackEntry
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" {
		t.Error("expected assigned feedback id")
	}
	if len(store.feedback) != 1 {
		t.Errorf("stored entries: got %d, want 1", len(store.feedback))
	}
}

func TestSubmitFeedback_UnknownVerdict_400(t *testing.T) {
	h := newTestRouter(newFakeStore(), nil)

	rr := doJSON(t, h, "POST", "/v1/feedback",
		`{"resume_id": "alice", "job_id": "j-1", "verdict": "maybe"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetFeedback_LatestEmpty_404(t *testing.T) {
	h := newTestRouter(newFakeStore(), nil)

	rr := doJSON(t, h, "GET", "/v1/feedback?resume_id=alice&job_id=j-1&latest=true", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHealthz(t *testing.T) {
	store := newFakeStore()
	h := newTestRouter(store, nil)

	rr := doJSON(t, h, "GET", "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("healthy: got %d, want %d", rr.Code, http.StatusOK)
	}

	store.pingErr = fmt.Errorf("connection refused")
	rr = doJSON(t, h, "GET", "/healthz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy: got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}
