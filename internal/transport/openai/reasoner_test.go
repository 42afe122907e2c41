package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		})
	}))
}

func newTestReasoner(url string) *Reasoner {
	return NewReasoner(&ReasonerConfig{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})
}

func TestReasoner_Explain(t *testing.T) {
	server := chatServer(t, "Matching skills: Go, Redis. Missing: Kubernetes.")
	defer server.Close()

	text, err := newTestReasoner(server.URL).Explain(context.Background(), "compare resume and job")
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	if text != "Matching skills: Go, Redis. Missing: Kubernetes." {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestReasoner_EmptyResponse(t *testing.T) {
	server := chatServer(t, "")
	defer server.Close()

	_, err := newTestReasoner(server.URL).Explain(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable for empty response, got %v", err)
	}
}

func TestReasoner_QuotaError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer server.Close()

	_, err := newTestReasoner(server.URL).Explain(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}
