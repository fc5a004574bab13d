package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/medical-intake/internal/core/domain"
	"github.com/kirillkom/medical-intake/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BreakerEnabled:      false,
	})
}

func TestSummarizeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["model"] != "gpt-test" {
			t.Fatalf("unexpected model %v", req["model"])
		}
		content := `{"summary":"stable","key_findings":["a"],"risk_assessment":{"overall_risk":"low","urgent_concerns":[],"risk_factors":["smoker"]},"recommendations":["review"],"confidence_score":0.7}`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
			"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer server.Close()

	s := New("key", "gpt-test", server.URL, time.Second, testExecutor())
	got, err := s.Summarize(context.Background(), "notes")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got.Summary != "stable" || got.ConfidenceScore != 0.7 || got.TokensUsed != 15 {
		t.Fatalf("unexpected summary %+v", got)
	}
	if got.ModelUsed != "gpt-test" {
		t.Fatalf("expected model gpt-test, got %s", got.ModelUsed)
	}
}

func TestSummarizeRetriesAndMarksTemporary(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	s := New("key", "gpt-test", server.URL, time.Second, testExecutor())
	_, err := s.Summarize(context.Background(), "notes")
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestSummarizeDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	s := New("key", "gpt-test", server.URL, time.Second, testExecutor())
	_, err := s.Summarize(context.Background(), "notes")
	if err == nil || errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected single attempt, got %d", calls.Load())
	}
}

func TestIsReasoningModel(t *testing.T) {
	if !isReasoningModel("o3-mini") || isReasoningModel("gpt-4o") {
		t.Fatalf("unexpected reasoning model detection")
	}
}
