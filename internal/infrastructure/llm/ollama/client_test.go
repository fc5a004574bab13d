package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/medical-intake/internal/core/domain"
	"github.com/kirillkom/medical-intake/internal/infrastructure/resilience"
)

func TestSummarizerSendsPromptAndParses(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		answer := `{"summary":"ok","risk_assessment":{"overall_risk":"medium"},"recommendations":["rest"],"confidence_score":0.6}`
		_ = json.NewEncoder(w).Encode(map[string]any{"response": answer, "prompt_eval_count": 7, "eval_count": 3})
	}))
	defer server.Close()

	s := NewSummarizer(New(server.URL, "llama3", time.Second, nil))
	got, err := s.Summarize(context.Background(), "patient reports dizziness")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	prompt, _ := captured["prompt"].(string)
	if !strings.Contains(prompt, "patient reports dizziness") {
		t.Fatalf("prompt does not carry text: %s", prompt)
	}
	if captured["format"] != "json" || captured["model"] != "llama3" {
		t.Fatalf("unexpected request: %v", captured)
	}
	if got.ModelUsed != "llama3" || got.TokensUsed != 10 || got.RiskAssessment.OverallRisk != "medium" {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestSummarizerIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	s := NewSummarizer(New(server.URL, "missing", time.Second, nil))
	_, err := s.Summarize(context.Background(), "x")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("404 should not be temporary")
	}
}

func TestSummarizerRetriesGatewayErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"response":"{\"summary\":\"late\"}"}`))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	s := NewSummarizer(New(server.URL, "m", time.Second, executor))
	got, err := s.Summarize(context.Background(), "x")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got.Summary != "late" || calls.Load() != 2 {
		t.Fatalf("expected success on second attempt, got %+v after %d calls", got, calls.Load())
	}
}
