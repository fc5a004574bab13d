// Package ollama summarizes patient text with a local Ollama server.
package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/medical-intake/internal/core/domain"
	"github.com/kirillkom/medical-intake/internal/infrastructure/llm"
	"github.com/kirillkom/medical-intake/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type Summarizer struct {
	client *Client
}

func NewSummarizer(client *Client) *Summarizer {
	return &Summarizer{client: client}
}

func (s *Summarizer) Summarize(ctx context.Context, text string) (domain.AnalysisSummary, error) {
	started := time.Now()
	var response struct {
		Response        string `json:"response"`
		PromptEvalCount int    `json:"prompt_eval_count"`
		EvalCount       int    `json:"eval_count"`
	}
	request := map[string]any{
		"model":   s.client.model,
		"system":  llm.SystemPrompt,
		"prompt":  llm.UserPrompt(text),
		"stream":  false,
		"format":  "json",
		"options": map[string]any{"temperature": 0.3, "num_predict": 2000},
	}
	if err := s.client.call(ctx, "generate", "/api/generate", request, &response); err != nil {
		return domain.AnalysisSummary{}, err
	}

	summary, err := llm.ParseSummary(strings.TrimSpace(response.Response))
	if err != nil {
		return domain.AnalysisSummary{}, err
	}
	summary.ModelUsed = s.client.model
	summary.TokensUsed = response.PromptEvalCount + response.EvalCount
	summary.ProcessingTime = time.Since(started).Seconds()
	return summary, nil
}

func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, payload, out, operation)
	}
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded("ollama "+operation, err)
}
