// Package openai summarizes patient text with an OpenAI-compatible chat
// completion endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/medical-intake/internal/core/domain"
	"github.com/kirillkom/medical-intake/internal/infrastructure/llm"
	"github.com/kirillkom/medical-intake/internal/infrastructure/resilience"
)

const (
	defaultModel = "gpt-3.5-turbo"
	maxTokens    = 2000
	temperature  = 0.3
)

type Summarizer struct {
	client   *goopenai.Client
	model    string
	executor *resilience.Executor
}

// New builds a summarizer. baseURL may be empty to use the public API.
func New(apiKey, model, baseURL string, timeout time.Duration, executor *resilience.Executor) *Summarizer {
	cfg := goopenai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Summarizer{
		client:   goopenai.NewClientWithConfig(cfg),
		model:    model,
		executor: executor,
	}
}

func (s *Summarizer) Summarize(ctx context.Context, text string) (domain.AnalysisSummary, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: temperature,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: llm.SystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: llm.UserPrompt(text)},
		},
	}
	if isReasoningModel(s.model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	started := time.Now()
	var resp goopenai.ChatCompletionResponse
	err := s.executor.Execute(ctx, "openai.chat_completion", func(callCtx context.Context) error {
		out, callErr := s.client.CreateChatCompletion(callCtx, req)
		if callErr != nil {
			return callErr
		}
		resp = out
		return nil
	}, classifyOpenAIError)
	if err != nil {
		return domain.AnalysisSummary{}, wrapTemporaryIfNeeded("openai summarize", err)
	}
	if len(resp.Choices) == 0 {
		return domain.AnalysisSummary{}, errors.New("openai summarize: empty choices")
	}

	summary, err := llm.ParseSummary(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.AnalysisSummary{}, err
	}
	summary.ModelUsed = s.model
	summary.TokensUsed = resp.Usage.TotalTokens
	summary.ProcessingTime = time.Since(started).Seconds()
	return summary, nil
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status != 0 {
		if resilience.IsRetryableHTTPStatus(status) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	class := classifyOpenAIError(err)
	if class.Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
