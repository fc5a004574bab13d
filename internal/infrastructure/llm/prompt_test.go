package llm

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParseSummaryToleratesWrapping(t *testing.T) {
	raw := "```json\n" + `{"summary":"ok","risk_assessment":{"overall_risk":"high","risk_factors":["x"]},"confidence_score":1.7}` + "\n```"
	got, err := ParseSummary(raw)
	if err != nil {
		t.Fatalf("ParseSummary() error = %v", err)
	}
	if got.Summary != "ok" || got.RiskAssessment.OverallRisk != "high" {
		t.Fatalf("unexpected summary: %+v", got)
	}
	if got.ConfidenceScore != 1 {
		t.Fatalf("expected clamped confidence, got %v", got.ConfidenceScore)
	}
	if got.KeyFindings == nil || got.Recommendations == nil || got.RiskAssessment.UrgentConcerns == nil {
		t.Fatalf("expected empty lists instead of nil: %+v", got)
	}
}

func TestParseSummaryRejectsGarbage(t *testing.T) {
	if _, err := ParseSummary("no json here"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseSummaryDefaultsRisk(t *testing.T) {
	got, err := ParseSummary(`{"summary":"s"}`)
	if err != nil {
		t.Fatalf("ParseSummary() error = %v", err)
	}
	if got.RiskAssessment.OverallRisk != "unknown" {
		t.Fatalf("expected unknown risk, got %q", got.RiskAssessment.OverallRisk)
	}
}

func TestUserPromptTruncates(t *testing.T) {
	p := UserPrompt(strings.Repeat("é", maxPromptChars+50))
	if got := strings.Count(p, "é"); got != maxPromptChars {
		t.Fatalf("expected %d runes kept, got %d", maxPromptChars, got)
	}
	if !strings.Contains(p, "[truncated]") {
		t.Fatalf("truncation marker missing")
	}
	if !utf8.ValidString(p) {
		t.Fatalf("prompt is not valid utf-8")
	}
}
