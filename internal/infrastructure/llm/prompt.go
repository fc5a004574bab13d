// Package llm holds the prompt and response contract shared by the AI
// summarizer adapters.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/medical-intake/internal/core/domain"
	"github.com/kirillkom/medical-intake/internal/infrastructure/chunking"
)

const maxPromptChars = 12000

var promptWindow = chunking.NewSplitter(maxPromptChars, 0)

const SystemPrompt = `You are an AI medical assistant specializing in patient data analysis.

Your role is to:
1. Analyze patient data for key medical insights
2. Identify potential risks and concerns
3. Provide actionable recommendations

Guidelines:
- Always prioritize patient safety
- Flag any urgent medical concerns
- Be clear about limitations and uncertainties
- Never repeat patient identifiers (names, addresses, dates of birth, NHS numbers) in your answer

Respond with a strict JSON object, no markdown:
{
  "summary": "Brief overview of the patient data",
  "key_findings": ["Finding 1", "Finding 2"],
  "risk_assessment": {
    "overall_risk": "low/medium/high",
    "urgent_concerns": ["Any urgent issues"],
    "risk_factors": ["Risk factor 1"]
  },
  "recommendations": ["Recommendation 1"],
  "confidence_score": 0.85
}`

func UserPrompt(text string) string {
	snippet, cut := promptWindow.Head(text)
	if cut {
		snippet += "\n[truncated]"
	}
	return `Analyze the following patient data and provide a structured medical assessment.

PATIENT DATA:
` + snippet + `

Include a summary, key findings, a risk assessment (overall risk, urgent concerns, risk factors),
specific next-step recommendations and a confidence score between 0.0 and 1.0.`
}

// ParseSummary decodes a model answer. Text around the JSON object is ignored
// and missing list fields become empty lists.
func ParseSummary(raw string) (domain.AnalysisSummary, error) {
	var out domain.AnalysisSummary
	if err := json.Unmarshal([]byte(ExtractJSONObject(raw)), &out); err != nil {
		return domain.AnalysisSummary{}, fmt.Errorf("parse analysis json: %w", err)
	}
	if out.ConfidenceScore < 0 {
		out.ConfidenceScore = 0
	}
	if out.ConfidenceScore > 1 {
		out.ConfidenceScore = 1
	}
	if strings.TrimSpace(out.RiskAssessment.OverallRisk) == "" {
		out.RiskAssessment.OverallRisk = "unknown"
	}
	Normalize(&out)
	return out, nil
}

// Normalize replaces nil lists so that encoded summaries never carry nulls.
func Normalize(s *domain.AnalysisSummary) {
	if s.KeyFindings == nil {
		s.KeyFindings = []string{}
	}
	if s.Recommendations == nil {
		s.Recommendations = []string{}
	}
	if s.RiskAssessment.UrgentConcerns == nil {
		s.RiskAssessment.UrgentConcerns = []string{}
	}
	if s.RiskAssessment.RiskFactors == nil {
		s.RiskAssessment.RiskFactors = []string{}
	}
}

func ExtractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
