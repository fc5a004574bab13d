package domain

import "time"

type StoreStatus string

const (
	StoreStatusStored   StoreStatus = "stored"
	StoreStatusRejected StoreStatus = "rejected"
	StoreStatusError    StoreStatus = "error"
)

// StoreOutcome is what callers of classify-and-store see. A rejection is a
// normal outcome and carries a generic reason only. StorageID is nil unless
// the record was stored.
type StoreOutcome struct {
	StorageID *string     `json:"storage_id"`
	Status    StoreStatus `json:"storage_status"`
	Reason    string      `json:"storage_reason"`
	Category  Category    `json:"category,omitempty"`
}

func (o StoreOutcome) Stored() bool {
	return o.Status == StoreStatusStored && o.StorageID != nil
}

// RiskAssessment is the risk block produced by the AI summarizer.
type RiskAssessment struct {
	OverallRisk    string   `json:"overall_risk"`
	UrgentConcerns []string `json:"urgent_concerns"`
	RiskFactors    []string `json:"risk_factors"`
}

// AnalysisSummary is the structured output of the external AI step.
type AnalysisSummary struct {
	Summary         string         `json:"summary"`
	KeyFindings     []string       `json:"key_findings"`
	RiskAssessment  RiskAssessment `json:"risk_assessment"`
	Recommendations []string       `json:"recommendations"`
	ConfidenceScore float64        `json:"confidence_score"`
	ProcessingTime  float64        `json:"processing_time"`
	ModelUsed       string         `json:"model_used"`
	TokensUsed      int            `json:"tokens_used"`
}

// NotesReport is returned for free-text patient notes.
type NotesReport struct {
	AnalysisID     string          `json:"analysis_id"`
	ProcessedAt    time.Time       `json:"processing_timestamp"`
	ProcessingTime float64         `json:"processing_time_seconds"`
	WordCount      int             `json:"word_count"`
	CharacterCount int             `json:"character_count"`
	Analysis       AnalysisSummary `json:"ai_analysis"`
	Storage        StoreOutcome    `json:"storage_info"`
}

// LetterReport is returned for uploaded clinical letters.
type LetterReport struct {
	AnalysisID     string          `json:"analysis_id"`
	ProcessedAt    time.Time       `json:"processing_timestamp"`
	Filename       string          `json:"filename"`
	WordCount      int             `json:"word_count"`
	CharacterCount int             `json:"character_count"`
	NHSNumberFound bool            `json:"nhs_number_found"`
	Preview        string          `json:"text_preview"`
	Analysis       AnalysisSummary `json:"ai_summary"`
	Storage        StoreOutcome    `json:"storage_info"`
}
