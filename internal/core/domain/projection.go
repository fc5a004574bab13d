package domain

import "time"

// Allow-listed field names. These are the only record fields that can ever
// reach storage.
const (
	FieldAnalysisID      = "analysis_id"
	FieldProcessingTime  = "processing_time"
	FieldModelUsed       = "model_used"
	FieldConfidenceScore = "confidence_score"
	FieldUrgencyLevel    = "urgency_level"
	FieldCareLevel       = "care_level"
	FieldRiskFactors     = "risk_factors"
	FieldRecommendations = "recommendations"
)

// SafeProjection is the identifier-free subset of a record approved for
// persistence. Its shape is the allow-list: there is no place to put any
// other field.
type SafeProjection struct {
	StorageID string    `json:"storage_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	AnalysisID      any `json:"analysis_id,omitempty"`
	ProcessingTime  any `json:"processing_time,omitempty"`
	ModelUsed       any `json:"model_used,omitempty"`
	ConfidenceScore any `json:"confidence_score,omitempty"`
	UrgencyLevel    any `json:"urgency_level,omitempty"`
	CareLevel       any `json:"care_level,omitempty"`
	RiskFactors     any `json:"risk_factors,omitempty"`
	Recommendations any `json:"recommendations,omitempty"`

	DataHash       string         `json:"data_hash"`
	Classification Classification `json:"classification"`
}

// Fields returns the allow-listed values that are present.
func (p SafeProjection) Fields() map[string]any {
	out := make(map[string]any, 8)
	for name, v := range map[string]any{
		FieldAnalysisID:      p.AnalysisID,
		FieldProcessingTime:  p.ProcessingTime,
		FieldModelUsed:       p.ModelUsed,
		FieldConfidenceScore: p.ConfidenceScore,
		FieldUrgencyLevel:    p.UrgencyLevel,
		FieldCareLevel:       p.CareLevel,
		FieldRiskFactors:     p.RiskFactors,
		FieldRecommendations: p.Recommendations,
	} {
		if v != nil {
			out[name] = v
		}
	}
	return out
}

// StoredItem is a projection together with its physical location.
type StoredItem struct {
	Projection SafeProjection
	Category   Category
	Key        string
	SizeBytes  int64
}
