// Package projection reduces an analysis record to the identifier-free
// subset that may be persisted.
package projection

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

// Builder is the single point where record fields are copied into a storable
// shape. Only the fields of domain.SafeProjection can ever be populated.
type Builder struct {
	now func() time.Time
}

func NewBuilder() *Builder {
	return NewBuilderWithClock(time.Now)
}

func NewBuilderWithClock(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

// Build fails with domain.ErrPrecondition when cls is not storable.
func (b *Builder) Build(record domain.AnalysisRecord, cls domain.Classification) (domain.SafeProjection, error) {
	if !cls.CanStore {
		return domain.SafeProjection{}, domain.WrapError(domain.ErrPrecondition, "build projection",
			fmt.Errorf("classification %q is not storable", cls.Category))
	}
	if err := cls.Validate(); err != nil {
		return domain.SafeProjection{}, domain.WrapError(domain.ErrPrecondition, "build projection", err)
	}

	hash, err := IntegrityHash(map[string]any(record))
	if err != nil {
		return domain.SafeProjection{}, domain.WrapError(domain.ErrInvalidInput, "hash record", err)
	}

	p := domain.SafeProjection{
		Timestamp:      b.now().UTC(),
		DataHash:       hash,
		Classification: cls,
	}
	targets := map[string]*any{
		domain.FieldAnalysisID:      &p.AnalysisID,
		domain.FieldProcessingTime:  &p.ProcessingTime,
		domain.FieldModelUsed:       &p.ModelUsed,
		domain.FieldConfidenceScore: &p.ConfidenceScore,
		domain.FieldUrgencyLevel:    &p.UrgencyLevel,
		domain.FieldCareLevel:       &p.CareLevel,
		domain.FieldRiskFactors:     &p.RiskFactors,
		domain.FieldRecommendations: &p.Recommendations,
	}
	for field, dst := range targets {
		v, ok := record[field]
		if !ok || v == nil {
			continue
		}
		copied, err := plain(v)
		if err != nil {
			return domain.SafeProjection{}, domain.WrapError(domain.ErrInvalidInput, "copy field "+field, err)
		}
		*dst = copied
	}
	return p, nil
}

// Verify reports whether record is the one a projection was built from.
func Verify(record domain.AnalysisRecord, p domain.SafeProjection) (bool, error) {
	if p.DataHash == "" {
		return false, errors.New("projection has no integrity hash")
	}
	hash, err := IntegrityHash(map[string]any(record))
	if err != nil {
		return false, err
	}
	return hash == p.DataHash, nil
}
