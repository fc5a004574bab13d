package domain

import (
	"errors"
	"fmt"
)

type Category string

const (
	CategoryClinicalOutput   Category = "clinical_output"
	CategoryAnalysisMetadata Category = "analysis_metadata"
	CategorySensitive        Category = "sensitive_patient_data"
	CategoryUnknown          Category = "unknown"
)

// StorableCategories is the fixed set of namespaces a projection may live in.
var StorableCategories = []Category{CategoryClinicalOutput, CategoryAnalysisMetadata}

func (c Category) Storable() bool {
	return c == CategoryClinicalOutput || c == CategoryAnalysisMetadata
}

func (c Category) Known() bool {
	switch c {
	case CategoryClinicalOutput, CategoryAnalysisMetadata, CategorySensitive, CategoryUnknown:
		return true
	default:
		return false
	}
}

type Sensitivity string

const (
	SensitivityNone    Sensitivity = "none"
	SensitivityLow     Sensitivity = "low"
	SensitivityHigh    Sensitivity = "high"
	SensitivityUnknown Sensitivity = "unknown"
)

// Classification is the storage decision for one record. It is a value and
// is never mutated after the classifier returns it.
type Classification struct {
	CanStore        bool        `json:"can_store"`
	Category        Category    `json:"category"`
	Sensitivity     Sensitivity `json:"sensitivity"`
	RetentionDays   int         `json:"retention_days"`
	RequiresConsent bool        `json:"requires_consent"`
	AuditRequired   bool        `json:"audit_required"`
	Reason          string      `json:"reason"`
}

// Validate checks the storable/category/retention invariant.
func (c Classification) Validate() error {
	if c.RetentionDays < 0 {
		return fmt.Errorf("negative retention days: %d", c.RetentionDays)
	}
	if c.CanStore {
		if !c.Category.Storable() {
			return fmt.Errorf("category %q cannot be storable", c.Category)
		}
		if c.RetentionDays == 0 {
			return errors.New("storable classification needs a retention window")
		}
		return nil
	}
	if c.RetentionDays != 0 {
		return fmt.Errorf("non-storable classification must not retain (got %d days)", c.RetentionDays)
	}
	return nil
}
