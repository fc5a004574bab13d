// Package classifier decides, for every record leaving the AI step, whether
// any part of it may be persisted.
//
// Rules are evaluated in table order and the first match wins. Sensitivity
// rules always run before any storable rule, and a record matching nothing is
// denied storage.
package classifier

import (
	"fmt"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

type outcome struct {
	sensitivity     domain.Sensitivity
	requiresConsent bool
	auditRequired   bool
	reason          string
}

var outcomes = map[domain.Category]outcome{
	domain.CategorySensitive: {
		sensitivity:     domain.SensitivityHigh,
		requiresConsent: true,
		auditRequired:   true,
		reason:          "Contains sensitive patient information",
	},
	domain.CategoryClinicalOutput: {
		sensitivity:   domain.SensitivityLow,
		auditRequired: true,
		reason:        "Clinical analysis results without patient identifiers",
	},
	domain.CategoryAnalysisMetadata: {
		sensitivity: domain.SensitivityNone,
		reason:      "System metadata for performance monitoring",
	},
	domain.CategoryUnknown: {
		sensitivity:     domain.SensitivityUnknown,
		requiresConsent: true,
		auditRequired:   true,
		reason:          "Unknown data type - defaulting to no storage for safety",
	},
}

type compiledRule struct {
	category domain.Category
	detector *Detector
}

// Classifier is stateless after construction and safe for concurrent use.
type Classifier struct {
	rules     []compiledRule
	retention map[domain.Category]int
}

// New compiles a validated policy.
func New(policy Policy) (*Classifier, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	c := &Classifier{retention: make(map[domain.Category]int, len(policy.RetentionDays))}
	for cat, days := range policy.RetentionDays {
		c.retention[cat] = days
	}
	for i, rule := range policy.Rules {
		det, err := newDetector(rule)
		if err != nil {
			return nil, fmt.Errorf("classifier rule %d: %w", i, err)
		}
		c.rules = append(c.rules, compiledRule{category: rule.Category, detector: det})
	}
	return c, nil
}

// NewDefault returns a classifier over DefaultPolicy.
func NewDefault() *Classifier {
	c, err := New(DefaultPolicy())
	if err != nil {
		panic("classifier: default policy: " + err.Error())
	}
	return c
}

// Classify returns the storage decision for record. It performs no I/O.
func (c *Classifier) Classify(record domain.AnalysisRecord) domain.Classification {
	cls, _ := c.Explain(record)
	return cls
}

// Explain is Classify plus the indicator that decided the outcome.
func (c *Classifier) Explain(record domain.AnalysisRecord) (domain.Classification, Finding) {
	var flat *flattened
	for _, rule := range c.rules {
		if rule.detector.mode == MatchText && flat == nil {
			flat = flatten(record)
		}
		if finding, ok := rule.detector.Detect(record, flat); ok {
			return c.decide(rule.category), finding
		}
	}
	return c.decide(domain.CategoryUnknown), Finding{}
}

// RetentionDays returns the retention window for a category, 0 when the
// category is never persisted.
func (c *Classifier) RetentionDays(category domain.Category) int {
	if !category.Storable() {
		return 0
	}
	return c.retention[category]
}

func (c *Classifier) decide(category domain.Category) domain.Classification {
	o := outcomes[category]
	retention := c.RetentionDays(category)
	return domain.Classification{
		CanStore:        category.Storable() && retention > 0,
		Category:        category,
		Sensitivity:     o.sensitivity,
		RetentionDays:   retention,
		RequiresConsent: o.requiresConsent,
		AuditRequired:   o.auditRequired,
		Reason:          o.reason,
	}
}
