package classifier

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

// MatchMode selects how a rule's indicators are tested against a record.
type MatchMode string

const (
	// MatchText is a case-insensitive substring test over the flattened record
	// (field names and values).
	MatchText MatchMode = "text"
	// MatchField is a presence test over top-level field names.
	MatchField MatchMode = "field"
)

// Pattern is a named content pattern applied to string values.
type Pattern struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

// Rule maps a set of indicators to a category. Rules are evaluated in order;
// the first match wins.
type Rule struct {
	Category   domain.Category `yaml:"category"`
	Match      MatchMode       `yaml:"match"`
	Indicators []string        `yaml:"indicators"`
	Patterns   []Pattern       `yaml:"patterns"`
}

// Policy is the declarative classification table.
type Policy struct {
	Rules         []Rule                  `yaml:"rules"`
	RetentionDays map[domain.Category]int `yaml:"retention_days"`
}

// DefaultPolicy returns the built-in indicator table.
func DefaultPolicy() Policy {
	return Policy{
		Rules: []Rule{
			{
				Category: domain.CategorySensitive,
				Match:    MatchText,
				Indicators: []string{
					"name", "address", "phone", "email", "nhs_number",
					"date_of_birth", "postcode", "full_name",
				},
				Patterns: []Pattern{
					{Name: "email", Expr: `(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`},
					{Name: "ssn", Expr: `\b\d{3}-\d{2}-\d{4}\b`},
					{Name: "phone", Expr: `\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`},
					{Name: "nhs_number", Expr: `\b\d{3}\s?\d{3}\s?\d{4}\b`},
				},
			},
			{
				Category: domain.CategoryClinicalOutput,
				Match:    MatchField,
				Indicators: []string{
					domain.FieldUrgencyLevel, domain.FieldCareLevel, domain.FieldRiskFactors,
					domain.FieldRecommendations, domain.FieldConfidenceScore,
				},
			},
			{
				Category: domain.CategoryAnalysisMetadata,
				Match:    MatchField,
				Indicators: []string{
					domain.FieldProcessingTime, domain.FieldModelUsed, "timestamp",
					domain.FieldAnalysisID, "created_at",
				},
			},
		},
		RetentionDays: map[domain.Category]int{
			domain.CategoryClinicalOutput:   30,
			domain.CategoryAnalysisMetadata: 90,
		},
	}
}

// LoadPolicy reads a YAML policy. An empty path yields DefaultPolicy.
// Retention entries missing from the file keep their default values.
func LoadPolicy(path string) (Policy, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPolicy(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read classifier policy: %w", err)
	}
	return ParsePolicy(raw)
}

// ParsePolicy decodes and validates a YAML policy document.
func ParsePolicy(raw []byte) (Policy, error) {
	var parsed Policy
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return Policy{}, fmt.Errorf("decode classifier policy: %w", err)
	}

	def := DefaultPolicy()
	if len(parsed.Rules) == 0 {
		parsed.Rules = def.Rules
	}
	retention := make(map[domain.Category]int, len(def.RetentionDays))
	for cat, days := range def.RetentionDays {
		retention[cat] = days
	}
	for cat, days := range parsed.RetentionDays {
		retention[cat] = days
	}
	parsed.RetentionDays = retention

	if err := parsed.Validate(); err != nil {
		return Policy{}, err
	}
	return parsed, nil
}

// Validate enforces the fail-closed invariants of the table: at least one
// sensitivity rule, every sensitivity rule ahead of every storable rule, and a
// positive retention window for each storable category.
func (p Policy) Validate() error {
	if len(p.Rules) == 0 {
		return errors.New("classifier policy: no rules")
	}

	sawStorable := false
	sawSensitive := false
	for i, rule := range p.Rules {
		switch {
		case rule.Category == domain.CategoryUnknown:
			return fmt.Errorf("classifier policy: rule %d: %q is the default outcome and cannot be matched", i, rule.Category)
		case !rule.Category.Known():
			return fmt.Errorf("classifier policy: rule %d: unknown category %q", i, rule.Category)
		}
		if rule.Match != MatchText && rule.Match != MatchField {
			return fmt.Errorf("classifier policy: rule %d: unsupported match mode %q", i, rule.Match)
		}
		if len(rule.Indicators) == 0 && len(rule.Patterns) == 0 {
			return fmt.Errorf("classifier policy: rule %d: no indicators", i)
		}
		for _, pat := range rule.Patterns {
			if _, err := regexp.Compile(pat.Expr); err != nil {
				return fmt.Errorf("classifier policy: rule %d: pattern %q: %w", i, pat.Name, err)
			}
		}

		if rule.Category == domain.CategorySensitive {
			if sawStorable {
				return fmt.Errorf("classifier policy: rule %d: sensitivity rules must precede storable rules", i)
			}
			sawSensitive = true
			continue
		}
		sawStorable = true
		if p.RetentionDays[rule.Category] <= 0 {
			return fmt.Errorf("classifier policy: category %q needs a positive retention window", rule.Category)
		}
	}
	if !sawSensitive {
		return errors.New("classifier policy: a sensitivity rule is required")
	}
	return nil
}
