package classifier

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

// Finding names the indicator that matched. It never carries record content.
type Finding struct {
	Indicator string
	Pattern   bool
}

type compiledPattern struct {
	name string
	re   *regexp.Regexp
}

// Detector scans records for a fixed set of indicators.
type Detector struct {
	mode       MatchMode
	indicators []string
	patterns   []compiledPattern
}

func newDetector(rule Rule) (*Detector, error) {
	d := &Detector{mode: rule.Match}
	for _, ind := range rule.Indicators {
		ind = strings.TrimSpace(ind)
		if ind == "" {
			continue
		}
		if rule.Match == MatchText {
			ind = strings.ToLower(ind)
		}
		d.indicators = append(d.indicators, ind)
	}
	for _, pat := range rule.Patterns {
		re, err := regexp.Compile(pat.Expr)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", pat.Name, err)
		}
		d.patterns = append(d.patterns, compiledPattern{name: pat.Name, re: re})
	}
	return d, nil
}

// NewPHIDetector builds the sensitivity detector of the default policy.
func NewPHIDetector() *Detector {
	d, err := newDetector(DefaultPolicy().Rules[0])
	if err != nil {
		panic("classifier: default PHI detector: " + err.Error())
	}
	return d
}

// Detect returns the first indicator found in the record, if any.
func (d *Detector) Detect(record domain.AnalysisRecord, flat *flattened) (Finding, bool) {
	if d.mode == MatchField {
		for _, field := range d.indicators {
			if record.Has(field) {
				return Finding{Indicator: field}, true
			}
		}
		return Finding{}, false
	}

	if flat == nil {
		flat = flatten(record)
	}
	for _, ind := range d.indicators {
		if strings.Contains(flat.text, ind) {
			return Finding{Indicator: ind}, true
		}
	}
	for _, pat := range d.patterns {
		for _, s := range flat.strings {
			if pat.re.MatchString(s) {
				return Finding{Indicator: pat.name, Pattern: true}, true
			}
		}
	}
	return Finding{}, false
}

// Contains reports whether any indicator is present.
func (d *Detector) Contains(record domain.AnalysisRecord) bool {
	_, ok := d.Detect(record, nil)
	return ok
}

// flattened is a lower-cased text rendering of a record plus its string leaves.
type flattened struct {
	text    string
	strings []string
}

func flatten(record domain.AnalysisRecord) *flattened {
	out := &flattened{}
	var b strings.Builder
	walk(map[string]any(record), &b, out)
	out.text = strings.ToLower(b.String())
	return out
}

func walk(v any, b *strings.Builder, out *flattened) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null ")
	case domain.AnalysisRecord:
		walk(map[string]any(val), b, out)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(k)
			b.WriteString(": ")
			walk(val[k], b, out)
		}
	case map[string]string:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(k)
			b.WriteString(": ")
			walk(val[k], b, out)
		}
	case []any:
		for _, item := range val {
			walk(item, b, out)
		}
	case []string:
		for _, item := range val {
			walk(item, b, out)
		}
	case string:
		out.strings = append(out.strings, val)
		b.WriteString(val)
		b.WriteByte(' ')
	default:
		fmt.Fprintf(b, "%v ", val)
	}
}
