package domain

import "sort"

// AnalysisRecord is the open-ended output of the AI step and upstream
// extraction. No schema is guaranteed.
type AnalysisRecord map[string]any

// Has reports whether the record carries the field at top level.
func (r AnalysisRecord) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Keys returns the top-level field names in sorted order.
func (r AnalysisRecord) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
