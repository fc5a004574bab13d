package classifier

import (
	"testing"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

func TestPHIDetectorContains(t *testing.T) {
	d := NewPHIDetector()
	if !d.Contains(domain.AnalysisRecord{"meta": map[string]string{"Postcode": "x"}}) {
		t.Fatalf("expected nested typed map key to be scanned")
	}
	if !d.Contains(domain.AnalysisRecord{"list": []string{"reach me at a.b@c.org"}}) {
		t.Fatalf("expected email in []string to be detected")
	}
	if d.Contains(domain.AnalysisRecord{"care_level": "ward", "score": 0.5}) {
		t.Fatalf("expected no indicator")
	}
}

func TestFlattenIsOrderIndependent(t *testing.T) {
	a := flatten(domain.AnalysisRecord{"b": 1, "a": map[string]any{"y": "Y", "x": "X"}})
	b := flatten(domain.AnalysisRecord{"a": map[string]any{"x": "X", "y": "Y"}, "b": 1})
	if a.text != b.text {
		t.Fatalf("flatten differs: %q vs %q", a.text, b.text)
	}
	if len(a.strings) != 2 {
		t.Fatalf("expected two string leaves, got %v", a.strings)
	}
}
