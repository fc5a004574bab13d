package plaintext

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

func TestExtractTrimsAndNormalisesNewlines(t *testing.T) {
	got, err := NewExtractor(0).Extract(context.Background(), "letter.txt", strings.NewReader("  line one\r\nline two \n"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "line one\nline two" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	_, err := NewExtractor(0).Extract(context.Background(), "x.txt", strings.NewReader("\xff\xfe\x00"))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestExtractEnforcesSizeLimit(t *testing.T) {
	_, err := NewExtractor(4).Extract(context.Background(), "x.txt", strings.NewReader("12345"))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
