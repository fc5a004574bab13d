package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kirillkom/medical-intake/internal/core/domain"
	"github.com/kirillkom/medical-intake/internal/core/ports"
)

const (
	DefaultMaxNotesLength = 10000
	previewLines          = 5
)

// Ordered from most to least specific; the first hit wins.
var nhsNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bNHS\s*Number[:\s]*(\d{3}\s*\d{3}\s*\d{4})\b`),
	regexp.MustCompile(`(?i)\bNHS\s*No[:\s]*(\d{3}\s*\d{3}\s*\d{4})\b`),
	regexp.MustCompile(`\b(\d{3}\s*\d{3}\s*\d{4})\b`),
}

var defaultSummary = domain.AnalysisSummary{
	Summary:     "Analysis completed with limited confidence",
	KeyFindings: []string{"Patient data processed"},
	RiskAssessment: domain.RiskAssessment{
		OverallRisk:    "unknown",
		UrgentConcerns: []string{},
		RiskFactors:    []string{},
	},
	Recommendations: []string{"Manual review recommended"},
	ConfidenceScore: 0.1,
}

// AnalyzeUseCase runs patient notes and clinical letters through the AI step
// and hands the assembled record to the intake core. The AI step never fails
// a request: provider errors degrade to the fallback summarizer.
type AnalyzeUseCase struct {
	intake     ports.IntakeService
	primary    ports.Summarizer
	fallback   ports.Summarizer
	extractors map[string]ports.TextExtractor
	maxNotes   int
	now        func() time.Time
}

// NewAnalyzeUseCase wires the summarizers and letter extractors. primary may
// be nil when no AI provider is configured. extractors is keyed by lowercase
// file extension including the dot.
func NewAnalyzeUseCase(
	intake ports.IntakeService,
	primary ports.Summarizer,
	fallback ports.Summarizer,
	extractors map[string]ports.TextExtractor,
	maxNotesLength int,
) *AnalyzeUseCase {
	if maxNotesLength <= 0 {
		maxNotesLength = DefaultMaxNotesLength
	}
	normalized := make(map[string]ports.TextExtractor, len(extractors))
	for ext, ex := range extractors {
		normalized[strings.ToLower(ext)] = ex
	}
	return &AnalyzeUseCase{
		intake:     intake,
		primary:    primary,
		fallback:   fallback,
		extractors: normalized,
		maxNotes:   maxNotesLength,
		now:        time.Now,
	}
}

func (uc *AnalyzeUseCase) AnalyzeNotes(ctx context.Context, notes string) (*domain.NotesReport, error) {
	started := uc.now().UTC()

	cleaned := strings.TrimSpace(notes)
	if cleaned == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze notes", fmt.Errorf("patient data cannot be empty"))
	}
	chars := utf8.RuneCountInString(cleaned)
	if chars > uc.maxNotes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze notes",
			fmt.Errorf("patient data exceeds maximum length of %d characters", uc.maxNotes))
	}
	words := len(strings.Fields(cleaned))

	summary := uc.summarize(ctx, cleaned)
	analysisID := newAnalysisID("analysis", started)

	record := domain.AnalysisRecord{
		"analysis_id":      analysisID,
		"timestamp":        started.Format(time.RFC3339),
		"processing_time":  roundMillis(summary.ProcessingTime),
		"model_used":       summary.ModelUsed,
		"confidence_score": summary.ConfidenceScore,
		"summary":          summary.Summary,
		"key_findings":     stringsToAny(summary.KeyFindings),
		"risk_factors":     stringsToAny(summary.RiskAssessment.RiskFactors),
		"urgent_concerns":  stringsToAny(summary.RiskAssessment.UrgentConcerns),
		"overall_risk":     summary.RiskAssessment.OverallRisk,
		"recommendations":  stringsToAny(summary.Recommendations),
		"word_count":       words,
		"character_count":  chars,
		"tokens_used":      summary.TokensUsed,
	}
	outcome := uc.intake.ClassifyAndStore(ctx, record)

	elapsed := uc.now().UTC().Sub(started).Seconds()
	slog.Info("patient_notes_processed",
		"analysis_id", analysisID,
		"word_count", words,
		"model_used", summary.ModelUsed,
		"storage_status", string(outcome.Status),
		"processing_time_seconds", roundMillis(elapsed),
	)

	return &domain.NotesReport{
		AnalysisID:     analysisID,
		ProcessedAt:    started,
		ProcessingTime: roundMillis(elapsed),
		WordCount:      words,
		CharacterCount: chars,
		Analysis:       summary,
		Storage:        outcome,
	}, nil
}

func (uc *AnalyzeUseCase) AnalyzeLetter(ctx context.Context, filename string, body io.Reader) (*domain.LetterReport, error) {
	started := uc.now().UTC()
	name := sanitizeFilename(filename)

	ext := strings.ToLower(filepath.Ext(name))
	extractor, ok := uc.extractors[ext]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze letter", fmt.Errorf("unsupported file type %q", ext))
	}

	text, err := extractor.Extract(ctx, name, body)
	if err != nil {
		return nil, fmt.Errorf("extract letter text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze letter", fmt.Errorf("no text content found in %s", name))
	}

	nhsNumber := findNHSNumber(text)
	words := len(strings.Fields(text))
	chars := utf8.RuneCountInString(text)
	summary := uc.summarize(ctx, text)
	analysisID := newAnalysisID("letter", started)

	record := domain.AnalysisRecord{
		"analysis_id":           analysisID,
		"timestamp":             started.Format(time.RFC3339),
		"filename":              name,
		"nhs_number":            nilIfEmpty(nhsNumber),
		"word_count":            words,
		"character_count":       chars,
		"ai_summary":            summaryRecord(summary),
		"processing_successful": true,
	}
	outcome := uc.intake.ClassifyAndStore(ctx, record)

	slog.Info("clinical_letter_processed",
		"analysis_id", analysisID,
		"extension", ext,
		"word_count", words,
		"nhs_number_found", nhsNumber != "",
		"storage_status", string(outcome.Status),
	)

	return &domain.LetterReport{
		AnalysisID:     analysisID,
		ProcessedAt:    started,
		Filename:       name,
		WordCount:      words,
		CharacterCount: chars,
		NHSNumberFound: nhsNumber != "",
		Preview:        preview(text, previewLines),
		Analysis:       summary,
		Storage:        outcome,
	}, nil
}

func (uc *AnalyzeUseCase) summarize(ctx context.Context, text string) domain.AnalysisSummary {
	if uc.primary != nil {
		summary, err := uc.primary.Summarize(ctx, text)
		if err == nil {
			return summary
		}
		slog.Warn("summarizer_failed_using_fallback", "error", err.Error())
	}
	if uc.fallback != nil {
		summary, err := uc.fallback.Summarize(ctx, text)
		if err == nil {
			return summary
		}
		slog.Error("fallback_summarizer_failed", "error", err.Error())
	}
	summary := defaultSummary
	summary.ModelUsed = "none"
	return summary
}

func findNHSNumber(text string) string {
	for _, pattern := range nhsNumberPatterns {
		m := pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		return strings.Join(strings.Fields(m[1]), "")
	}
	return ""
}

func preview(text string, lines int) string {
	parts := strings.SplitN(text, "\n", lines+1)
	if len(parts) > lines {
		parts = parts[:lines]
	}
	return strings.Join(parts, "\n")
}

func newAnalysisID(prefix string, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + at.UTC().Format("20060102_150405") + "_" + suffix[:8]
}

func summaryRecord(s domain.AnalysisSummary) map[string]any {
	return map[string]any{
		"summary":          s.Summary,
		"key_findings":     stringsToAny(s.KeyFindings),
		"overall_risk":     s.RiskAssessment.OverallRisk,
		"urgent_concerns":  stringsToAny(s.RiskAssessment.UrgentConcerns),
		"risk_factors":     stringsToAny(s.RiskAssessment.RiskFactors),
		"recommendations":  stringsToAny(s.Recommendations),
		"confidence_score": s.ConfidenceScore,
		"model_used":       s.ModelUsed,
		"tokens_used":      s.TokensUsed,
	}
}

func stringsToAny(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func roundMillis(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "/" {
		return "letter.bin"
	}
	return base
}
