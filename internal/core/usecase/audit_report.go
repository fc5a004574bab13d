package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/medical-intake/internal/core/domain"
	"github.com/kirillkom/medical-intake/internal/core/ports"
)

type AuditReportUseCase struct {
	audit    ports.AuditLog
	exporter ports.AuditExporter
}

func NewAuditReportUseCase(audit ports.AuditLog, exporter ports.AuditExporter) *AuditReportUseCase {
	return &AuditReportUseCase{audit: audit, exporter: exporter}
}

// Entries returns the UTC day's audit entries in append order. A day with no
// activity yields an empty slice.
func (uc *AuditReportUseCase) Entries(ctx context.Context, day time.Time) ([]domain.AuditEntry, error) {
	entries, err := uc.audit.ListByDay(ctx, day.UTC())
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackend, "list audit entries", err)
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return entries, nil
}

func (uc *AuditReportUseCase) Export(ctx context.Context, day time.Time) ([]byte, error) {
	entries, err := uc.Entries(ctx, day)
	if err != nil {
		return nil, err
	}
	data, err := uc.exporter.Export(entries)
	if err != nil {
		return nil, fmt.Errorf("export audit day %s: %w", day.UTC().Format(domain.AuditDayLayout), err)
	}
	return data, nil
}

// ParseAuditDay accepts the YYYYMMDD partition key used by every audit backend.
func ParseAuditDay(raw string) (time.Time, error) {
	day, err := time.ParseInLocation(domain.AuditDayLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, domain.WrapError(domain.ErrInvalidInput, "parse audit day", err)
	}
	return day, nil
}
