package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

func TestExportWritesHeaderAndRows(t *testing.T) {
	ts := time.Date(2025, 8, 11, 14, 30, 0, 0, time.UTC)
	raw, err := NewExporter().Export([]domain.AuditEntry{
		{Timestamp: ts, StorageID: "id-1", Action: domain.AuditStore, Category: domain.CategoryClinicalOutput},
		{Timestamp: ts.Add(time.Minute), StorageID: "id-1", Action: domain.AuditDelete, Category: domain.CategoryClinicalOutput},
	})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][1] != "Storage ID" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "2025-08-11T14:30:00Z" || rows[2][2] != "delete" {
		t.Fatalf("unexpected rows %v", rows[1:])
	}
}

func TestExportEmptyDay(t *testing.T) {
	raw, err := NewExporter().Export(nil)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(sheetName)
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
