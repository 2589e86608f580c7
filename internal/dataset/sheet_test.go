package dataset

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"voice-features-go/internal/types"
)

func writeSheet(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "ids.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRecordIDs_HeaderDetection(t *testing.T) {
	path := writeSheet(t, [][]any{
		{"Template ID", "Name", "Tree ID"},
		{"tpl", "Oak", "t1"},
		{"tpl", "Elm", "t2"},
		{"tpl", "Oak again", "t1"},
		{"tpl", "blank", ""},
	})
	got, err := LoadRecordIDs(path)
	if err != nil {
		t.Fatalf("LoadRecordIDs: %v", err)
	}
	if diff := cmp.Diff([]string{"t1", "t2"}, got); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}
}

func TestLoadRecordIDs_FirstColumnFallback(t *testing.T) {
	path := writeSheet(t, [][]any{
		{"trees"},
		{"a"},
		{"b"},
	})
	got, err := LoadRecordIDs(path)
	if err != nil {
		t.Fatalf("LoadRecordIDs: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}
}

func TestLoadRecordIDs_NoRows(t *testing.T) {
	path := writeSheet(t, [][]any{{"Tree ID"}})
	if _, err := LoadRecordIDs(path); err == nil {
		t.Fatal("expected error for header-only sheet")
	}
}

func TestWriteReport(t *testing.T) {
	resp := &types.BatchResponse{
		Success:    true,
		Message:    "done",
		BatchID:    "b-1",
		TemplateID: "tpl",
		StartedAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Results: []types.RecordReport{
			{RecordID: "t1", RecordName: "Oak", AudioFilesFound: 2, AudioFilesProcessed: 1, FeaturesExtracted: 3, Errors: []string{"boom"}},
		},
		Summary: types.BatchSummary{TreesProcessed: 1, AudioFilesFound: 2, FilesProcessed: 1, FeaturesExtracted: 3, TotalErrors: 1},
	}
	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := WriteReport(path, resp); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(recordsSheet)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"Tree ID", "Tree", "Audio found", "Audio processed", "Features extracted", "Errors"},
		{"t1", "Oak", "2", "1", "3", "boom"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("records sheet (-want +got):\n%s", diff)
	}
	batch, _ := f.GetCellValue(summarySheet, "B1")
	if batch != "b-1" {
		t.Fatalf("summary batch cell = %q", batch)
	}
}
