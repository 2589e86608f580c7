package dataset

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"voice-features-go/internal/types"
)

// LoadRecordIDs reads parent record ids from the first sheet of an xlsx file.
// The id column is found by header heuristics; without a recognisable header
// the first column is used.
func LoadRecordIDs(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	header := rows[0]
	idIdx := -1
	fallback := -1
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case l == "treeid" || l == "tree id" || l == "tree_id" || l == "recordid" || l == "record id" || l == "parentrecordid":
			if idIdx == -1 {
				idIdx = i
			}
		case strings.Contains(l, "id") && !strings.Contains(l, "template") && !strings.Contains(l, "feature"):
			if fallback == -1 {
				fallback = i
			}
		}
	}
	if idIdx == -1 {
		idIdx = fallback
	}
	if idIdx == -1 {
		idIdx = 0
	}

	seen := map[string]bool{}
	var out []string
	for i, r := range rows {
		if i == 0 || idIdx >= len(r) {
			continue
		}
		id := strings.TrimSpace(r[idIdx])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

const (
	summarySheet = "Summary"
	recordsSheet = "Records"
)

// WriteReport writes a batch response as a two-sheet workbook.
func WriteReport(path string, resp *types.BatchResponse) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	summary := [][]any{
		{"Batch", resp.BatchID},
		{"Template", resp.TemplateID},
		{"Started", resp.StartedAt.Format("2006-01-02 15:04:05")},
		{"Duration (ms)", resp.DurationMs},
		{"Message", resp.Message},
		{"Trees processed", resp.Summary.TreesProcessed},
		{"Audio files found", resp.Summary.AudioFilesFound},
		{"Files processed", resp.Summary.FilesProcessed},
		{"Features extracted", resp.Summary.FeaturesExtracted},
		{"Errors", resp.Summary.TotalErrors},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if _, err := f.NewSheet(recordsSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	header := []any{"Tree ID", "Tree", "Audio found", "Audio processed", "Features extracted", "Errors"}
	if err := f.SetSheetRow(recordsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rep := range resp.Results {
		row := []any{
			rep.RecordID,
			rep.RecordName,
			rep.AudioFilesFound,
			rep.AudioFilesProcessed,
			rep.FeaturesExtracted,
			strings.Join(rep.Errors, "\n"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(recordsSheet, cell, &row); err != nil {
			return fmt.Errorf("write record row: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
