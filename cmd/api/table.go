package main

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"voice-features-go/internal/journal"
	"voice-features-go/internal/types"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func renderBatch(resp *types.BatchResponse) string {
	rows := make([][]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		rows = append(rows, []string{
			r.RecordID,
			r.RecordName,
			strconv.Itoa(r.AudioFilesProcessed) + "/" + strconv.Itoa(r.AudioFilesFound),
			strconv.Itoa(r.FeaturesExtracted),
			strings.Join(r.Errors, "\n"),
		})
	}
	var b strings.Builder
	b.WriteString(resp.Message)
	b.WriteString("\nbatch ")
	b.WriteString(resp.BatchID)
	b.WriteString(" took ")
	b.WriteString(strconv.FormatInt(resp.DurationMs, 10))
	b.WriteString("ms\n")
	if len(rows) > 0 {
		b.WriteString(renderTable(
			[]string{"Tree", "Name", "Audio", "Features", "Errors"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
	}
	return b.String()
}

func renderHistory(entries []journal.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.BatchID,
			e.TemplateID,
			humanize.Time(e.StartedAt),
			strconv.Itoa(e.Summary.TreesProcessed),
			strconv.Itoa(e.Summary.FilesProcessed),
			strconv.Itoa(e.Summary.FeaturesExtracted),
			strconv.Itoa(e.Summary.TotalErrors),
		})
	}
	return renderTable(
		[]string{"Batch", "Template", "Started", "Trees", "Files", "Features", "Errors"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}
