package main

import (
	"strings"
	"testing"
	"time"

	"voice-features-go/internal/journal"
	"voice-features-go/internal/types"
)

func TestRenderBatch(t *testing.T) {
	out := renderBatch(&types.BatchResponse{
		Message:    "Processed 1 tree(s)",
		BatchID:    "b-7",
		DurationMs: 1200,
		Results: []types.RecordReport{
			{RecordID: "t1", RecordName: "Oak", AudioFilesFound: 2, AudioFilesProcessed: 1, FeaturesExtracted: 3, Errors: []string{"attachment r2: fetch: gone"}},
		},
	})
	for _, want := range []string{"Processed 1 tree(s)", "b-7", "1200ms", "Oak", "1/2", "attachment r2: fetch: gone", "╭"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderBatch_NoResults(t *testing.T) {
	out := renderBatch(&types.BatchResponse{Message: "No trees found to process", BatchID: "b-1"})
	if strings.Contains(out, "╭") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}

func TestRenderHistory(t *testing.T) {
	out := renderHistory([]journal.Entry{{
		BatchID:    "b-1",
		TemplateID: "tpl",
		StartedAt:  time.Now().Add(-2 * time.Hour),
		Summary:    types.BatchSummary{TreesProcessed: 4, FilesProcessed: 3, FeaturesExtracted: 9, TotalErrors: 1},
	}})
	for _, want := range []string{"b-1", "tpl", "hours ago", "BATCH"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRootDefaultsToServe(t *testing.T) {
	root := newRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "batch", "history"} {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
	if root.RunE == nil {
		t.Fatal("root command should run serve")
	}
}
