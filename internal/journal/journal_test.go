package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"voice-features-go/internal/types"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func response(id string, started time.Time) *types.BatchResponse {
	return &types.BatchResponse{
		Success:    true,
		Message:    "ok",
		BatchID:    id,
		TemplateID: "tpl",
		StartedAt:  started,
		DurationMs: 42,
		Results: []types.RecordReport{
			{RecordID: "t1", RecordName: "Oak", AudioFilesFound: 1, AudioFilesProcessed: 1, FeaturesExtracted: 2, Errors: []string{}},
		},
		Summary: types.BatchSummary{TreesProcessed: 1, AudioFilesFound: 1, FilesProcessed: 1, FeaturesExtracted: 2},
	}
}

func TestSaveGet(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	want := response("b-1", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))

	if err := j.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := j.Get(ctx, "b-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("batch (-want +got):\n%s", diff)
	}
}

func TestGetUnknown(t *testing.T) {
	j := openTemp(t)
	if _, err := j.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveReplacesAndRecentOrders(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new"} {
		if err := j.Save(ctx, response(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}
	again := response("old", base)
	again.Summary.TotalErrors = 3
	if err := j.Save(ctx, again); err != nil {
		t.Fatal(err)
	}

	entries, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 || entries[0].BatchID != "new" || entries[1].BatchID != "old" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[1].Summary.TotalErrors != 3 {
		t.Fatalf("replaced entry not updated: %+v", entries[1])
	}
}

func TestRecentOrdersSubSecondStarts(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	if err := j.Save(ctx, response("older", base)); err != nil {
		t.Fatal(err)
	}
	if err := j.Save(ctx, response("newer", base.Add(500*time.Millisecond))); err != nil {
		t.Fatal(err)
	}

	entries, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	got := []string{entries[0].BatchID, entries[1].BatchID}
	if diff := cmp.Diff([]string{"newer", "older"}, got); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
	if !entries[0].StartedAt.Equal(base.Add(500 * time.Millisecond)) {
		t.Fatalf("started_at = %v", entries[0].StartedAt)
	}
}

func TestRetryOnBusyStopsAfterLastAttempt(t *testing.T) {
	calls := 0
	start := time.Now()
	err := retryOnBusy(context.Background(), func() error {
		calls++
		return errors.New("database is locked")
	})
	if err == nil || !isSQLiteBusy(err) {
		t.Fatalf("err = %v", err)
	}
	if calls != busyRetryAttempts {
		t.Fatalf("calls = %d, want %d", calls, busyRetryAttempts)
	}
	// four waits of 10+20+40+80ms; a sleep after the last attempt would add 160ms
	if elapsed := time.Since(start); elapsed >= 300*time.Millisecond {
		t.Fatalf("elapsed = %v, slept after the last attempt", elapsed)
	}
}

func TestRetryOnBusyReturnsOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("disk I/O error")
	err := retryOnBusy(context.Background(), func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
}

func TestSaveRequiresID(t *testing.T) {
	j := openTemp(t)
	if err := j.Save(context.Background(), &types.BatchResponse{}); err == nil {
		t.Fatal("expected error")
	}
}
