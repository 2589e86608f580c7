// Package journal keeps completed batch responses in SQLite.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"voice-features-go/internal/types"
)

// ErrNotFound is returned by Get for an unknown batch id.
var ErrNotFound = errors.New("batch not found")

type Journal struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode    = 5
	busyRetryAttempts = 5
	busyRetryBackoff  = 10 * time.Millisecond

	// fixed width so started_at sorts as text in time order
	startedLayout = "2006-01-02T15:04:05.000000000Z"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id           TEXT PRIMARY KEY,
	template_id  TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	duration_ms  INTEGER NOT NULL,
	trees        INTEGER NOT NULL,
	files        INTEGER NOT NULL,
	features     INTEGER NOT NULL,
	errors       INTEGER NOT NULL,
	payload      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_batches_started ON batches(started_at);
`

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &Journal{db: db, path: path}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Save stores resp under its batch id, replacing any earlier entry.
func (j *Journal) Save(ctx context.Context, resp *types.BatchResponse) error {
	if resp == nil || resp.BatchID == "" {
		return errors.New("journal: batch id required")
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	return retryOnBusy(ctx, func() error {
		_, err := j.db.ExecContext(ctx, `
INSERT INTO batches (id, template_id, started_at, duration_ms, trees, files, features, errors, payload)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	template_id = excluded.template_id,
	started_at  = excluded.started_at,
	duration_ms = excluded.duration_ms,
	trees       = excluded.trees,
	files       = excluded.files,
	features    = excluded.features,
	errors      = excluded.errors,
	payload     = excluded.payload`,
			resp.BatchID,
			resp.TemplateID,
			resp.StartedAt.UTC().Format(startedLayout),
			resp.DurationMs,
			resp.Summary.TreesProcessed,
			resp.Summary.FilesProcessed,
			resp.Summary.FeaturesExtracted,
			resp.Summary.TotalErrors,
			string(payload),
		)
		return err
	})
}

// Get loads a stored batch response.
func (j *Journal) Get(ctx context.Context, id string) (*types.BatchResponse, error) {
	var payload string
	err := j.db.QueryRowContext(ctx, `SELECT payload FROM batches WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read batch %s: %w", id, err)
	}
	var resp types.BatchResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, fmt.Errorf("decode batch %s: %w", id, err)
	}
	return &resp, nil
}

// Entry is one row of the batch listing.
type Entry struct {
	BatchID    string
	TemplateID string
	StartedAt  time.Time
	DurationMs int64
	Summary    types.BatchSummary
}

// Recent lists the newest batches first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT id, template_id, started_at, duration_ms, trees, files, features, errors
FROM batches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			started string
		)
		if err := rows.Scan(&e.BatchID, &e.TemplateID, &started, &e.DurationMs,
			&e.Summary.TreesProcessed, &e.Summary.FilesProcessed, &e.Summary.FeaturesExtracted, &e.Summary.TotalErrors); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		e.StartedAt, _ = time.Parse(startedLayout, started)
		out = append(out, e)
	}
	return out, rows.Err()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			return lastErr
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return lastErr
}
