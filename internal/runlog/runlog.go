// Package runlog records the history of CLI runs in a local SQLite database.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/estimates-cli/internal/model"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Entry is one row of the run log.
type Entry struct {
	ID          string         `json:"id"`
	Command     string         `json:"command"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Found       int            `json:"found"`
	Cached      int            `json:"cached"`
	Skipped     int            `json:"skipped"`
	Failed      int            `json:"failed"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Duration is the wall time of a finished run, or zero while running.
func (e Entry) Duration() time.Duration {
	if e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(e.StartedAt)
}

// Result is recorded when a run finishes.
type Result struct {
	Summaries []model.Summary
	Metadata  map[string]any
}

func (r *Result) totals() (found, cached, skipped, failed int) {
	if r == nil {
		return
	}
	for _, s := range r.Summaries {
		found += s.Found
		cached += s.Cached
		skipped += s.Skipped
		failed += s.Failed
	}
	return
}

// RunLog provides read/write access to the runs table.
type RunLog struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the run log at path.
func Open(ctx context.Context, path string) (*RunLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "runlog: create dir")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: open")
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "runlog: pragma")
	}
	if _, err := db.ExecContext(ctx, migration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "runlog: migrate")
	}
	return &RunLog{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	command      TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TEXT NOT NULL,
	completed_at TEXT,
	found        INTEGER NOT NULL DEFAULT 0,
	cached       INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	metadata     TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (l *RunLog) Close() error {
	return l.db.Close()
}

// Start records the beginning of a run and returns its ID.
func (l *RunLog) Start(ctx context.Context, command string) (string, error) {
	id := uuid.New().String()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, status, started_at) VALUES (?, ?, ?, ?)`,
		id, command, StatusRunning, l.now().Format(timeLayout),
	)
	if err != nil {
		return "", eris.Wrapf(err, "runlog: start %s", command)
	}
	return id, nil
}

// Complete marks a run as successfully finished.
func (l *RunLog) Complete(ctx context.Context, id string, result *Result) error {
	return l.finish(ctx, id, StatusComplete, "", result)
}

// Fail marks a run as failed.
func (l *RunLog) Fail(ctx context.Context, id string, errMsg string, result *Result) error {
	return l.finish(ctx, id, StatusFailed, errMsg, result)
}

func (l *RunLog) finish(ctx context.Context, id, status, errMsg string, result *Result) error {
	var metaJSON []byte
	if result != nil && result.Metadata != nil {
		var err error
		if metaJSON, err = json.Marshal(result.Metadata); err != nil {
			return eris.Wrap(err, "runlog: marshal metadata")
		}
	}
	found, cached, skipped, failed := result.totals()

	var errVal any
	if errMsg != "" {
		errVal = errMsg
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, found = ?, cached = ?, skipped = ?, failed = ?, error = ?, metadata = ?
		 WHERE id = ?`,
		status, l.now().Format(timeLayout), found, cached, skipped, failed, errVal, nullString(metaJSON), id,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: finish %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "runlog: rows affected")
	}
	if n == 0 {
		return eris.Errorf("runlog: run not found: %s", id)
	}
	return nil
}

// List returns the most recent runs first, at most limit when limit > 0.
func (l *RunLog) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT id, command, status, started_at, completed_at, found, cached, skipped, failed, error, metadata
		FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			started           string
			completed, errStr sql.NullString
			meta              sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Command, &e.Status, &started, &completed, &e.Found, &e.Cached, &e.Skipped, &e.Failed, &errStr, &meta); err != nil {
			return nil, eris.Wrap(err, "runlog: scan entry")
		}
		if e.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, eris.Wrapf(err, "runlog: parse started_at of %s", e.ID)
		}
		if completed.Valid {
			t, err := time.Parse(timeLayout, completed.String)
			if err != nil {
				return nil, eris.Wrapf(err, "runlog: parse completed_at of %s", e.ID)
			}
			e.CompletedAt = &t
		}
		e.Error = errStr.String
		if meta.Valid {
			_ = json.Unmarshal([]byte(meta.String), &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LastSuccess returns the start time of the latest complete run of command,
// or nil when there is none.
func (l *RunLog) LastSuccess(ctx context.Context, command string) (*time.Time, error) {
	var started string
	err := l.db.QueryRowContext(ctx,
		`SELECT started_at FROM runs WHERE command = ? AND status = ? ORDER BY started_at DESC LIMIT 1`,
		command, StatusComplete,
	).Scan(&started)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "runlog: last success for %s", command)
	}
	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: parse started_at")
	}
	return &t, nil
}

func nullString(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
