// Package history records every assembly run, including which segments were
// skipped and why, in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/forPelevin/notereel/internal/types"
)

//go:embed schema.sql
var schema string

var ErrNotFound = errors.New("run not found")

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the history database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
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
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string { return s.path }

// Begin inserts a run row in the downloading_audio stage.
func (s *Store) Begin(ctx context.Context, id, document string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, document, stage, started_at) VALUES (?, ?, ?, ?)`,
		id, document, string(types.StageDownloadingAudio), formatTime(startedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// SetStage records an intermediate stage while the run is in flight.
func (s *Store) SetStage(ctx context.Context, id string, stage types.Stage) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET stage = ? WHERE id = ?`, string(stage), id)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	return expectRow(res)
}

// Finish stores the terminal stage, the outcome of every attempted segment
// and the error message, if any.
func (s *Store) Finish(ctx context.Context, summary types.RunSummary) error {
	rendered, skipped := summary.Counts()
	ended := time.Now().UTC()
	if summary.EndedAt != nil {
		ended = *summary.EndedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finish tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET stage = ?, output = ?, error_message = ?, rendered = ?, skipped = ?, finished_at = ?
		 WHERE id = ?`,
		string(summary.Stage),
		nullableString(summary.Output),
		nullableString(summary.Error),
		rendered,
		skipped,
		formatTime(ended),
		summary.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if err := expectRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE run_id = ?`, summary.ID); err != nil {
		return fmt.Errorf("clear segments: %w", err)
	}
	for _, o := range summary.Outcomes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO segments (run_id, idx, status, reason, clip) VALUES (?, ?, ?, ?, ?)`,
			summary.ID, o.Index, string(o.Status), nullableString(o.Reason), nullableString(o.ClipPath),
		); err != nil {
			return fmt.Errorf("insert segment %d: %w", o.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish tx: %w", err)
	}
	return nil
}

// Entry is one row of the run list.
type Entry struct {
	types.RunSummary
	Rendered int `json:"rendered"`
	Skipped  int `json:"skipped"`
}

const runColumns = "id, document, stage, output, error_message, rendered, skipped, started_at, finished_at"

// List returns the most recent runs first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns one run together with its segment outcomes.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get run: %w", err)
	}
	e.Outcomes, err = s.Segments(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Segments returns the recorded outcomes of a run in index order.
func (s *Store) Segments(ctx context.Context, id string) ([]types.SegmentOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, status, reason, clip FROM segments WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var out []types.SegmentOutcome
	for rows.Next() {
		var (
			o      types.SegmentOutcome
			status string
			reason sql.NullString
			clip   sql.NullString
		)
		if err := rows.Scan(&o.Index, &status, &reason, &clip); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		o.Status = types.OutcomeStatus(status)
		o.Reason = reason.String
		o.ClipPath = clip.String
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		e          Entry
		stage      string
		output     sql.NullString
		errMessage sql.NullString
		startedRaw string
		endedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&e.ID,
		&e.Document,
		&stage,
		&output,
		&errMessage,
		&e.Rendered,
		&e.Skipped,
		&startedRaw,
		&endedRaw,
	); err != nil {
		return Entry{}, err
	}
	e.Stage = types.Stage(stage)
	e.Output = output.String
	e.Error = errMessage.String
	if t, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		e.StartedAt = t
	}
	if endedRaw.Valid {
		if t, err := time.Parse(time.RFC3339Nano, endedRaw.String); err == nil {
			e.EndedAt = &t
		}
	}
	return e, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
