// Package ledger keeps a per-project record of harness iterations:
// when each session ran, how it ended, and how long the harness slept
// afterwards. Bookkeeping for the operator only — never conversation
// history, which belongs to the agent runtime.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// FileName is the ledger database name inside the project's harness
// state directory.
const FileName = "ledger.db"

const schema = `
CREATE TABLE IF NOT EXISTS iterations (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	iteration     INTEGER NOT NULL,
	prompt_kind   TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	started_at    TIMESTAMP NOT NULL,
	finished_at   TIMESTAMP NOT NULL,
	sleep_seconds REAL NOT NULL DEFAULT 0,
	note          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_iterations_run ON iterations(run_id, iteration);
`

// Record is one completed iteration.
type Record struct {
	RunID        string
	Iteration    int
	PromptKind   string
	Outcome      string
	StartedAt    time.Time
	FinishedAt   time.Time
	SleepSeconds float64
	Note         string
}

// Ledger is a SQLite-backed iteration log.
type Ledger struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string, logger zerolog.Logger) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	return &Ledger{
		db:     db,
		logger: logger.With().Str("component", "ledger").Logger(),
	}, nil
}

// Append stores one iteration record.
func (l *Ledger) Append(rec Record) error {
	_, err := l.db.Exec(
		`INSERT INTO iterations
		 (run_id, iteration, prompt_kind, outcome, started_at, finished_at, sleep_seconds, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Iteration, rec.PromptKind, rec.Outcome,
		rec.StartedAt.UTC(), rec.FinishedAt.UTC(), rec.SleepSeconds, rec.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to append iteration record: %w", err)
	}
	return nil
}

// Recent returns the latest n records, newest first.
func (l *Ledger) Recent(n int) ([]Record, error) {
	rows, err := l.db.Query(
		`SELECT run_id, iteration, prompt_kind, outcome, started_at, finished_at, sleep_seconds, note
		 FROM iterations ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query iteration records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.RunID, &rec.Iteration, &rec.PromptKind, &rec.Outcome,
			&rec.StartedAt, &rec.FinishedAt, &rec.SleepSeconds, &rec.Note,
		); err != nil {
			return nil, fmt.Errorf("failed to scan iteration record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the total number of recorded iterations.
func (l *Ledger) Count() (int, error) {
	var count int
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM iterations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count iteration records: %w", err)
	}
	return count, nil
}

// Close releases the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
