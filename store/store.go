// Package store archives run summaries to a local sqlite database so
// downstream dashboards can query past runs without re-reading the JSON
// artifacts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id             TEXT PRIMARY KEY,
	source             TEXT NOT NULL,
	mode               TEXT NOT NULL,
	started_at         INTEGER NOT NULL,
	finished_at        INTEGER NOT NULL,
	frames_processed   INTEGER NOT NULL,
	unique_identities  INTEGER NOT NULL,
	frames_with_tracks INTEGER NOT NULL,
	avg_confidence     REAL NOT NULL,
	summary_json       TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
`

// RunRecord is one archived processing run.
type RunRecord struct {
	RunID            string          `json:"run_id"`
	Source           string          `json:"source"`
	Mode             string          `json:"mode"`
	StartedAt        int64           `json:"started_at"`
	FinishedAt       int64           `json:"finished_at"`
	FramesProcessed  int             `json:"frames_processed"`
	UniqueIdentities int             `json:"unique_identities"`
	FramesWithTracks int             `json:"frames_with_tracks"`
	AvgConfidence    float64         `json:"avg_confidence"`
	SummaryJSON      json.RawMessage `json:"summary_json,omitempty"`
}

// Store provides persistence for run records.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run archive at file.  Pass
// ":memory:" for an ephemeral archive.
func Open(file string) (*Store, error) {

	db, err := sql.Open("sqlite", file)

	if err != nil {
		return nil, fmt.Errorf("error opening run archive: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating run archive schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertRun persists a run record.  A missing RunID is generated and
// a missing FinishedAt is stamped with the current time.
func (s *Store) InsertRun(r *RunRecord) error {

	if r.RunID == "" {
		r.RunID = uuid.New().String()
	}

	if r.FinishedAt == 0 {
		r.FinishedAt = time.Now().UnixNano()
	}

	var summary interface{}

	if len(r.SummaryJSON) > 0 {
		summary = string(r.SummaryJSON)
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (
			run_id, source, mode, started_at, finished_at,
			frames_processed, unique_identities, frames_with_tracks,
			avg_confidence, summary_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Source, r.Mode, r.StartedAt, r.FinishedAt,
		r.FramesProcessed, r.UniqueIdentities, r.FramesWithTracks,
		r.AvgConfidence, summary,
	)

	if err != nil {
		return fmt.Errorf("error inserting run record: %w", err)
	}

	return nil
}

// ListRuns returns the most recent runs for a source, newest first.  An
// empty source lists runs across all sources.
func (s *Store) ListRuns(source string, limit int) ([]*RunRecord, error) {

	query := `
		SELECT run_id, source, mode, started_at, finished_at,
			frames_processed, unique_identities, frames_with_tracks,
			avg_confidence, COALESCE(summary_json, '')
		FROM runs`

	args := []interface{}{}

	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}

	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)

	if err != nil {
		return nil, fmt.Errorf("error listing runs: %w", err)
	}

	defer rows.Close()

	var records []*RunRecord

	for rows.Next() {

		r := &RunRecord{}
		var summary string

		err := rows.Scan(&r.RunID, &r.Source, &r.Mode, &r.StartedAt,
			&r.FinishedAt, &r.FramesProcessed, &r.UniqueIdentities,
			&r.FramesWithTracks, &r.AvgConfidence, &summary)

		if err != nil {
			return nil, fmt.Errorf("error scanning run record: %w", err)
		}

		if summary != "" {
			r.SummaryJSON = json.RawMessage(summary)
		}

		records = append(records, r)
	}

	return records, rows.Err()
}
