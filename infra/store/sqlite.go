package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/forecast/core/evaluation"
)

// SQLiteStore persists reports to a SQLite database. Each report is stored
// as JSON next to its indexed run metadata.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := []string{
		`CREATE TABLE IF NOT EXISTS evaluation_reports (
        run_id TEXT PRIMARY KEY,
        started INTEGER,
        finished INTEGER,
        checks INTEGER,
        failed INTEGER,
        report TEXT
    );`,
		`CREATE INDEX IF NOT EXISTS evaluation_reports_started ON evaluation_reports(started);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
			}
			return nil, err
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Save inserts the report, replacing an earlier report with the same run ID.
func (s *SQLiteStore) Save(ctx context.Context, r evaluation.Report) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO evaluation_reports (run_id, started, finished, checks, failed, report)
        VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Started.UnixNano(), r.Finished.UnixNano(), len(r.Results), len(r.Failed()), string(b))
	return err
}

// Query returns reports matching q, newest first.
func (s *SQLiteStore) Query(ctx context.Context, q evaluation.Query) ([]evaluation.Report, error) {
	var args []any
	query := `SELECT report FROM evaluation_reports WHERE 1=1`
	if q.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, q.RunID)
	}
	if !q.Since.IsZero() {
		query += ` AND started >= ?`
		args = append(args, q.Since.UnixNano())
	}
	query += ` ORDER BY started DESC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []evaluation.Report
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r evaluation.Report
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return q.Select(res)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
