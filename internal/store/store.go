// Package store persists completed analyses in a SQLite journal so past
// verdicts can be listed and compared without re-querying the backend.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"whence/internal/logging"
)

// Entry is one journaled analysis.
type Entry struct {
	ID          string    `json:"id"` // request uuid
	Fingerprint string    `json:"fingerprint"`
	FilePath    string    `json:"filePath"`
	StartLine   int       `json:"startLine"`
	EndLine     int       `json:"endLine"`
	Backend     string    `json:"backend"`
	Intent      string    `json:"intent"`
	Analysis    string    `json:"analysis"`
	Risk        string    `json:"risk"`
	Verdict     string    `json:"verdict"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store wraps the journal database.
type Store struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// Open opens or creates the journal at dbPath, creating parent directories
// as needed.
func Open(dbPath string, logger *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{conn: conn, logger: logger, dbPath: dbPath}
	if err := s.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return s, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			file_path TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			backend TEXT NOT NULL,
			intent TEXT NOT NULL,
			analysis TEXT NOT NULL,
			risk TEXT NOT NULL,
			verdict TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_analyses_fingerprint ON analyses(fingerprint);
		CREATE INDEX IF NOT EXISTS idx_analyses_file ON analyses(file_path);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Record journals one completed analysis.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO analyses
			(id, fingerprint, file_path, start_line, end_line, backend,
			 intent, analysis, risk, verdict, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Fingerprint, e.FilePath, e.StartLine, e.EndLine, e.Backend,
		e.Intent, e.Analysis, e.Risk, e.Verdict, e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to journal analysis: %w", err)
	}

	s.logger.Debug("Analysis journaled", map[string]interface{}{
		"id":   e.ID,
		"file": e.FilePath,
	})
	return nil
}

// Recent returns up to limit entries, newest first. A filePath filter of ""
// matches everything.
func (s *Store) Recent(ctx context.Context, filePath string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, fingerprint, file_path, start_line, end_line, backend,
		       intent, analysis, risk, verdict, created_at
		FROM analyses`
	args := []interface{}{}
	if filePath != "" {
		query += " WHERE file_path = ?"
		args = append(args, filePath)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Fingerprint, &e.FilePath, &e.StartLine,
			&e.EndLine, &e.Backend, &e.Intent, &e.Analysis, &e.Risk,
			&e.Verdict, &created); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
