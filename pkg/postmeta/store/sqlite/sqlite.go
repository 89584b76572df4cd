package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/postmeta/pkg/postmeta/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite checkpoint database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers from parallel extract workers;
	// connection-scoped pragmas below then apply to every statement.
	db.SetMaxOpenConns(1)

	// Enable WAL mode so readers don't block the extract workers
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source TEXT,
	posts INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT
);

CREATE TABLE IF NOT EXISTS extractions (
	key TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	post_index INTEGER NOT NULL,
	line_count INTEGER NOT NULL,
	language TEXT NOT NULL,
	tags TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extractions_run ON extractions(run_id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// GetExtraction loads a checkpoint by key
func (s *sqliteStore) GetExtraction(ctx context.Context, key string) (store.Extraction, bool, error) {
	const q = `
SELECT key, run_id, post_index, line_count, language, tags, created_at
FROM extractions WHERE key = ?`

	var (
		e         store.Extraction
		tagsJSON  string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, q, key).Scan(
		&e.Key, &e.RunID, &e.Index, &e.LineCount, &e.Language, &tagsJSON, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Extraction{}, false, nil
	}
	if err != nil {
		return store.Extraction{}, false, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
		return store.Extraction{}, false, fmt.Errorf("decode tags for %s: %w", key, err)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return e, true, nil
}

// PutExtraction inserts or replaces a checkpoint
func (s *sqliteStore) PutExtraction(ctx context.Context, e store.Extraction) error {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	const stmt = `
INSERT INTO extractions (key, run_id, post_index, line_count, language, tags, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	run_id=excluded.run_id,
	post_index=excluded.post_index,
	line_count=excluded.line_count,
	language=excluded.language,
	tags=excluded.tags,
	created_at=excluded.created_at`

	_, err = s.db.ExecContext(ctx, stmt,
		e.Key, e.RunID, e.Index, e.LineCount, e.Language, string(tagsJSON),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// StartRun records the beginning of a run
func (s *sqliteStore) StartRun(ctx context.Context, r store.Run) error {
	if r.Status == "" {
		r.Status = store.RunRunning
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, posts, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Source, r.Posts, r.Status, r.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// FinishRun marks a run completed or failed
func (s *sqliteStore) FinishRun(ctx context.Context, id, status string, finishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, finishedAt.UTC().Format(time.RFC3339Nano), id,
	)
	return err
}

// GetRun loads a run by ID
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	var (
		r          store.Run
		source     sql.NullString
		startedAt  string
		finishedAt sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, posts, status, started_at, finished_at FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &source, &r.Posts, &r.Status, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, false, nil
	}
	if err != nil {
		return store.Run{}, false, err
	}

	r.Source = source.String
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if finishedAt.Valid {
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedAt.String)
	}
	return r, true, nil
}
