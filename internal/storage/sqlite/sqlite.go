package sqlite

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

	"github.com/spigell/resume-intake/internal/candidate"
	"github.com/spigell/resume-intake/internal/storage"

	_ "modernc.org/sqlite"
)

const memoryDSN = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS candidates (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	score INTEGER NOT NULL,
	status TEXT NOT NULL,
	approved INTEGER NOT NULL DEFAULT 0,
	uploaded_at TEXT NOT NULL,
	record TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_candidates_score ON candidates(score DESC);`

// Store keeps candidates in a local SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating when needed) the database at path and ensures the
// schema exists. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	if path != memoryDSN && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer; an in-memory database also exists only
	// within one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Write(ctx context.Context, key string, c candidate.Candidate) error {
	c.ID = key
	record, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal candidate: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO candidates (id, name, email, score, status, approved, uploaded_at, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			score = excluded.score,
			status = excluded.status,
			approved = excluded.approved,
			uploaded_at = excluded.uploaded_at,
			record = excluded.record
	`, key, c.Name, c.Email, c.Score, c.Status, c.Approved, c.UploadedAt.UTC().Format(time.RFC3339Nano), string(record))
	if err != nil {
		return fmt.Errorf("upsert candidate: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (candidate.Candidate, error) {
	return get(ctx, s.db, id)
}

// List returns candidates by score descending, oldest first within a score.
func (s *Store) List(ctx context.Context) ([]candidate.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM candidates ORDER BY score DESC, uploaded_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []candidate.Candidate
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c, err := decode(record)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// SetApproved updates only the approval flag of a stored candidate.
func (s *Store) SetApproved(ctx context.Context, id string, approved bool) (candidate.Candidate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return candidate.Candidate{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	c, err := get(ctx, tx, id)
	if err != nil {
		return candidate.Candidate{}, err
	}
	c.Approved = approved

	record, err := json.Marshal(c)
	if err != nil {
		return candidate.Candidate{}, fmt.Errorf("marshal candidate: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE candidates SET approved = ?, record = ? WHERE id = ?`, approved, string(record), id); err != nil {
		return candidate.Candidate{}, fmt.Errorf("update approval: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return candidate.Candidate{}, fmt.Errorf("commit approval: %w", err)
	}
	return c, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q queryer, id string) (candidate.Candidate, error) {
	var record string
	err := q.QueryRowContext(ctx, `SELECT record FROM candidates WHERE id = ?`, id).Scan(&record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return candidate.Candidate{}, fmt.Errorf("%s: %w", id, storage.ErrNotFound)
		}
		return candidate.Candidate{}, fmt.Errorf("select candidate: %w", err)
	}
	return decode(record)
}

func decode(record string) (candidate.Candidate, error) {
	var c candidate.Candidate
	if err := json.Unmarshal([]byte(record), &c); err != nil {
		return candidate.Candidate{}, fmt.Errorf("decode candidate: %w", err)
	}
	return c, nil
}
