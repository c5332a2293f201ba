// Package audit keeps a durable log of rejected claims. Rows carry the
// claim id, reason and source, never the statement text.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ppiankov/claimgate/internal/model"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS rejections (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id           TEXT NOT NULL,
	claim_id         TEXT NOT NULL,
	code             TEXT NOT NULL,
	reason           TEXT NOT NULL,
	source_url       TEXT,
	source_title     TEXT,
	entailment_score REAL NOT NULL,
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rejections_run ON rejections(run_id);
`

// Store writes rejection events to SQLite
type Store struct {
	db *sql.DB
}

// NewStore opens the database at path (":memory:" for tests) and migrates it
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Writers from concurrent batches serialize through one connection
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores one row per rejected verdict and returns the row count.
// Accepted verdicts are skipped.
func (s *Store) Record(ctx context.Context, runID string, verdicts []model.Verdict) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rejections (run_id, claim_id, code, reason, source_url, source_title, entailment_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	n := 0
	for _, v := range verdicts {
		if v.IsValid {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			runID,
			v.Claim.ID,
			string(v.Code),
			v.Reason,
			nullIfEmpty(v.Claim.SourceURL),
			nullIfEmpty(v.Claim.SourceTitle),
			v.EntailmentScore,
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert rejection %s: %w", v.Claim.ID, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// CountByCode summarizes rejections per code. An empty runID counts all runs.
func (s *Store) CountByCode(ctx context.Context, runID string) (map[model.ReasonCode]int, error) {
	query := `SELECT code, COUNT(*) FROM rejections`
	var args []interface{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` GROUP BY code`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.ReasonCode]int)
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[model.ReasonCode(code)] = n
	}
	return counts, rows.Err()
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
