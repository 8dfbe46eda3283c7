// Package sqlitememory implements external.MemoryStore over a local
// SQLite database, in the teacher's database/sql + modernc.org/sqlite
// pure-Go driver idiom (cmd/query-kb/main.go).
package sqlitememory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/auto-iflow/autoiflow/internal/external"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_memory (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	spec_id TEXT NOT NULL,
	subtask_id TEXT NOT NULL,
	summary TEXT NOT NULL,
	insights TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_memory_spec ON session_memory(spec_id);
`

// Store is a sql.DB-backed external.MemoryStore.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and ensures
// its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitememory: opening %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitememory: creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save implements external.MemoryStore.
func (s *Store) Save(ctx context.Context, snap external.SessionSnapshot) (bool, string, error) {
	insights, err := json.Marshal(snap.Insights)
	if err != nil {
		return false, "sqlite", fmt.Errorf("sqlitememory: encoding insights: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_memory (spec_id, subtask_id, summary, insights, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		snap.SpecID, snap.SubtaskID, snap.Summary, string(insights), snap.At.UTC().Format("2006-01-02T15:04:05Z07:00"),
	)
	if err != nil {
		return false, "sqlite", fmt.Errorf("sqlitememory: inserting snapshot: %w", err)
	}
	return true, "sqlite", nil
}

// QueryHints implements external.MemoryStore, returning past summaries
// whose text loosely matches task, most recent first.
func (s *Store) QueryHints(ctx context.Context, task string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT summary FROM session_memory ORDER BY id DESC LIMIT 50`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitememory: querying hints: %w", err)
	}
	defer rows.Close()

	needle := strings.ToLower(task)
	var hints []string
	for rows.Next() {
		var summary string
		if err := rows.Scan(&summary); err != nil {
			return nil, fmt.Errorf("sqlitememory: scanning hint: %w", err)
		}
		if needle == "" || strings.Contains(strings.ToLower(summary), needle) {
			hints = append(hints, summary)
		}
	}
	return hints, rows.Err()
}
