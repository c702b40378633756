// Package journal keeps an append-only sqlite record of tool calls.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Entry struct {
	ID        string                 `json:"id"`
	Tool      string                 `json:"tool"`
	Arguments map[string]interface{} `json:"arguments"`
	IsError   bool                   `json:"is_error"`
	Text      string                 `json:"text"`
	Duration  time.Duration          `json:"duration"`
	CreatedAt time.Time              `json:"created_at"`
}

type Journal struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	j := &Journal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init journal schema: %w", err)
	}

	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tool_calls (
		id TEXT PRIMARY KEY,
		tool TEXT NOT NULL,
		arguments TEXT NOT NULL,
		is_error INTEGER NOT NULL DEFAULT 0,
		text TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tool_calls_tool ON tool_calls(tool);
	CREATE INDEX IF NOT EXISTS idx_tool_calls_created ON tool_calls(created_at);
	`

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := j.db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// Record stores e, filling in ID and CreatedAt when unset.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Arguments == nil {
		e.Arguments = map[string]interface{}{}
	}

	args, err := json.Marshal(e.Arguments)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode arguments: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	_, err = j.db.ExecContext(ctx,
		"INSERT INTO tool_calls (id, tool, arguments, is_error, text, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.Tool, string(args), e.IsError, e.Text, e.Duration.Milliseconds(), e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Entry{}, err
	}

	return e, nil
}

// Recent returns up to limit entries, newest first. An empty tool matches
// every tool.
func (j *Journal) Recent(ctx context.Context, tool string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT id, tool, arguments, is_error, text, duration_ms, created_at FROM tool_calls"
	args := []interface{}{}
	if tool != "" {
		query += " WHERE tool = ?"
		args = append(args, tool)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			argsJSON   string
			durationMS int64
			createdMS  int64
		)
		if err := rows.Scan(&e.ID, &e.Tool, &argsJSON, &e.IsError, &e.Text, &durationMS, &createdMS); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(argsJSON), &e.Arguments); err != nil {
			e.Arguments = map[string]interface{}{}
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdMS).UTC()
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (j *Journal) Count(ctx context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var n int
	err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tool_calls").Scan(&n)
	return n, err
}

// Prune deletes entries older than maxAge and reports how many went.
func (j *Journal) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()

	j.mu.Lock()
	defer j.mu.Unlock()

	result, err := j.db.ExecContext(ctx, "DELETE FROM tool_calls WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
