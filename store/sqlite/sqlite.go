// Package sqlite provides an EntryStore backed by a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/memflow/memflow/memory"
	"github.com/memflow/memflow/store"
)

// EntryStore persists entries in a SQLite table. The full entry is stored
// as a JSON document alongside indexed columns for lookup and filtering.
type EntryStore struct {
	db        *sql.DB
	tableName string
}

// Options configures the SQLite connection.
type Options struct {
	// Path is the database file path; ":memory:" gives a transient store.
	Path string

	// TableName defaults to "memory_entries".
	TableName string
}

// NewEntryStore opens the database and creates the schema if needed.
func NewEntryStore(opts Options) (*EntryStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "memory_entries"
	}

	s := &EntryStore{db: db, tableName: tableName}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the entries table and its indexes if they don't exist.
func (s *EntryStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			memory_type TEXT NOT NULL,
			user_id TEXT,
			session_id TEXT,
			relevance_score REAL NOT NULL,
			expires_at DATETIME,
			data TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_user_id ON %s (user_id);
		CREATE INDEX IF NOT EXISTS idx_%s_memory_type ON %s (memory_type);
	`, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *EntryStore) Close() error {
	return s.db.Close()
}

// Add inserts or replaces an entry by ID.
func (s *EntryStore) Add(ctx context.Context, entry memory.MemoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	var expiresAt any
	if !entry.ExpiresAt.IsZero() {
		expiresAt = entry.ExpiresAt.UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, memory_type, user_id, session_id, relevance_score, expires_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			memory_type = excluded.memory_type,
			user_id = excluded.user_id,
			session_id = excluded.session_id,
			relevance_score = excluded.relevance_score,
			expires_at = excluded.expires_at,
			data = excluded.data
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Content,
		string(entry.Type),
		entry.UserID,
		entry.SessionID,
		entry.RelevanceScore,
		expiresAt,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

// Get retrieves an entry by ID.
func (s *EntryStore) Get(ctx context.Context, id string) (memory.MemoryEntry, bool, error) {
	query := fmt.Sprintf("SELECT data FROM %s WHERE id = ?", s.tableName)

	var data string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return memory.MemoryEntry{}, false, nil
		}
		return memory.MemoryEntry{}, false, fmt.Errorf("failed to load entry: %w", err)
	}

	var entry memory.MemoryEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return memory.MemoryEntry{}, false, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return entry, true, nil
}

// Search returns up to topK non-expired entries whose content contains the
// query, case-insensitively, most relevant first.
func (s *EntryStore) Search(ctx context.Context, query string, topK int) ([]memory.MemoryEntry, error) {
	sqlQuery := fmt.Sprintf(`
		SELECT data FROM %s
		WHERE content LIKE ? COLLATE NOCASE
		  AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY relevance_score DESC
	`, s.tableName)

	args := []any{"%" + query + "%", time.Now().UTC()}
	if topK > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, topK)
	}

	return s.queryEntries(ctx, sqlQuery, args...)
}

// ListAll returns all non-expired entries, newest first.
func (s *EntryStore) ListAll(ctx context.Context) ([]memory.MemoryEntry, error) {
	return s.ListFiltered(ctx, store.Filter{})
}

// ListFiltered returns non-expired entries matching the filter, newest
// first. Tag filtering happens in-process since tags live inside the JSON
// document.
func (s *EntryStore) ListFiltered(ctx context.Context, filter store.Filter) ([]memory.MemoryEntry, error) {
	query := fmt.Sprintf(`
		SELECT data FROM %s
		WHERE (expires_at IS NULL OR expires_at > ?)
	`, s.tableName)
	args := []any{time.Now().UTC()}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	query += " ORDER BY json_extract(data, '$.created_at') DESC"

	entries, err := s.queryEntries(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	if len(filter.Types) == 0 && len(filter.Tags) == 0 {
		return entries, nil
	}
	var out []memory.MemoryEntry
	for _, entry := range entries {
		if filter.Matches(entry) {
			out = append(out, entry)
		}
	}
	return out, nil
}

// ListAllUnfiltered returns every entry including expired ones.
func (s *EntryStore) ListAllUnfiltered(ctx context.Context) ([]memory.MemoryEntry, error) {
	query := fmt.Sprintf(`
		SELECT data FROM %s
		ORDER BY json_extract(data, '$.created_at') DESC
	`, s.tableName)
	return s.queryEntries(ctx, query)
}

// Delete removes an entry by ID, reporting whether it existed.
func (s *EntryStore) Delete(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check delete result: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all entries.
func (s *EntryStore) Clear(ctx context.Context) error {
	query := fmt.Sprintf("DELETE FROM %s", s.tableName)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}

func (s *EntryStore) queryEntries(ctx context.Context, query string, args ...any) ([]memory.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []memory.MemoryEntry
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		var entry memory.MemoryEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}
	return entries, nil
}

var _ memory.EntryStore = (*EntryStore)(nil)
