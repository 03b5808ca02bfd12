// Package postgres provides an EntryStore backed by PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/memflow/memflow/memory"
	"github.com/memflow/memflow/store"
)

// DBPool is the connection pool surface the store needs. *pgxpool.Pool
// satisfies it; mocks satisfy it in tests.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// EntryStore persists entries in a Postgres table with a JSONB payload
// alongside indexed columns for lookup and filtering.
type EntryStore struct {
	pool      DBPool
	tableName string
}

// Options configures the Postgres connection.
type Options struct {
	ConnString string

	// TableName defaults to "memory_entries".
	TableName string
}

// NewEntryStore creates a pooled Postgres store. Call InitSchema before
// first use on a fresh database.
func NewEntryStore(ctx context.Context, opts Options) (*EntryStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "memory_entries"
	}
	return &EntryStore{pool: pool, tableName: tableName}, nil
}

// NewEntryStoreWithPool wraps an existing pool. Useful for testing with
// mocks and for sharing a pool across stores.
func NewEntryStoreWithPool(pool DBPool, tableName string) *EntryStore {
	if tableName == "" {
		tableName = "memory_entries"
	}
	return &EntryStore{pool: pool, tableName: tableName}
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
			relevance_score DOUBLE PRECISION NOT NULL,
			expires_at TIMESTAMPTZ,
			data JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_user_id ON %s (user_id);
		CREATE INDEX IF NOT EXISTS idx_%s_memory_type ON %s (memory_type);
	`, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *EntryStore) Close() {
	s.pool.Close()
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			memory_type = EXCLUDED.memory_type,
			user_id = EXCLUDED.user_id,
			session_id = EXCLUDED.session_id,
			relevance_score = EXCLUDED.relevance_score,
			expires_at = EXCLUDED.expires_at,
			data = EXCLUDED.data
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		entry.ID,
		entry.Content,
		string(entry.Type),
		entry.UserID,
		entry.SessionID,
		entry.RelevanceScore,
		expiresAt,
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

// Get retrieves an entry by ID.
func (s *EntryStore) Get(ctx context.Context, id string) (memory.MemoryEntry, bool, error) {
	query := fmt.Sprintf("SELECT data FROM %s WHERE id = $1", s.tableName)

	var data []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return memory.MemoryEntry{}, false, nil
		}
		return memory.MemoryEntry{}, false, fmt.Errorf("failed to load entry: %w", err)
	}

	var entry memory.MemoryEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return memory.MemoryEntry{}, false, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return entry, true, nil
}

// Search returns up to topK non-expired entries whose content contains the
// query, case-insensitively, most relevant first.
func (s *EntryStore) Search(ctx context.Context, query string, topK int) ([]memory.MemoryEntry, error) {
	sqlQuery := fmt.Sprintf(`
		SELECT data FROM %s
		WHERE content ILIKE $1
		  AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY relevance_score DESC
	`, s.tableName)

	args := []any{"%" + query + "%", time.Now().UTC()}
	if topK > 0 {
		sqlQuery += " LIMIT $3"
		args = append(args, topK)
	}

	return s.queryEntries(ctx, sqlQuery, args...)
}

// ListAll returns all non-expired entries, newest first.
func (s *EntryStore) ListAll(ctx context.Context) ([]memory.MemoryEntry, error) {
	return s.ListFiltered(ctx, store.Filter{})
}

// ListFiltered returns non-expired entries matching the filter, newest
// first. Tag filtering happens in-process since tags live inside the JSONB
// document.
func (s *EntryStore) ListFiltered(ctx context.Context, filter store.Filter) ([]memory.MemoryEntry, error) {
	query := fmt.Sprintf(`
		SELECT data FROM %s
		WHERE (expires_at IS NULL OR expires_at > $1)
	`, s.tableName)
	args := []any{time.Now().UTC()}

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		query += fmt.Sprintf(" AND session_id = $%d", len(args))
	}
	query += " ORDER BY data->>'created_at' DESC"

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
		ORDER BY data->>'created_at' DESC
	`, s.tableName)
	return s.queryEntries(ctx, query)
}

// Delete removes an entry by ID, reporting whether it existed.
func (s *EntryStore) Delete(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Clear removes all entries.
func (s *EntryStore) Clear(ctx context.Context) error {
	query := fmt.Sprintf("DELETE FROM %s", s.tableName)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}

func (s *EntryStore) queryEntries(ctx context.Context, query string, args ...any) ([]memory.MemoryEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []memory.MemoryEntry
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		var entry memory.MemoryEntry
		if err := json.Unmarshal(data, &entry); err != nil {
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
