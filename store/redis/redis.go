// Package redis provides an EntryStore backed by Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/memflow/memflow/memory"
	"github.com/memflow/memflow/store"
)

// EntryStore keeps entries as JSON values under a key prefix, with a set
// of entry IDs as the index. Search and filtering load candidates and
// match in-process, so semantics stay identical to the other backends.
type EntryStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces all keys. Defaults to "memflow:".
	Prefix string

	// TTL expires entry keys at the storage layer. Default 0 (no
	// expiration). Entry-level ExpiresAt is still honored on reads.
	TTL time.Duration
}

// NewEntryStore creates a Redis-backed store.
func NewEntryStore(opts Options) *EntryStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "memflow:"
	}

	return &EntryStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

// NewEntryStoreWithClient wraps an existing client. Useful for tests and
// shared connection setups.
func NewEntryStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *EntryStore {
	if prefix == "" {
		prefix = "memflow:"
	}
	return &EntryStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *EntryStore) entryKey(id string) string {
	return fmt.Sprintf("%sentry:%s", s.prefix, id)
}

func (s *EntryStore) indexKey() string {
	return s.prefix + "entries"
}

// Close closes the underlying client.
func (s *EntryStore) Close() error {
	return s.client.Close()
}

// Add inserts or replaces an entry by ID.
func (s *EntryStore) Add(ctx context.Context, entry memory.MemoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.entryKey(entry.ID), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), entry.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save entry to redis: %w", err)
	}
	return nil
}

// Get retrieves an entry by ID.
func (s *EntryStore) Get(ctx context.Context, id string) (memory.MemoryEntry, bool, error) {
	data, err := s.client.Get(ctx, s.entryKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return memory.MemoryEntry{}, false, nil
		}
		return memory.MemoryEntry{}, false, fmt.Errorf("failed to load entry from redis: %w", err)
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
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	var matched []memory.MemoryEntry
	for _, entry := range all {
		if needle != "" && !strings.Contains(strings.ToLower(entry.Content), needle) {
			continue
		}
		matched = append(matched, entry)
	}
	sort.SliceStable(matched, func(a, b int) bool {
		return matched[a].RelevanceScore > matched[b].RelevanceScore
	})
	if topK > 0 && len(matched) > topK {
		matched = matched[:topK]
	}
	return matched, nil
}

// ListAll returns all non-expired entries, newest first.
func (s *EntryStore) ListAll(ctx context.Context) ([]memory.MemoryEntry, error) {
	return s.ListFiltered(ctx, store.Filter{})
}

// ListFiltered returns non-expired entries matching the filter, newest
// first.
func (s *EntryStore) ListFiltered(ctx context.Context, filter store.Filter) ([]memory.MemoryEntry, error) {
	all, err := s.ListAllUnfiltered(ctx)
	if err != nil {
		return nil, err
	}
	var out []memory.MemoryEntry
	for _, entry := range all {
		if entry.IsExpired() || !filter.Matches(entry) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// ListAllUnfiltered returns every entry including expired ones, newest
// first. Keys evicted by the Redis TTL drop out silently.
func (s *EntryStore) ListAllUnfiltered(ctx context.Context) ([]memory.MemoryEntry, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entry ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.entryKey(id))
	}

	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries: %w", err)
	}

	var entries []memory.MemoryEntry
	for _, result := range results {
		data, ok := result.(string)
		if !ok {
			continue
		}
		var entry memory.MemoryEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].CreatedAt.After(entries[b].CreatedAt)
	})
	return entries, nil
}

// Delete removes an entry by ID, reporting whether it existed.
func (s *EntryStore) Delete(ctx context.Context, id string) (bool, error) {
	pipe := s.client.Pipeline()
	delCmd := pipe.Del(ctx, s.entryKey(id))
	pipe.SRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	return delCmd.Val() > 0, nil
}

// Clear removes all entries and the index.
func (s *EntryStore) Clear(ctx context.Context) error {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to list entries for clearing: %w", err)
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.entryKey(id))
	}
	pipe.Del(ctx, s.indexKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}

var _ memory.EntryStore = (*EntryStore)(nil)
