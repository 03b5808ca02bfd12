// Package file provides an EntryStore persisted as a single JSON file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/memflow/memflow/memory"
	"github.com/memflow/memflow/store"
)

// EntryStore persists entries to a JSON file, rewriting it atomically on
// every mutation. All entries are held in memory between writes, so it
// suits modest collections rather than large archives.
type EntryStore struct {
	mu      sync.RWMutex
	path    string
	entries map[string]memory.MemoryEntry
}

// NewEntryStore opens or creates the store at path. A missing file starts
// an empty store; missing parent directories are created.
func NewEntryStore(path string) (*EntryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &EntryStore{
		path:    path,
		entries: make(map[string]memory.MemoryEntry),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var entries []memory.MemoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}
	for _, entry := range entries {
		s.entries[entry.ID] = entry
	}
	return s, nil
}

// flushLocked writes all entries to disk via a temp file and rename, so a
// crash mid-write never leaves a truncated store. Caller holds the mutex.
func (s *EntryStore) flushLocked() error {
	entries := make([]memory.MemoryEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].CreatedAt.Before(entries[b].CreatedAt)
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// Add inserts or replaces an entry and persists the change.
func (s *EntryStore) Add(ctx context.Context, entry memory.MemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	return s.flushLocked()
}

// Get retrieves an entry by ID.
func (s *EntryStore) Get(ctx context.Context, id string) (memory.MemoryEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	return entry, ok, nil
}

// Search returns up to topK non-expired entries whose content contains the
// query, case-insensitively, most relevant first.
func (s *EntryStore) Search(ctx context.Context, query string, topK int) ([]memory.MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var matched []memory.MemoryEntry
	for _, entry := range s.entries {
		if entry.IsExpired() {
			continue
		}
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
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []memory.MemoryEntry
	for _, entry := range s.entries {
		if entry.IsExpired() || !filter.Matches(entry) {
			continue
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out, nil
}

// ListAllUnfiltered returns every entry including expired ones.
func (s *EntryStore) ListAllUnfiltered(ctx context.Context) ([]memory.MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]memory.MemoryEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out, nil
}

// Delete removes an entry by ID and persists the change.
func (s *EntryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)
	if err := s.flushLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes all entries and persists the empty store.
func (s *EntryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memory.MemoryEntry)
	return s.flushLocked()
}

var _ memory.EntryStore = (*EntryStore)(nil)
