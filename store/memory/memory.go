// Package memory provides an in-process EntryStore backed by a map.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/memflow/memflow/memory"
	"github.com/memflow/memflow/store"
)

// EntryStore keeps entries in memory. It is safe for concurrent use and
// loses its contents when the process exits.
type EntryStore struct {
	mu      sync.RWMutex
	entries map[string]memory.MemoryEntry
}

// NewEntryStore creates an empty in-memory store.
func NewEntryStore() *EntryStore {
	return &EntryStore{entries: make(map[string]memory.MemoryEntry)}
}

// Add inserts or replaces an entry by ID.
func (s *EntryStore) Add(ctx context.Context, entry memory.MemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	return nil
}

// Get retrieves an entry by ID.
func (s *EntryStore) Get(ctx context.Context, id string) (memory.MemoryEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	return entry, ok, nil
}

// Search returns up to topK non-expired entries whose content contains the
// query, case-insensitively, most relevant first. An empty query matches
// everything.
func (s *EntryStore) Search(ctx context.Context, query string, topK int) ([]memory.MemoryEntry, error) {
	return s.SearchFiltered(ctx, query, topK, store.Filter{})
}

// SearchFiltered is Search restricted to entries matching the filter.
func (s *EntryStore) SearchFiltered(ctx context.Context, query string, topK int, filter store.Filter) ([]memory.MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var matched []memory.MemoryEntry
	for _, entry := range s.entries {
		if entry.IsExpired() || !filter.Matches(entry) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(entry.Content), needle) {
			continue
		}
		matched = append(matched, entry)
	}

	sortByRelevance(matched)
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
	sortByCreated(out)
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
	sortByCreated(out)
	return out, nil
}

// Delete removes an entry by ID, reporting whether it existed.
func (s *EntryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

// DeleteByUser removes every entry owned by the given user and returns the
// number removed.
func (s *EntryStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.entries {
		if entry.UserID == userID {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Clear removes all entries.
func (s *EntryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memory.MemoryEntry)
	return nil
}

// Len returns the number of stored entries including expired ones.
func (s *EntryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func sortByRelevance(entries []memory.MemoryEntry) {
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].RelevanceScore > entries[b].RelevanceScore
	})
}

func sortByCreated(entries []memory.MemoryEntry) {
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].CreatedAt.After(entries[b].CreatedAt)
	})
}

var _ memory.EntryStore = (*EntryStore)(nil)
