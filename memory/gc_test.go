package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeStore is a minimal in-memory EntryStore for tests.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]MemoryEntry
	order   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]MemoryEntry)}
}

func (s *fakeStore) Add(ctx context.Context, entry MemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; !ok {
		s.order = append(s.order, entry.ID)
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (MemoryEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	return entry, ok, nil
}

func (s *fakeStore) Search(ctx context.Context, query string, topK int) ([]MemoryEntry, error) {
	all, _ := s.ListAll(ctx)
	var matched []MemoryEntry
	for _, entry := range all {
		if strings.Contains(strings.ToLower(entry.Content), strings.ToLower(query)) {
			matched = append(matched, entry)
		}
	}
	sort.SliceStable(matched, func(a, b int) bool {
		return matched[a].RelevanceScore > matched[b].RelevanceScore
	})
	if topK > 0 && len(matched) > topK {
		matched = matched[:topK]
	}
	return matched, nil
}

func (s *fakeStore) ListAll(ctx context.Context) ([]MemoryEntry, error) {
	all, _ := s.ListAllUnfiltered(ctx)
	var out []MemoryEntry
	for _, entry := range all {
		if !entry.IsExpired() {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *fakeStore) ListAllUnfiltered(ctx context.Context) ([]MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MemoryEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id])
	}
	return out, nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *fakeStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]MemoryEntry)
	s.order = nil
	return nil
}

var _ EntryStore = (*fakeStore)(nil)

func expiredEntry(content string) MemoryEntry {
	entry := NewEntry(content, TypeSemantic)
	entry.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	return entry
}

func staleEntry(content string, age time.Duration) MemoryEntry {
	entry := NewEntry(content, TypeSemantic)
	entry.LastAccessed = time.Now().UTC().Add(-age)
	return entry
}

func TestGarbageCollectorRequiresStore(t *testing.T) {
	if _, err := NewGarbageCollector(nil); err == nil {
		t.Error("Expected error for nil config")
	}
	if _, err := NewGarbageCollector(&GCConfig{}); err == nil {
		t.Error("Expected error for missing store")
	}
}

func TestGarbageCollectorTwoPhases(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	decay, _ := NewLinearDecay(time.Hour)

	fresh := NewEntry("fresh fact", TypeSemantic)
	store.Add(ctx, fresh)
	store.Add(ctx, expiredEntry("old news"))
	store.Add(ctx, staleEntry("forgotten fact", 100*time.Hour))

	gc, err := NewGarbageCollector(&GCConfig{Store: store, Decay: decay})
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}

	stats, err := gc.Collect(ctx, 0.2, false)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if stats.ExpiredPruned != 1 {
		t.Errorf("Expected 1 expired pruned, got %d", stats.ExpiredPruned)
	}
	if stats.DecayedPruned != 1 {
		t.Errorf("Expected 1 decayed pruned, got %d", stats.DecayedPruned)
	}
	if stats.TotalRemaining != 1 {
		t.Errorf("Expected 1 remaining, got %d", stats.TotalRemaining)
	}
	if stats.TotalPruned() != 2 {
		t.Errorf("Expected 2 total pruned, got %d", stats.TotalPruned())
	}

	if _, ok, _ := store.Get(ctx, fresh.ID); !ok {
		t.Error("Fresh entry should survive collection")
	}
}

func TestGarbageCollectorDryRun(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	decay, _ := NewLinearDecay(time.Hour)

	store.Add(ctx, expiredEntry("old news"))
	store.Add(ctx, staleEntry("forgotten fact", 100*time.Hour))

	gc, _ := NewGarbageCollector(&GCConfig{Store: store, Decay: decay})

	stats, err := gc.Collect(ctx, 0.2, true)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if !stats.DryRun {
		t.Error("Expected DryRun flag in stats")
	}
	if stats.TotalPruned() != 2 {
		t.Errorf("Dry run should still report what would be pruned, got %d", stats.TotalPruned())
	}
	if stats.TotalRemaining != 2 {
		t.Errorf("Dry run must not delete anything, got %d remaining", stats.TotalRemaining)
	}
	all, _ := store.ListAllUnfiltered(ctx)
	if len(all) != 2 {
		t.Errorf("Store should be untouched after dry run, got %d entries", len(all))
	}
}

func TestGarbageCollectorExpiredSkippedByDecayPhase(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	decay, _ := NewLinearDecay(time.Hour)

	// Expired and decayed at once: counted only by the expiry phase.
	entry := staleEntry("both", 100*time.Hour)
	entry.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	store.Add(ctx, entry)

	gc, _ := NewGarbageCollector(&GCConfig{Store: store, Decay: decay})
	stats, err := gc.Collect(ctx, 0.2, false)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if stats.ExpiredPruned != 1 || stats.DecayedPruned != 0 {
		t.Errorf("Expected expiry phase to claim the entry, got expired=%d decayed=%d",
			stats.ExpiredPruned, stats.DecayedPruned)
	}
}

func TestGarbageCollectorWithoutDecay(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.Add(ctx, expiredEntry("old news"))

	gc, _ := NewGarbageCollector(&GCConfig{Store: store})

	// Collect runs the expiry phase alone.
	stats, err := gc.Collect(ctx, 0.2, false)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if stats.ExpiredPruned != 1 || stats.DecayedPruned != 0 {
		t.Errorf("Expected expiry-only collection, got %+v", stats)
	}

	// The decay-only entry point fails explicitly.
	if _, err := gc.CollectDecayed(ctx, 0.2, false); !errors.Is(err, ErrNoDecay) {
		t.Errorf("Expected ErrNoDecay, got %v", err)
	}
}

func TestGarbageCollectorCallbacks(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	decay, _ := NewLinearDecay(time.Hour)
	recorder := &recordingCallback{}

	store.Add(ctx, expiredEntry("old news"))
	store.Add(ctx, staleEntry("forgotten fact", 100*time.Hour))

	gc, _ := NewGarbageCollector(&GCConfig{Store: store, Decay: decay, Callbacks: []Callback{recorder}})
	if _, err := gc.Collect(ctx, 0.2, false); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if len(recorder.expiryPruned) != 1 || len(recorder.expiryPruned[0]) != 1 {
		t.Errorf("Expected one expiry prune batch with one entry, got %v", recorder.expiryPruned)
	}
	if len(recorder.decayPruned) != 1 || len(recorder.decayPruned[0]) != 1 {
		t.Errorf("Expected one decay prune batch with one entry, got %v", recorder.decayPruned)
	}
}
