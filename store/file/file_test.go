package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/memflow/memflow/memory"
)

func TestEntryStore_New(t *testing.T) {
	t.Parallel()

	t.Run("creates parent directory", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "nested", "memories.json")

		s, err := NewEntryStore(path)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if s == nil {
			t.Fatal("Store should not be nil")
		}
	})

	t.Run("starts empty for missing file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "memories.json")

		s, err := NewEntryStore(path)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		all, _ := s.ListAllUnfiltered(context.Background())
		if len(all) != 0 {
			t.Errorf("Expected empty store, got %d entries", len(all))
		}
	})

	t.Run("rejects corrupt file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "memories.json")
		if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}

		if _, err := NewEntryStore(path); err == nil {
			t.Error("Expected error for corrupt store file")
		}
	})
}

func TestEntryStore_PersistsAcrossReopens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memories.json")

	s, err := NewEntryStore(path)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	entry := memory.NewEntry("the user prefers dark mode", memory.TypeSemantic)
	entry.Tags = []string{"preference"}
	entry.Metadata = map[string]any{"confidence": 0.9}
	if err := s.Add(ctx, entry); err != nil {
		t.Fatalf("Failed to add: %v", err)
	}

	reopened, err := NewEntryStore(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}

	loaded, ok, err := reopened.Get(ctx, entry.ID)
	if err != nil || !ok {
		t.Fatalf("Entry should survive a reopen: ok=%v err=%v", ok, err)
	}
	if loaded.Content != entry.Content {
		t.Errorf("Content mismatch after reopen: got %q", loaded.Content)
	}
	if loaded.ContentHash != entry.ContentHash {
		t.Error("Content hash not preserved across reopen")
	}
	if len(loaded.Tags) != 1 || loaded.Tags[0] != "preference" {
		t.Errorf("Tags not preserved, got %v", loaded.Tags)
	}
}

func TestEntryStore_DeletePersists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memories.json")

	s, _ := NewEntryStore(path)
	entry := memory.NewEntry("to remove", memory.TypeSemantic)
	s.Add(ctx, entry)

	existed, err := s.Delete(ctx, entry.ID)
	if err != nil || !existed {
		t.Fatalf("Expected successful delete, got existed=%v err=%v", existed, err)
	}

	reopened, _ := NewEntryStore(path)
	if _, ok, _ := reopened.Get(ctx, entry.ID); ok {
		t.Error("Deleted entry should not survive a reopen")
	}
}

func TestEntryStore_SearchAndExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memories.json")

	s, _ := NewEntryStore(path)

	high := memory.NewEntry("likes strong coffee", memory.TypeSemantic)
	high.RelevanceScore = 0.9
	low := memory.NewEntry("drinks coffee daily", memory.TypeSemantic)
	low.RelevanceScore = 0.2
	expired := memory.NewEntry("used to hate coffee", memory.TypeSemantic)
	expired.ExpiresAt = time.Now().UTC().Add(-time.Hour)

	s.Add(ctx, high)
	s.Add(ctx, low)
	s.Add(ctx, expired)

	results, err := s.Search(ctx, "coffee", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 matches excluding expired, got %d", len(results))
	}
	if results[0].ID != high.ID {
		t.Error("Results should be ordered by relevance descending")
	}
}

func TestEntryStore_Clear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memories.json")

	s, _ := NewEntryStore(path)
	s.Add(ctx, memory.NewEntry("one", memory.TypeSemantic))
	s.Add(ctx, memory.NewEntry("two", memory.TypeSemantic))

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Failed to clear: %v", err)
	}

	reopened, _ := NewEntryStore(path)
	all, _ := reopened.ListAllUnfiltered(ctx)
	if len(all) != 0 {
		t.Errorf("Expected empty store after clear, got %d entries", len(all))
	}
}
