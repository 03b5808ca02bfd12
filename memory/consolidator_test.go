package memory

import (
	"context"
	"testing"
)

// fixtureEmbed maps known contents to fixed vectors and counts calls.
func fixtureEmbed(vectors map[string][]float64, calls *int) EmbedFunc {
	return func(ctx context.Context, text string) ([]float64, error) {
		if calls != nil {
			*calls++
		}
		if vec, ok := vectors[text]; ok {
			return vec, nil
		}
		return []float64{0, 0, 1}, nil
	}
}

func TestConsolidatorConfigErrors(t *testing.T) {
	if _, err := NewSimilarityConsolidator(nil); err == nil {
		t.Error("Expected error for nil config")
	}
	if _, err := NewSimilarityConsolidator(&ConsolidatorConfig{}); err == nil {
		t.Error("Expected error for missing embed function")
	}
	if _, err := NewSimilarityConsolidator(&ConsolidatorConfig{
		Embed:               fixtureEmbed(nil, nil),
		SimilarityThreshold: 1.5,
	}); err == nil {
		t.Error("Expected error for out-of-range threshold")
	}
}

func TestConsolidatorExactDuplicate(t *testing.T) {
	ctx := context.Background()
	embedCalls := 0
	c, err := NewSimilarityConsolidator(&ConsolidatorConfig{
		Embed: fixtureEmbed(nil, &embedCalls),
	})
	if err != nil {
		t.Fatalf("Failed to create consolidator: %v", err)
	}

	existing := NewEntry("the user prefers dark mode", TypeSemantic)
	incoming := NewEntry("the user prefers dark mode", TypeSemantic)

	results, err := c.Consolidate(ctx, []MemoryEntry{incoming}, []MemoryEntry{existing})
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if len(results) != 1 || results[0].Op != OpNone {
		t.Errorf("Expected OpNone for an exact duplicate, got %+v", results)
	}
	if results[0].Entry != nil {
		t.Error("OpNone should carry no entry")
	}
	// Hash matching short-circuits before any embedding.
	if embedCalls != 0 {
		t.Errorf("Expected no embed calls for an exact duplicate, got %d", embedCalls)
	}
}

func TestConsolidatorMergesSimilarEntries(t *testing.T) {
	ctx := context.Background()
	vectors := map[string][]float64{
		"dark mode on":           {1, 0, 0},
		"the user wants dark mode": {0.99, 0.1, 0},
	}
	c, err := NewSimilarityConsolidator(&ConsolidatorConfig{
		Embed: fixtureEmbed(vectors, nil),
	})
	if err != nil {
		t.Fatalf("Failed to create consolidator: %v", err)
	}

	existing := NewEntry("dark mode on", TypeSemantic)
	existing.Tags = []string{"preference"}
	existing.AccessCount = 2
	existing.RelevanceScore = 0.4

	incoming := NewEntry("the user wants dark mode", TypeSemantic)
	incoming.Tags = []string{"ui"}
	incoming.RelevanceScore = 0.9

	results, err := c.Consolidate(ctx, []MemoryEntry{incoming}, []MemoryEntry{existing})
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if len(results) != 1 || results[0].Op != OpUpdate {
		t.Fatalf("Expected OpUpdate, got %+v", results)
	}

	merged := results[0].Entry
	if merged.ID != existing.ID {
		t.Errorf("Merge should keep the existing entry's ID")
	}
	if merged.Content != "the user wants dark mode" {
		t.Errorf("Longer content should win, got %q", merged.Content)
	}
	if merged.ContentHash != HashContent(merged.Content) {
		t.Error("Content hash should be recomputed from the kept content")
	}
	if len(merged.Tags) != 2 || merged.Tags[0] != "preference" || merged.Tags[1] != "ui" {
		t.Errorf("Expected tag union preserving order, got %v", merged.Tags)
	}
	if merged.AccessCount != 3 {
		t.Errorf("Expected access count bump to 3, got %d", merged.AccessCount)
	}
	if merged.RelevanceScore != 0.9 {
		t.Errorf("Expected max relevance, got %v", merged.RelevanceScore)
	}
}

func TestConsolidatorAddsNovelEntries(t *testing.T) {
	ctx := context.Background()
	vectors := map[string][]float64{
		"likes coffee": {1, 0, 0},
		"owns a cat":   {0, 1, 0},
	}
	c, _ := NewSimilarityConsolidator(&ConsolidatorConfig{
		Embed: fixtureEmbed(vectors, nil),
	})

	existing := NewEntry("likes coffee", TypeSemantic)
	incoming := NewEntry("owns a cat", TypeSemantic)

	results, err := c.Consolidate(ctx, []MemoryEntry{incoming}, []MemoryEntry{existing})
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if len(results) != 1 || results[0].Op != OpAdd {
		t.Fatalf("Expected OpAdd for an orthogonal entry, got %+v", results)
	}
	if results[0].Entry.ID != incoming.ID {
		t.Error("OpAdd should carry the new entry unchanged")
	}
}

func TestConsolidatorTieBreaksOnFirstMatch(t *testing.T) {
	ctx := context.Background()
	vectors := map[string][]float64{
		"first":    {1, 0, 0},
		"second":   {1, 0, 0},
		"incoming": {1, 0, 0},
	}
	c, _ := NewSimilarityConsolidator(&ConsolidatorConfig{
		Embed: fixtureEmbed(vectors, nil),
	})

	first := NewEntry("first", TypeSemantic)
	second := NewEntry("second", TypeSemantic)
	incoming := NewEntry("incoming", TypeSemantic)

	results, err := c.Consolidate(ctx, []MemoryEntry{incoming}, []MemoryEntry{first, second})
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if results[0].Op != OpUpdate {
		t.Fatalf("Expected OpUpdate, got %v", results[0].Op)
	}
	if results[0].Entry.ID != first.ID {
		t.Errorf("Tie should resolve to the first existing entry, got ID %s", results[0].Entry.ID)
	}
}

func TestConsolidatorCachesExistingEmbeddings(t *testing.T) {
	ctx := context.Background()
	vectors := map[string][]float64{
		"existing fact": {1, 0, 0},
		"new fact one":  {0, 1, 0},
		"new fact two":  {0, 0, 1},
	}
	embedCalls := 0
	c, _ := NewSimilarityConsolidator(&ConsolidatorConfig{
		Embed: fixtureEmbed(vectors, &embedCalls),
	})

	existing := []MemoryEntry{NewEntry("existing fact", TypeSemantic)}

	if _, err := c.Consolidate(ctx, []MemoryEntry{NewEntry("new fact one", TypeSemantic)}, existing); err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	firstRun := embedCalls

	if _, err := c.Consolidate(ctx, []MemoryEntry{NewEntry("new fact two", TypeSemantic)}, existing); err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}

	// Second run embeds only the new entry; the existing one is cached.
	if embedCalls != firstRun+1 {
		t.Errorf("Expected 1 embed call on the second run, got %d", embedCalls-firstRun)
	}
}

func TestConsolidatorFiresCallbacks(t *testing.T) {
	ctx := context.Background()
	recorder := &recordingCallback{}
	vectors := map[string][]float64{
		"likes coffee": {1, 0, 0},
		"owns a cat":   {0, 1, 0},
	}
	c, _ := NewSimilarityConsolidator(&ConsolidatorConfig{
		Embed:     fixtureEmbed(vectors, nil),
		Callbacks: []Callback{recorder},
	})

	existing := NewEntry("likes coffee", TypeSemantic)
	duplicate := NewEntry("likes coffee", TypeSemantic)
	novel := NewEntry("owns a cat", TypeSemantic)

	if _, err := c.Consolidate(ctx, []MemoryEntry{duplicate, novel}, []MemoryEntry{existing}); err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}

	if len(recorder.consolidations) != 2 {
		t.Fatalf("Expected 2 consolidation callbacks, got %d", len(recorder.consolidations))
	}
	if recorder.consolidations[0] != OpNone || recorder.consolidations[1] != OpAdd {
		t.Errorf("Expected [none add], got %v", recorder.consolidations)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float64{1, 0}, []float64{1, 0}); got != 1.0 {
		t.Errorf("Identical vectors should score 1.0, got %v", got)
	}
	if got := CosineSimilarity([]float64{1, 0}, []float64{0, 1}); got != 0.0 {
		t.Errorf("Orthogonal vectors should score 0, got %v", got)
	}
	if got := CosineSimilarity([]float64{1, 0}, []float64{1, 0, 0}); got != 0.0 {
		t.Errorf("Mismatched lengths should score 0, got %v", got)
	}
	if got := CosineSimilarity([]float64{0, 0}, []float64{1, 0}); got != 0.0 {
		t.Errorf("Zero-norm vector should score 0, got %v", got)
	}
}
