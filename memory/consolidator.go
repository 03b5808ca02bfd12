package memory

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Operation is the action a consolidator prescribes for a new entry.
type Operation string

const (
	OpAdd    Operation = "add"
	OpUpdate Operation = "update"
	// OpDelete is reserved for callers; the consolidator never produces it.
	OpDelete Operation = "delete"
	OpNone   Operation = "none"
)

// EmbedFunc turns text into an embedding vector. It is supplied by the
// caller; the library never calls an embedding model itself. The function
// may be slow -- callers needing bounded latency impose timeouts through
// the context.
type EmbedFunc func(ctx context.Context, text string) ([]float64, error)

// ConsolidationResult pairs an operation with the entry it applies to.
// Entry is nil for OpNone.
type ConsolidationResult struct {
	Op    Operation
	Entry *MemoryEntry
}

// ConsolidatorConfig configures a SimilarityConsolidator.
type ConsolidatorConfig struct {
	// Embed is the embedding function. Required.
	Embed EmbedFunc

	// SimilarityThreshold is the cosine similarity at or above which a
	// new entry merges into an existing one. Must be in [0, 1].
	// Defaults to 0.85.
	SimilarityThreshold float64

	// MaxCacheSize bounds the embedding cache. When the cache would grow
	// beyond this size it is cleared wholesale. Defaults to 1000.
	MaxCacheSize int

	// Callbacks observe each consolidation decision.
	Callbacks []Callback
}

// SimilarityConsolidator decides whether a new persistent entry is an
// exact duplicate (content hash), a near-duplicate to merge (embedding
// cosine similarity), or genuinely new.
type SimilarityConsolidator struct {
	embed     EmbedFunc
	threshold float64
	maxCache  int
	callbacks []Callback

	cache map[string][]float64
}

// NewSimilarityConsolidator creates a consolidator. A missing embedding
// function or an out-of-range threshold is a configuration error.
func NewSimilarityConsolidator(cfg *ConsolidatorConfig) (*SimilarityConsolidator, error) {
	if cfg == nil || cfg.Embed == nil {
		return nil, fmt.Errorf("consolidator requires an embedding function")
	}
	threshold := cfg.SimilarityThreshold
	if threshold == 0 {
		threshold = 0.85
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("similarity threshold must be in [0, 1], got %v", threshold)
	}
	maxCache := cfg.MaxCacheSize
	if maxCache <= 0 {
		maxCache = 1000
	}
	return &SimilarityConsolidator{
		embed:     cfg.Embed,
		threshold: threshold,
		maxCache:  maxCache,
		callbacks: cfg.Callbacks,
		cache:     make(map[string][]float64),
	}, nil
}

// Consolidate determines how each new entry relates to the existing store
// contents. For every new entry it emits exactly one result:
//
//   - OpNone: content hash matches an existing entry, nothing to do.
//   - OpUpdate: cosine similarity to some existing entry meets the
//     threshold; Entry is the merge of the two.
//   - OpAdd: the entry is genuinely new and carried through unchanged.
//
// When several existing entries tie at the maximum similarity, the first
// in the supplied order wins. This is a deliberate, deterministic rule --
// callers relying on a different resolution must reorder their input.
func (c *SimilarityConsolidator) Consolidate(ctx context.Context, newEntries, existing []MemoryEntry) ([]ConsolidationResult, error) {
	existingHashes := make(map[string]bool, len(existing))
	for _, e := range existing {
		existingHashes[e.ContentHash] = true
	}

	results := make([]ConsolidationResult, 0, len(newEntries))
	for i := range newEntries {
		newEntry := newEntries[i]

		if existingHashes[newEntry.ContentHash] {
			results = append(results, ConsolidationResult{Op: OpNone})
			fireCallbacks(c.callbacks, "OnConsolidation", func(cb Callback) {
				cb.OnConsolidation(OpNone, &newEntry, nil)
			})
			continue
		}

		newVec, err := c.embed(ctx, newEntry.Content)
		if err != nil {
			return nil, fmt.Errorf("embed new entry %s: %w", newEntry.ID, err)
		}

		bestSim := 0.0
		bestIdx := -1
		for j := range existing {
			vec, err := c.cachedEmbedding(ctx, existing[j])
			if err != nil {
				return nil, fmt.Errorf("embed existing entry %s: %w", existing[j].ID, err)
			}
			// Strict > keeps the first entry on ties.
			if sim := CosineSimilarity(newVec, vec); sim > bestSim {
				bestSim = sim
				bestIdx = j
			}
		}

		if bestIdx >= 0 && bestSim >= c.threshold {
			merged := mergeEntries(newEntry, existing[bestIdx])
			results = append(results, ConsolidationResult{Op: OpUpdate, Entry: &merged})
			matched := existing[bestIdx]
			fireCallbacks(c.callbacks, "OnConsolidation", func(cb Callback) {
				cb.OnConsolidation(OpUpdate, &newEntry, &matched)
			})
			continue
		}

		results = append(results, ConsolidationResult{Op: OpAdd, Entry: &newEntry})
		fireCallbacks(c.callbacks, "OnConsolidation", func(cb Callback) {
			cb.OnConsolidation(OpAdd, &newEntry, nil)
		})
	}
	return results, nil
}

// cachedEmbedding returns the embedding for an existing entry, computing
// and caching it on first use. The cache is cleared wholesale when it
// would exceed the configured bound.
func (c *SimilarityConsolidator) cachedEmbedding(ctx context.Context, entry MemoryEntry) ([]float64, error) {
	if vec, ok := c.cache[entry.ID]; ok {
		return vec, nil
	}
	vec, err := c.embed(ctx, entry.Content)
	if err != nil {
		return nil, err
	}
	if len(c.cache) >= c.maxCache {
		c.cache = make(map[string][]float64)
	}
	c.cache[entry.ID] = vec
	return vec, nil
}

// mergeEntries folds a new entry into an existing one: the longer content
// wins (new on ties), tag/link/source-turn sets union preserving order,
// metadata merges with the new entry overriding, the access count bumps,
// the relevance score takes the maximum, and the content hash is
// recomputed from the kept content. The merge never mutates either input.
func mergeEntries(newEntry, existing MemoryEntry) MemoryEntry {
	merged := existing

	content := existing.Content
	if len(newEntry.Content) >= len(existing.Content) {
		content = newEntry.Content
	}
	merged.Content = content
	merged.ContentHash = HashContent(content)

	merged.Tags = unionStrings(existing.Tags, newEntry.Tags)
	merged.Links = unionStrings(existing.Links, newEntry.Links)
	merged.SourceTurns = unionStrings(existing.SourceTurns, newEntry.SourceTurns)

	metadata := make(map[string]any, len(existing.Metadata)+len(newEntry.Metadata))
	for k, v := range existing.Metadata {
		metadata[k] = v
	}
	for k, v := range newEntry.Metadata {
		metadata[k] = v
	}
	merged.Metadata = metadata

	merged.AccessCount = existing.AccessCount + 1
	merged.UpdatedAt = time.Now().UTC()
	merged.RelevanceScore = math.Max(existing.RelevanceScore, newEntry.RelevanceScore)
	return merged
}

// unionStrings concatenates two slices preserving first-seen order and
// dropping duplicates.
func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// CosineSimilarity computes the cosine similarity of two vectors. Vectors
// of different lengths or zero norm score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
