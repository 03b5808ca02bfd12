package memory

import (
	"context"
	"fmt"
	"time"
)

// ExtractionResult is one fact produced by a user extraction function.
// Content is required; everything else has documented defaults.
type ExtractionResult struct {
	// Content is the fact text. Required.
	Content string

	// Tags label the resulting entry. Optional.
	Tags []string

	// Type classifies the entry. Empty means the extractor's default type.
	Type MemoryType

	// Metadata is carried onto the entry unchanged. Optional.
	Metadata map[string]any

	// RelevanceScore in (0, 1]. Zero means the default of 0.5.
	RelevanceScore float64

	// UserID and SessionID scope the entry. Optional.
	UserID    string
	SessionID string

	// SourceTurns identifies the turns the fact came from. Empty means
	// the timestamps of all turns passed to Extract.
	SourceTurns []string
}

// ExtractFunc analyses conversation turns and returns extraction results.
// The library never calls an LLM; the supplied function may.
type ExtractFunc func(ctx context.Context, turns []ConversationTurn) ([]ExtractionResult, error)

// Extractor turns conversation turns into persistent memory entries.
type Extractor interface {
	Extract(ctx context.Context, turns []ConversationTurn) ([]MemoryEntry, error)
}

// CallbackExtractor delegates extraction to a user-provided function and
// materialises its results into memory entries.
type CallbackExtractor struct {
	fn          ExtractFunc
	defaultType MemoryType
	callbacks   []Callback
}

// NewCallbackExtractor creates an extractor around fn. defaultType applies
// to results without an explicit type; empty means semantic.
func NewCallbackExtractor(fn ExtractFunc, defaultType MemoryType, callbacks ...Callback) (*CallbackExtractor, error) {
	if fn == nil {
		return nil, fmt.Errorf("extraction function is required")
	}
	if defaultType == "" {
		defaultType = TypeSemantic
	}
	return &CallbackExtractor{fn: fn, defaultType: defaultType, callbacks: callbacks}, nil
}

// Extract runs the user function over turns and builds entries from its
// results. A result with empty content is an error.
func (e *CallbackExtractor) Extract(ctx context.Context, turns []ConversationTurn) ([]MemoryEntry, error) {
	results, err := e.fn(ctx, turns)
	if err != nil {
		return nil, fmt.Errorf("extraction function: %w", err)
	}

	entries := make([]MemoryEntry, 0, len(results))
	for _, res := range results {
		if res.Content == "" {
			return nil, fmt.Errorf("extraction result must have content")
		}

		memoryType := res.Type
		if memoryType == "" {
			memoryType = e.defaultType
		}

		entry := NewEntry(res.Content, memoryType)
		entry.Tags = append(entry.Tags, res.Tags...)
		entry.Metadata = res.Metadata
		entry.UserID = res.UserID
		entry.SessionID = res.SessionID
		if res.RelevanceScore > 0 {
			entry.RelevanceScore = res.RelevanceScore
		}

		sourceTurns := res.SourceTurns
		if len(sourceTurns) == 0 {
			for _, turn := range turns {
				sourceTurns = append(sourceTurns, turn.Timestamp.Format(time.RFC3339Nano))
			}
		}
		entry.SourceTurns = sourceTurns

		entries = append(entries, entry)
	}

	if len(entries) > 0 {
		fireCallbacks(e.callbacks, "OnExtraction", func(cb Callback) {
			cb.OnExtraction(turns, entries)
		})
	}
	return entries, nil
}
