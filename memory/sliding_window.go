package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
)

// SlidingWindowConfig configures a SlidingWindowMemory.
type SlidingWindowConfig struct {
	// MaxTokens is the token budget for the window. Must be positive.
	MaxTokens int

	// Tokenizer counts and truncates tokens. Defaults to the heuristic
	// tokenizer.
	Tokenizer Tokenizer

	// Policy selects turns to evict when the budget is exceeded.
	// Defaults to FIFO.
	Policy EvictionPolicy

	// Scorer produces recency weights for ToContextItems. Defaults to
	// linear scoring from 0.5 to 1.0.
	Scorer RecencyScorer

	// Callbacks observe evictions.
	Callbacks []Callback
}

// SlidingWindowMemory holds an ordered sequence of conversation turns
// within a fixed token budget. Adding a turn that would exceed the budget
// triggers the eviction policy; evicted turns are handed to the eviction
// callbacks and no longer referenced by the window.
//
// All mutating operations run under a single mutex so the running token
// total is always consistent with the visible turn list. Callbacks fire
// while the lock is held and must not call back into the window.
type SlidingWindowMemory struct {
	mu          sync.Mutex
	turns       []ConversationTurn
	totalTokens int

	maxTokens int
	tokenizer Tokenizer
	policy    EvictionPolicy
	scorer    RecencyScorer
	callbacks []Callback
}

// NewSlidingWindowMemory creates a sliding window with the given config.
// A nil config or non-positive MaxTokens is a configuration error.
func NewSlidingWindowMemory(cfg *SlidingWindowConfig) (*SlidingWindowMemory, error) {
	if cfg == nil || cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("sliding window max tokens must be positive")
	}

	tokenizer := cfg.Tokenizer
	if tokenizer == nil {
		tokenizer = NewHeuristicTokenizer()
	}
	policy := cfg.Policy
	if policy == nil {
		policy = FIFOEviction{}
	}
	scorer := cfg.Scorer
	if scorer == nil {
		scorer, _ = NewLinearRecencyScorer(0.5)
	}

	return &SlidingWindowMemory{
		maxTokens: cfg.MaxTokens,
		tokenizer: tokenizer,
		policy:    policy,
		scorer:    scorer,
		callbacks: cfg.Callbacks,
	}, nil
}

// AddTurn appends a turn for the given role and content, evicting older
// turns if the budget is exceeded. A single turn larger than the whole
// budget is truncated to fit rather than rejected; its metadata gains
// "truncated": true. The stored turn is returned.
func (m *SlidingWindowMemory) AddTurn(ctx context.Context, role Role, content string, metadata map[string]any) (ConversationTurn, error) {
	turn := NewTurn(role, content)
	maps.Copy(turn.Metadata, metadata)
	turn.TokenCount = m.tokenizer.CountTokens(content)

	if turn.TokenCount > m.maxTokens {
		turn.Content = m.tokenizer.TruncateToTokens(content, m.maxTokens)
		turn.TokenCount = m.maxTokens
		turn.Metadata["truncated"] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, turn)
	m.totalTokens += turn.TokenCount

	if m.totalTokens > m.maxTokens {
		m.evictLocked(m.totalTokens - m.maxTokens)
	}
	return turn, nil
}

// evictLocked asks the policy for indices to remove, removes exactly those
// turns, and fires the eviction callbacks. Caller holds the mutex.
func (m *SlidingWindowMemory) evictLocked(tokensToFree int) {
	selected := m.policy.SelectForEviction(m.turns, tokensToFree)
	if len(selected) == 0 {
		return
	}

	// Remove oldest-first regardless of the order the policy returned.
	sorted := make([]int, len(selected))
	copy(sorted, selected)
	sort.Ints(sorted)

	evicted := make([]ConversationTurn, 0, len(sorted))
	remove := make(map[int]bool, len(sorted))
	for _, idx := range sorted {
		if idx < 0 || idx >= len(m.turns) || remove[idx] {
			continue
		}
		remove[idx] = true
		evicted = append(evicted, m.turns[idx])
		m.totalTokens -= m.turns[idx].TokenCount
	}

	kept := m.turns[:0]
	for i, turn := range m.turns {
		if !remove[i] {
			kept = append(kept, turn)
		}
	}
	// Zero the tail so evicted turns are not retained by the backing array.
	for i := len(kept); i < len(m.turns); i++ {
		m.turns[i] = ConversationTurn{}
	}
	m.turns = kept

	remaining := m.totalTokens
	fireCallbacks(m.callbacks, "OnEviction", func(cb Callback) {
		cb.OnEviction(evicted, remaining)
	})
}

// ToContextItems converts surviving turns to context items at the given
// priority. Each item carries a recency-weighted relevance score; the role
// travels in metadata rather than being mixed into the content, so
// downstream formatters can set the role through their own message
// structures.
func (m *SlidingWindowMemory) ToContextItems(priority int) []ContextItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]ContextItem, 0, len(m.turns))
	total := len(m.turns)
	for i, turn := range m.turns {
		metadata := map[string]any{"role": string(turn.Role)}
		maps.Copy(metadata, turn.Metadata)
		item := newContextItem(turn.Content, SourceMemory, m.scorer.Score(i, total), priority, turn.TokenCount, metadata)
		item.CreatedAt = turn.Timestamp
		items = append(items, item)
	}
	return items
}

// Turns returns a snapshot of the surviving turns, oldest first.
func (m *SlidingWindowMemory) Turns() []ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ConversationTurn, len(m.turns))
	copy(out, m.turns)
	return out
}

// TotalTokens returns the current token total of the window.
func (m *SlidingWindowMemory) TotalTokens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalTokens
}

// MaxTokens returns the window's token budget.
func (m *SlidingWindowMemory) MaxTokens() int {
	return m.maxTokens
}

// Clear removes every turn and resets the token total to zero.
func (m *SlidingWindowMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
	m.totalTokens = 0
}
